package store

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"nexusgeometry/internal/models"
)

// Payload header bytes.
const (
	rawPayload  byte = 0
	zstdPayload byte = 1
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeValue serialises a dataset value, zstd compressed on request. The
// first byte of the payload records the compression.
func EncodeValue(v models.Value, compress bool) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	if !compress {
		return append([]byte{rawPayload}, buf.Bytes()...), nil
	}
	return encoder.EncodeAll(buf.Bytes(), []byte{zstdPayload}), nil
}

// DecodeValue reverses EncodeValue.
func DecodeValue(data []byte) (models.Value, error) {
	var v models.Value
	if len(data) == 0 {
		return v, fmt.Errorf("decode value: empty payload")
	}
	body := data[1:]
	switch data[0] {
	case rawPayload:
	case zstdPayload:
		var err error
		if body, err = decoder.DecodeAll(body, nil); err != nil {
			return v, fmt.Errorf("decompress value: %w", err)
		}
	default:
		return v, fmt.Errorf("decode value: unknown payload header %d", data[0])
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&v); err != nil {
		return v, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// IsCompressed reports whether an encoded payload is compressed.
func IsCompressed(data []byte) bool {
	return len(data) > 0 && data[0] == zstdPayload
}

// EncodeAttributes serialises an attribute map.
func EncodeAttributes(a models.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAttributes reverses EncodeAttributes.
func DecodeAttributes(data []byte) (models.Attributes, error) {
	a := models.Attributes{}
	if len(data) == 0 {
		return a, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return a, nil
}

// MergeAttributes returns dst updated with src.
func MergeAttributes(dst, src models.Attributes) models.Attributes {
	if dst == nil {
		dst = models.Attributes{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/pkg/ids"
)

// Layout is the flattened pixel description of a bank. All slices are
// parallel and ordered tube offset, then straw, then pixel along the straw.
type Layout struct {
	BankID int

	// X, Y and Z are the pixel offsets relative to the bank translation
	X, Y, Z []float64

	// DetectorNumbers are the global pixel identifiers
	DetectorNumbers []int64

	// TubeIDs are local to the bank
	TubeIDs []int

	// StrawIDs are global straw identifiers
	StrawIDs []int64

	// LocalPixels is the pixel position along its straw
	LocalPixels []int
}

// Len returns the number of pixels in the layout.
func (l *Layout) Len() int { return len(l.DetectorNumbers) }

// Offset returns the offset of pixel i.
func (l *Layout) Offset(i int) r3.Vec {
	return r3.Vec{X: l.X[i], Y: l.Y[i], Z: l.Z[i]}
}

// Layout walks the built bank and draws straw and pixel identifiers from
// the shared counters. The traversal order defines detector_number and
// must not change.
func (b *Bank) Layout(c *ids.Counters) (*Layout, error) {
	if !b.built {
		return nil, fmt.Errorf("bank %d: layout requested before build", b.id)
	}
	straw := b.tube.Straw()
	pixel := straw.Pixel()

	n := b.NumberOfPixels()
	l := &Layout{
		BankID:          b.id,
		X:               make([]float64, 0, n),
		Y:               make([]float64, 0, n),
		Z:               make([]float64, 0, n),
		DetectorNumbers: make([]int64, 0, n),
		TubeIDs:         make([]int, 0, n),
		StrawIDs:        make([]int64, 0, n),
		LocalPixels:     make([]int, 0, n),
	}

	for tubeID, tubeOffset := range b.tube.Offsets() {
		for _, strawOffset := range straw.Offsets() {
			strawID := c.Straw.Next()
			base := r3.Add(strawOffset, tubeOffset)
			for local, pixelOffset := range pixel.Offsets() {
				pos := r3.Add(base, pixelOffset)
				l.X = append(l.X, pos.X)
				l.Y = append(l.Y, pos.Y)
				l.Z = append(l.Z, pos.Z)
				l.DetectorNumbers = append(l.DetectorNumbers, c.Pixel.Next())
				l.TubeIDs = append(l.TubeIDs, tubeID)
				l.StrawIDs = append(l.StrawIDs, strawID)
				l.LocalPixels = append(l.LocalPixels, local)
			}
		}
	}
	return l, nil
}

// PixelShape returns the nominal cylinder vertices shared by every pixel.
func (b *Bank) PixelShape() ([]r3.Vec, error) {
	if !b.built {
		return nil, fmt.Errorf("bank %d: pixel shape requested before build", b.id)
	}
	return b.tube.Straw().Pixel().Shape().Coordinates(), nil
}

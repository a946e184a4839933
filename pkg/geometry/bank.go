package geometry

import (
	"log/slog"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"nexusgeometry/internal/models"
)

// CornerCount is the number of calibration corners on each bank face.
const CornerCount = 4

// Bank is a detector sub-assembly: a grid of identical tubes spanned by two
// basis vectors. The corner points are stored relative to the first corner
// of face A, which becomes the local origin.
type Bank struct {
	id          int
	numTubes    int
	offset      r3.Vec
	translation r3.Vec
	faceA       [CornerCount]r3.Vec
	faceB       [CornerCount]r3.Vec
	tubeDepth   int
	tubeWidth   int

	// The basis vectors are neither orthogonal nor normalised. Each one is
	// exactly one grid step long so a tube position is a plain linear
	// combination of them.
	base1 r3.Vec
	base2 r3.Vec

	alignment Alignment
	tube      *Tube
	params    Params
	built     bool
}

// NewBank normalises and validates the calibration record of one bank.
//
// The corners are scaled, then shifted so that face A corner 0 is the
// origin; the bank offset is added to the translation afterwards. The
// construction fails with ErrGeometryInconsistency when the bank is not a
// cuboid, when the tubes would overlap, when face A does not lie in a plane
// orthogonal to a principal axis, or when the tube axis is along z.
func NewBank(rec models.BankRecord, id int, p Params) (*Bank, error) {
	if len(rec.A) != CornerCount || len(rec.B) != CornerCount {
		return nil, invalidRecord(id, "expected %d corners per face, got A=%d B=%d", CornerCount, len(rec.A), len(rec.B))
	}
	if p.StrawsPerTube < 3 || p.StrawsPerTube%2 == 0 {
		return nil, invalidRecord(id, "straws per tube %d must be odd and at least 3", p.StrawsPerTube)
	}
	if p.StrawResolution < 1 {
		return nil, invalidRecord(id, "straw resolution %d must be positive", p.StrawResolution)
	}
	if p.TubeDepth < 2 {
		return nil, invalidRecord(id, "tube depth %d must be at least 2", p.TubeDepth)
	}
	if rec.NumTubes <= 0 || rec.NumTubes%p.TubeDepth != 0 {
		return nil, invalidRecord(id, "tube count %d is not a positive multiple of tube depth %d", rec.NumTubes, p.TubeDepth)
	}
	if rec.NumTubes/p.TubeDepth < 2 {
		return nil, invalidRecord(id, "tube grid width %d must be at least 2", rec.NumTubes/p.TubeDepth)
	}

	b := &Bank{
		id:        id,
		numTubes:  rec.NumTubes,
		tubeDepth: p.TubeDepth,
		tubeWidth: rec.NumTubes / p.TubeDepth,
		params:    p,
	}

	b.offset = scalePoint(rec.BankOffset, p.ScaleFactor)
	b.translation = scalePoint(rec.A[0], p.ScaleFactor)
	for i := 0; i < CornerCount; i++ {
		b.faceA[i] = r3.Sub(scalePoint(rec.A[i], p.ScaleFactor), b.translation)
		b.faceB[i] = r3.Sub(scalePoint(rec.B[i], p.ScaleFactor), b.translation)
	}
	b.translation = r3.Add(b.translation, b.offset)

	if err := b.checkCuboid(); err != nil {
		return nil, err
	}
	if err := b.checkTubeCenterDistance(); err != nil {
		return nil, err
	}
	if err := b.checkCornersInPlane(); err != nil {
		return nil, err
	}

	b.base1 = r3.Scale(1/float64(b.tubeDepth-1), b.faceA[1])
	b.base2 = r3.Scale(1/float64(b.tubeWidth-1), b.faceA[2])

	alignment, err := b.orientation()
	if err != nil {
		return nil, err
	}
	b.alignment = alignment
	b.tube = NewTube(b.faceA[0], b.faceB[0], alignment, p.TubeDiameter*p.ScaleFactor)

	slog.Debug("Bank validated",
		slog.Int("bank", id),
		slog.Int("tubes", rec.NumTubes),
		slog.String("alignment", alignment.String()))
	return b, nil
}

func scalePoint(p models.Point, factor float64) r3.Vec {
	return r3.Vec{X: p[0] * factor, Y: p[1] * factor, Z: p[2] * factor}
}

func (b *Bank) round(x float64) float64 {
	return scalar.Round(x, b.params.FractionalPrecision)
}

// tubeLength is the distance between the matching corners of the two faces.
func (b *Bank) tubeLength(index int) float64 {
	return r3.Norm(r3.Sub(b.faceA[index], b.faceB[index]))
}

func (b *Bank) checkCuboid() error {
	lengths := make(map[float64]struct{}, CornerCount)
	for i := 0; i < CornerCount; i++ {
		lengths[b.round(b.tubeLength(i))] = struct{}{}
	}
	if len(lengths) != 1 {
		return inconsistent(b.id, "bank does not form a cuboid")
	}
	return nil
}

func (b *Bank) checkTubeCenterDistance() error {
	width := r3.Norm(r3.Sub(b.faceA[0], b.faceA[1]))
	centerDist := b.round(width / float64(b.tubeDepth-1))
	diameter := b.params.TubeDiameter * b.params.ScaleFactor
	if centerDist < diameter {
		return inconsistent(b.id, "distance between tubes is smaller than the tube diameter %g < %g",
			centerDist, diameter)
	}
	return nil
}

func (b *Bank) checkCornersInPlane() error {
	for axis := 0; axis < 3; axis++ {
		shared := true
		first := b.round(component(b.faceA[0], axis))
		for _, corner := range b.faceA[1:] {
			if b.round(component(corner, axis)) != first {
				shared = false
				break
			}
		}
		if shared {
			return nil
		}
	}
	return inconsistent(b.id, "the corner points %v are not in a plane", b.faceA)
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// orientation compares the tube direction with the x and y axes.
func (b *Bank) orientation() (Alignment, error) {
	direction := r3.Sub(b.faceA[0], b.faceB[0])
	if r3.Dot(r3.Vec{X: 1}, direction) != 0 {
		return Horizontal, nil
	}
	if r3.Dot(r3.Vec{Y: 1}, direction) != 0 {
		return Vertical, nil
	}
	return 0, inconsistent(b.id, "the tube alignment is neither horizontal nor vertical")
}

// TubeOffsets generates one offset per tube, depth-major.
func (b *Bank) TubeOffsets() []r3.Vec {
	offsets := make([]r3.Vec, 0, b.tubeDepth*b.tubeWidth)
	for xi := 0; xi < b.tubeDepth; xi++ {
		for yi := 0; yi < b.tubeWidth; yi++ {
			offsets = append(offsets, r3.Add(r3.Scale(float64(xi), b.base1), r3.Scale(float64(yi), b.base2)))
		}
	}
	return offsets
}

// Build places the tubes and populates them with straws and pixels.
func (b *Bank) Build() (*Tube, error) {
	b.tube.SetOffsets(b.TubeOffsets())
	if err := b.tube.PopulateWithUniformStraws(b.id, b.base1, b.base2, b.params); err != nil {
		return nil, err
	}
	b.built = true
	return b.tube, nil
}

func (b *Bank) ID() int { return b.id }

func (b *Bank) Tube() *Tube { return b.tube }

func (b *Bank) Alignment() Alignment { return b.alignment }

func (b *Bank) Params() Params { return b.params }

// Translation is the position of the local origin in the instrument frame.
func (b *Bank) Translation() r3.Vec { return b.translation }

// BaseVectors returns the two grid step vectors.
func (b *Bank) BaseVectors() (r3.Vec, r3.Vec) { return b.base1, b.base2 }

// GridSize returns the tube grid dimensions as depth and width.
func (b *Bank) GridSize() (depth, width int) { return b.tubeDepth, b.tubeWidth }

// Corners returns the normalised face A corners followed by face B.
func (b *Bank) Corners() []r3.Vec {
	out := make([]r3.Vec, 0, 2*CornerCount)
	out = append(out, b.faceA[:]...)
	return append(out, b.faceB[:]...)
}

func (b *Bank) NumberOfTubes() int { return b.numTubes }

// NumberOfPixels is tubes x straws per tube x straw resolution.
func (b *Bank) NumberOfPixels() int {
	return b.numTubes * b.params.StrawsPerTube * b.params.StrawResolution
}

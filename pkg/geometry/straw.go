package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Straw is one linear row of pixels inside a tube. All straws of a tube
// share one pixel template and differ by their radial offset.
type Straw struct {
	// a is the centre point on face A of the bank
	a r3.Vec
	// b lies on face A, radially out from a
	b r3.Vec
	// c is the centre point on face B of the bank
	c r3.Vec

	bankID  int
	offsets []r3.Vec
	pixel   *Pixel
}

// NewStraw creates a straw from its anchor points.
func NewStraw(a, b, c r3.Vec, bankID int) *Straw {
	return &Straw{a: a, b: b, c: c, bankID: bankID}
}

// strawRotation returns the matrix that turns the base radial vector by
// theta around the tube axis. The horizontal form swaps the roles of the
// y and z rows; that layout is the calibration convention of the straw
// numbering and is kept as is.
func strawRotation(alignment Alignment, theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	if alignment == Horizontal {
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, -s, c,
			0, c, s,
		})
	}
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// RadialOffsets generates the unordered straw offsets of a tube: the zero
// vector for the centre straw followed by n-1 copies of the normalised base
// vector rotated in equal steps and scaled to the outer straw distance.
func RadialOffsets(alignment Alignment, base r3.Vec, n int, offsetAngle, distance float64) []r3.Vec {
	offsets := make([]r3.Vec, 0, n)
	offsets = append(offsets, r3.Vec{})

	unit := r3.Unit(base)
	v := mat.NewVecDense(3, []float64{unit.X, unit.Y, unit.Z})
	step := 2 * math.Pi / float64(n-1)

	var rotated mat.VecDense
	for i := 0; i < n-1; i++ {
		theta := step*float64(i) + offsetAngle
		rotated.MulVec(strawRotation(alignment, theta), v)
		offsets = append(offsets, r3.Scale(distance, r3.Vec{
			X: rotated.AtVec(0),
			Y: rotated.AtVec(1),
			Z: rotated.AtVec(2),
		}))
	}
	return offsets
}

// ReorderStrawOffsets applies the straw numbering permutation used by the
// calibration data. With mid = (n-1)/2+1 the first element moves to the
// middle, the elements from mid onwards move to the front and the elements
// between the first and mid follow in reverse order. For seven straws the
// input order 0..6 becomes 4 5 6 0 3 2 1.
//
// The slicing follows the original list assignments literally, so for an
// even strawsPerTube the result is one element shorter than the input.
func ReorderStrawOffsets[T any](in []T, strawsPerTube int) []T {
	mid := int(float64(strawsPerTube-1)/2 + 1)

	sorted := make([]T, len(in))
	sorted[mid] = in[0]

	head := make([]T, 0, len(in))
	head = append(head, in[mid:]...)
	head = append(head, sorted[mid:]...)
	if len(head) > mid {
		head = head[:mid]
	}

	for i := mid - 1; i >= 1; i-- {
		head = append(head, in[i])
	}
	return head
}

// SetOffsets derives the radial offsets of every straw in the tube.
func (s *Straw) SetOffsets(alignment Alignment, base r3.Vec, p Params) error {
	if r3.Norm(base) == 0 {
		return inconsistent(s.bankID, "straw base vector has zero length")
	}
	raw := RadialOffsets(alignment, base, p.StrawsPerTube, p.AlignmentOffset, p.OuterStrawDistance())
	offsets := ReorderStrawOffsets(raw, p.StrawsPerTube)
	if len(offsets) != p.StrawsPerTube {
		return inconsistent(s.bankID, "straw ordering produced %d offsets for %d straws per tube",
			len(offsets), p.StrawsPerTube)
	}
	s.offsets = offsets
	return nil
}

// PopulateWithPixels divides the straw into resolution pixels of equal length.
func (s *Straw) PopulateWithPixels(resolution int) error {
	if resolution < 1 {
		return invalidRecord(s.bankID, "straw resolution %d must be positive", resolution)
	}
	step := r3.Scale(1/float64(resolution), r3.Sub(s.c, s.a))
	pixel, err := NewPixel(s.a, s.b, r3.Add(s.a, step))
	if err != nil {
		return fmt.Errorf("bank %d: first pixel: %w", s.bankID, err)
	}

	offsets := make([]r3.Vec, resolution)
	for j := range offsets {
		offsets[j] = r3.Scale(float64(j), step)
	}
	pixel.SetOffsets(offsets)
	s.pixel = pixel
	return nil
}

func (s *Straw) Offsets() []r3.Vec { return s.offsets }

func (s *Straw) Pixel() *Pixel { return s.pixel }

// Anchors returns the points A, B and C of the straw.
func (s *Straw) Anchors() (a, b, c r3.Vec) { return s.a, s.b, s.c }

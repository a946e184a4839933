package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Alignment is the direction of the tube axis in a bank.
type Alignment int

const (
	Horizontal Alignment = iota
	Vertical
)

func (a Alignment) String() string {
	switch a {
	case Horizontal:
		return "HORIZONTAL"
	case Vertical:
		return "VERTICAL"
	}
	return fmt.Sprintf("Alignment(%d)", int(a))
}

// Tube is a bundle of straws. One tube geometry is repeated across a bank
// by translating it with the grid offsets.
type Tube struct {
	alignment Alignment
	diameter  float64
	start     r3.Vec
	end       r3.Vec
	offsets   []r3.Vec
	straw     *Straw
}

// NewTube creates a tube running from start to end.
func NewTube(start, end r3.Vec, alignment Alignment, diameter float64) *Tube {
	return &Tube{alignment: alignment, diameter: diameter, start: start, end: end}
}

// SetOffsets stores the grid offsets, one per tube in the bank.
func (t *Tube) SetOffsets(offsets []r3.Vec) { t.offsets = offsets }

func (t *Tube) Offsets() []r3.Vec { return t.offsets }

func (t *Tube) Endpoints() (start, end r3.Vec) { return t.start, t.end }

func (t *Tube) Alignment() Alignment { return t.alignment }

func (t *Tube) Diameter() float64 { return t.diameter }

func (t *Tube) Straw() *Straw { return t.straw }

// PopulateWithUniformStraws places the straws of the tube. The radial anchor
// point lies half a straw diameter from the tube start, along the bisector
// of the two bank basis vectors.
func (t *Tube) PopulateWithUniformStraws(bankID int, base1, base2 r3.Vec, p Params) error {
	sum := r3.Add(base1, base2)
	if r3.Norm(sum) == 0 {
		return inconsistent(bankID, "bank basis vectors cancel out")
	}
	radial := r3.Add(t.start, r3.Scale(p.StrawDiameter*p.ScaleFactor/2, r3.Unit(sum)))

	straw := NewStraw(t.start, radial, t.end, bankID)
	if err := straw.SetOffsets(t.alignment, base1, p); err != nil {
		return err
	}
	if err := straw.PopulateWithPixels(p.StrawResolution); err != nil {
		return err
	}
	t.straw = straw
	return nil
}

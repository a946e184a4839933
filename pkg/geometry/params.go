package geometry

import "math"

// Params holds the detector construction constants. Lengths are in the raw
// calibration unit and are multiplied by ScaleFactor together with the
// bank corner points.
type Params struct {
	// FractionalPrecision is the number of decimals kept when comparing
	// scaled distances
	FractionalPrecision int

	// TubeDiameter is the outer diameter of a detector tube
	TubeDiameter float64

	// TubeDepth is the number of tube rows along the first grid axis
	TubeDepth int

	// StrawsPerTube counts the centre straw plus the straws wound around it
	StrawsPerTube int

	StrawDiameter float64

	// StrawResolution is the number of pixels along one straw
	StrawResolution int

	// StrawYLoc and StrawZLoc locate an outer straw relative to the tube centre
	StrawYLoc float64
	StrawZLoc float64

	// AlignmentOffset biases every straw rotation angle, in radians
	AlignmentOffset float64

	// ScaleFactor converts raw calibration units into output units
	ScaleFactor float64
}

// OuterStrawDistance is the scaled distance between the tube centre point
// and the centre of an outer straw.
func (p Params) OuterStrawDistance() float64 {
	return math.Sqrt(p.StrawYLoc*p.StrawYLoc+p.StrawZLoc*p.StrawZLoc) * p.ScaleFactor
}

// LokiParams returns the LoKI detector constants with millimetre calibration
// data converted to metres.
func LokiParams() Params {
	return Params{
		FractionalPrecision: 5,
		TubeDiameter:        25.4,
		TubeDepth:           4,
		StrawsPerTube:       7,
		StrawDiameter:       8.0,
		StrawResolution:     512,
		StrawYLoc:           1.14,
		StrawZLoc:           7.67,
		AlignmentOffset:     5 * math.Pi / 180,
		ScaleFactor:         1e-3,
	}
}

package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// pixelPoint is a pixel position in the instrument frame.
type pixelPoint struct {
	X, Y, Z  float64
	Detector int64
	Bank     int
}

// Compare implements the kdtree.Comparable interface.
func (p pixelPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pixelPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

func (p pixelPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p pixelPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(pixelPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

type pixelPoints []pixelPoint

func (p pixelPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p pixelPoints) Len() int                              { return len(p) }
func (p pixelPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p pixelPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pixelPlane{pixelPoints: p, Dim: d}, kdtree.MedianOfRandoms(pixelPlane{pixelPoints: p, Dim: d}, 100))
}

// pixelPlane implements sort.Interface and kdtree.SortSlicer for pixelPoints.
type pixelPlane struct {
	pixelPoints
	kdtree.Dim
}

func (p pixelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.pixelPoints[i].X < p.pixelPoints[j].X
	case 1:
		return p.pixelPoints[i].Y < p.pixelPoints[j].Y
	case 2:
		return p.pixelPoints[i].Z < p.pixelPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p pixelPlane) Slice(start, end int) kdtree.SortSlicer {
	return pixelPlane{pixelPoints: p.pixelPoints[start:end], Dim: p.Dim}
}

func (p pixelPlane) Swap(i, j int) {
	p.pixelPoints[i], p.pixelPoints[j] = p.pixelPoints[j], p.pixelPoints[i]
}

// Match is the result of a nearest pixel query.
type Match struct {
	BankID         int
	DetectorNumber int64
	Position       r3.Vec
	Distance       float64
}

// Locator finds the pixel closest to a point in the instrument frame.
type Locator struct {
	tree *kdtree.Tree
}

// NewLocator indexes the world position of every pixel in the layouts.
// translations maps a bank id to the bank translation.
func NewLocator(layouts []*Layout, translations map[int]r3.Vec) (*Locator, error) {
	var points pixelPoints
	for _, l := range layouts {
		t := translations[l.BankID]
		for i := 0; i < l.Len(); i++ {
			points = append(points, pixelPoint{
				X:        l.X[i] + t.X,
				Y:        l.Y[i] + t.Y,
				Z:        l.Z[i] + t.Z,
				Detector: l.DetectorNumbers[i],
				Bank:     l.BankID,
			})
		}
	}
	if len(points) == 0 {
		return nil, errors.New("no pixels to index")
	}
	return &Locator{tree: kdtree.New(points, false)}, nil
}

// Nearest returns the pixel closest to p.
func (l *Locator) Nearest(p r3.Vec) Match {
	got, dist := l.tree.Nearest(pixelPoint{X: p.X, Y: p.Y, Z: p.Z})
	q := got.(pixelPoint)
	return Match{
		BankID:         q.Bank,
		DetectorNumber: q.Detector,
		Position:       r3.Vec{X: q.X, Y: q.Y, Z: q.Z},
		Distance:       math.Sqrt(dist),
	}
}

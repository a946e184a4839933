package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// VertexCount is the number of vertices describing a cylinder.
const VertexCount = 3

// NoID marks a vertex without an identifier.
const NoID = -1

// Vertex is an immutable point in 3D space with an optional identifier.
type Vertex struct {
	pos r3.Vec
	id  int
}

// NewVertex creates a vertex without an identifier.
func NewVertex(x, y, z float64) Vertex {
	return Vertex{pos: r3.Vec{X: x, Y: y, Z: z}, id: NoID}
}

// NewVertexWithID creates an identified vertex.
func NewVertexWithID(x, y, z float64, id int) Vertex {
	return Vertex{pos: r3.Vec{X: x, Y: y, Z: z}, id: id}
}

func (v Vertex) Coordinates() r3.Vec { return v.pos }

// ID returns the vertex identifier and whether one was set.
func (v Vertex) ID() (int, bool) { return v.id, v.id != NoID }

func (v Vertex) String() string {
	return fmt.Sprintf("x: %g, y: %g, z: %g, vertex_id: %d", v.pos.X, v.pos.Y, v.pos.Z, v.id)
}

// Cylinder is a cylindrical volume described by the centre of one face (A),
// a point on that face's edge (B) and the centre of the opposite face (C).
type Cylinder struct {
	vertices [VertexCount]Vertex
}

// NewCylinder fails unless the three coordinate triples are pairwise distinct.
func NewCylinder(a, b, c r3.Vec) (*Cylinder, error) {
	if a == b || a == c || b == c {
		return nil, fmt.Errorf("%w: three unique vertices are expected to describe a cylinder, got %v %v %v",
			ErrGeometryInconsistency, a, b, c)
	}
	return &Cylinder{vertices: [VertexCount]Vertex{
		NewVertex(a.X, a.Y, a.Z),
		NewVertex(b.X, b.Y, b.Z),
		NewVertex(c.X, c.Y, c.Z),
	}}, nil
}

func (c *Cylinder) Vertices() [VertexCount]Vertex { return c.vertices }

// Coordinates returns the vertex positions in A, B, C order.
func (c *Cylinder) Coordinates() []r3.Vec {
	out := make([]r3.Vec, VertexCount)
	for i, v := range c.vertices {
		out[i] = v.pos
	}
	return out
}

// Pixel is a cylinder-shaped detector voxel repeated along a straw by axial offsets.
type Pixel struct {
	shape   *Cylinder
	offsets []r3.Vec
}

// NewPixel creates the nominal pixel from its three cylinder vertices.
func NewPixel(a, b, c r3.Vec) (*Pixel, error) {
	shape, err := NewCylinder(a, b, c)
	if err != nil {
		return nil, err
	}
	return &Pixel{shape: shape}, nil
}

// SetOffsets stores the axial offsets, one per pixel position along the straw.
func (p *Pixel) SetOffsets(offsets []r3.Vec) { p.offsets = offsets }

func (p *Pixel) Offsets() []r3.Vec { return p.offsets }

func (p *Pixel) Shape() *Cylinder { return p.shape }

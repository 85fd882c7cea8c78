package geometry

import (
	"fmt"

	Vec "diesel.com/raysph/vector"
)

const (
	EPSILON = 0.00001

	//MaxPlanes is the capacity of the boundary plane table in the simulation constants
	MaxPlanes = 6
)

//diesel geometry library - container geometry for particle boundary response.
//The fluid lives inside a box whose six faces are represented as inward facing planes,
//a signed distance below zero means the particle has penetrated that wall.

//Plane equation n.x + Offset = 0, Normal points into the fluid volume
type Plane struct {
	Normal Vec.Vec32
	Offset float32
}

//Box - axis aligned container centered on Origin
type Box struct {
	Origin Vec.Vec32
	Width  float32
	Height float32
	Depth  float32
}

//NewBox - container of extents w x h x d centered on o
func NewBox(w float32, h float32, d float32, o Vec.Vec32) (Box, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return Box{}, fmt.Errorf("container extents must be positive, got %f x %f x %f", w, h, d)
	}
	return Box{Origin: o, Width: w, Height: h, Depth: d}, nil
}

//UnitCube spans [0,1] on every axis
func UnitCube() Box {
	return Box{Origin: Vec.Vec32{0.5, 0.5, 0.5}, Width: 1, Height: 1, Depth: 1}
}

//SignedDistance of p to the plane, negative when p lies behind it
func (pl Plane) SignedDistance(p Vec.Vec32) float32 {
	return Vec.Dot(pl.Normal, p) + pl.Offset
}

//Vec4 packs the plane the way the constant block stores it
func (pl Plane) Vec4() Vec.Vec4 {
	return Vec.Vec4{pl.Normal[0], pl.Normal[1], pl.Normal[2], pl.Offset}
}

func (b Box) Min() Vec.Vec32 {
	return Vec.Vec32{b.Origin[0] - b.Width/2, b.Origin[1] - b.Height/2, b.Origin[2] - b.Depth/2}
}

func (b Box) Max() Vec.Vec32 {
	return Vec.Vec32{b.Origin[0] + b.Width/2, b.Origin[1] + b.Height/2, b.Origin[2] + b.Depth/2}
}

func (b Box) Volume() float32 {
	return b.Width * b.Height * b.Depth
}

//Contains - point inside the box grown by eps on each side
func (b Box) Contains(p Vec.Vec32, eps float32) bool {
	lo, hi := b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if p[i] < lo[i]-eps || p[i] > hi[i]+eps {
			return false
		}
	}
	return true
}

//Planes returns the six walls. Order is {LEFT, BOTTOM, BACK, RIGHT, TOP, FRONT}
func (b Box) Planes() [MaxPlanes]Plane {
	lo, hi := b.Min(), b.Max()
	return [MaxPlanes]Plane{
		{Normal: Vec.Vec32{1, 0, 0}, Offset: -lo[0]},
		{Normal: Vec.Vec32{0, 1, 0}, Offset: -lo[1]},
		{Normal: Vec.Vec32{0, 0, 1}, Offset: -lo[2]},
		{Normal: Vec.Vec32{-1, 0, 0}, Offset: hi[0]},
		{Normal: Vec.Vec32{0, -1, 0}, Offset: hi[1]},
		{Normal: Vec.Vec32{0, 0, -1}, Offset: hi[2]},
	}
}

//Wireframe - 12 box edges as 24 line vertexes for gl.LINES
func (b Box) Wireframe() []Vec.Vec32 {
	lo, hi := b.Min(), b.Max()
	corner := func(i int) Vec.Vec32 {
		c := lo
		if i&1 != 0 {
			c[0] = hi[0]
		}
		if i&2 != 0 {
			c[1] = hi[1]
		}
		if i&4 != 0 {
			c[2] = hi[2]
		}
		return c
	}

	verts := make([]Vec.Vec32, 0, 24)
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			bit := 1 << axis
			if i&bit == 0 {
				verts = append(verts, corner(i), corner(i|bit))
			}
		}
	}
	return verts
}

package app

import (
	"math"

	vector "diesel.com/raysph/vector"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	minDistance = 0.1
	maxPitch    = math.Pi/2 - 0.01
)

//OrbitCamera - looks at Target from Distance along a yaw/pitch direction. Roll tilts
//the screen, and gravity follows the screen's down direction.
type OrbitCamera struct {
	Target   mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Roll     float32
	Distance float32
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

//NewOrbitCamera - camera in front of target looking down -Z
func NewOrbitCamera(target vector.Vec32, distance float32, aspect float32) *OrbitCamera {
	return &OrbitCamera{
		Target:   mgl32.Vec3{target[0], target[1], target[2]},
		Distance: distance,
		FovY:     mgl32.DegToRad(45),
		Aspect:   aspect,
		Near:     0.01,
		Far:      100,
	}
}

//Rotate - adds to yaw and pitch, pitch stops short of the poles
func (c *OrbitCamera) Rotate(dyaw, dpitch float32) {
	c.Yaw += dyaw
	c.Pitch = mgl32.Clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

//Zoom - scales the orbit distance
func (c *OrbitCamera) Zoom(factor float32) {
	c.Distance = max(c.Distance*factor, minDistance)
}

//Tilt - rolls the screen around the view direction
func (c *OrbitCamera) Tilt(droll float32) {
	c.Roll += droll
}

func (c *OrbitCamera) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	dir := mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(dir.Mul(c.Distance))
}

//basis - right and up of the rolled screen in world space
func (c *OrbitCamera) basis() (right, up mgl32.Vec3) {
	forward := c.Target.Sub(c.Eye()).Normalize()
	right = forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up = right.Cross(forward)

	cr := float32(math.Cos(float64(c.Roll)))
	sr := float32(math.Sin(float64(c.Roll)))
	return right.Mul(cr).Add(up.Mul(sr)), up.Mul(cr).Sub(right.Mul(sr))
}

func (c *OrbitCamera) View() mgl32.Mat4 {
	_, up := c.basis()
	return mgl32.LookAtV(c.Eye(), c.Target, up)
}

func (c *OrbitCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

func (c *OrbitCamera) ViewProj() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

//GravityDir - world direction of the bottom of the screen
func (c *OrbitCamera) GravityDir() vector.Vec32 {
	_, up := c.basis()
	return vector.Vec32{-up[0], -up[1], -up[2]}
}

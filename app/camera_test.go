package app

import (
	"math"
	"testing"

	vector "diesel.com/raysph/vector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got vector.Vec32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestOrbitEye(t *testing.T) {
	cam := NewOrbitCamera(vector.Vec32{0.5, 0.5, 0.5}, 2, 1)
	assert.True(t, cam.Eye().ApproxEqualThreshold(mgl32.Vec3{0.5, 0.5, 2.5}, 1e-5))

	cam.Rotate(math.Pi/2, 0)
	assert.True(t, cam.Eye().ApproxEqualThreshold(mgl32.Vec3{2.5, 0.5, 0.5}, 1e-5))
}

func TestTargetProjectsToCenter(t *testing.T) {
	cam := NewOrbitCamera(vector.Vec32{0.5, 0.5, 0.5}, 2, 16.0/9.0)
	cam.Rotate(0.7, 0.3)
	clip := cam.ViewProj().Mul4x1(mgl32.Vec4{0.5, 0.5, 0.5, 1})
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)
	assert.Greater(t, clip[3], float32(0))
}

func TestGravityFollowsScreen(t *testing.T) {
	cam := NewOrbitCamera(vector.Vec32{}, 2, 1)
	assertVec(t, vector.Vec32{0, -1, 0}, cam.GravityDir())

	//yaw alone keeps the screen upright
	cam.Rotate(1.2, 0)
	assertVec(t, vector.Vec32{0, -1, 0}, cam.GravityDir())

	//a quarter roll points gravity along the old screen x axis
	cam = NewOrbitCamera(vector.Vec32{}, 2, 1)
	cam.Tilt(math.Pi / 2)
	assertVec(t, vector.Vec32{1, 0, 0}, cam.GravityDir())

	//looking down from above, the bottom of the screen is toward the camera
	cam = NewOrbitCamera(vector.Vec32{}, 2, 1)
	cam.Rotate(0, math.Pi/4)
	g := cam.GravityDir()
	assert.InDelta(t, 1, vector.Length(g), 1e-5)
	assert.InDelta(t, math.Sqrt2/2, g[2], 1e-5)
	assert.InDelta(t, -math.Sqrt2/2, g[1], 1e-5)
}

func TestRotateAndZoomLimits(t *testing.T) {
	cam := NewOrbitCamera(vector.Vec32{}, 2, 1)
	cam.Rotate(0, 10)
	assert.InDelta(t, maxPitch, cam.Pitch, 1e-6)
	cam.Rotate(0, -20)
	assert.InDelta(t, -maxPitch, cam.Pitch, 1e-6)

	cam.Zoom(0.5)
	assert.Equal(t, float32(1), cam.Distance)
	cam.Zoom(1e-6)
	assert.Equal(t, float32(minDistance), cam.Distance)
}

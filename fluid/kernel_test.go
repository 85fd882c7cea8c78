package fluid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoothingKernel(t *testing.T) {
	h := float32(0.02)
	k := InitSmoothing(h)

	assert.Equal(t, h, k.Radius())
	assert.InEpsilon(t, math.Pow(0.02, 9), k.H[9], 1e-5)

	assert.InEpsilon(t, math.Pow(0.02, 6), k.Poly6(0), 1e-5)
	assert.Equal(t, float32(0), k.Poly6(h*h))
	assert.Equal(t, float32(0), k.Poly6(1))

	assert.InEpsilon(t, 0.01*0.01, k.SpikyGrad(0.01), 1e-5)
	assert.Equal(t, float32(0), k.SpikyGrad(h))
	assert.InEpsilon(t, 0.01, k.ViscosityLaplace(0.01), 1e-5)
	assert.Equal(t, float32(0), k.ViscosityLaplace(0.5))
}

func TestKernelMonotone(t *testing.T) {
	k := InitSmoothing(0.02)
	last := k.Poly6(0)
	for r := float32(0.001); r < 0.02; r += 0.001 {
		w := k.Poly6(r * r)
		assert.Less(t, w, last, "poly6 must fall off with distance at r=%f", r)
		last = w
	}
}

func TestKernelCoefficients(t *testing.T) {
	k := InitSmoothing(0.02)
	mass := float32(0.5)

	assert.InEpsilon(t, 315.0/(64.0*math.Pi*math.Pow(0.02, 9)), k.DensityCoef(), 1e-4)
	assert.InEpsilon(t, -0.5*45.0/(math.Pi*math.Pow(0.02, 6)), k.PressureGradCoef(mass), 1e-4)
	assert.InEpsilon(t, 0.5*45.0/(math.Pi*math.Pow(0.02, 6)), k.ViscosityLaplaceCoef(mass), 1e-4)
	assert.Equal(t, -k.PressureGradCoef(mass), k.ViscosityLaplaceCoef(mass))
}

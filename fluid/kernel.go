package fluid

import "math"

//SmoothingKernel - Muller poly6, spiky gradient and viscosity laplacian over the smoothing
//radius. Powers of H are held in an array, H[n] = h^n.
type SmoothingKernel struct {
	H [10]float32
}

//InitSmoothing - precomputes the powers of the smoothing radius
func InitSmoothing(radius float32) SmoothingKernel {
	k := SmoothingKernel{}
	k.H[0] = 1
	for i := 1; i < len(k.H); i++ {
		k.H[i] = k.H[i-1] * radius
	}
	return k
}

//Radius - smoothing radius h
func (k *SmoothingKernel) Radius() float32 {
	return k.H[1]
}

//Poly6 - (h^2 - r^2)^3 for r^2 < h^2, zero outside the support
func (k *SmoothingKernel) Poly6(r2 float32) float32 {
	if r2 >= k.H[2] {
		return 0
	}
	x := k.H[2] - r2
	return x * x * x
}

//SpikyGrad - magnitude of the spiky gradient (h - r)^2
func (k *SmoothingKernel) SpikyGrad(r float32) float32 {
	if r >= k.H[1] {
		return 0
	}
	x := k.H[1] - r
	return x * x
}

//ViscosityLaplace - (h - r)
func (k *SmoothingKernel) ViscosityLaplace(r float32) float32 {
	if r >= k.H[1] {
		return 0
	}
	return k.H[1] - r
}

//DensityCoef - 315 / (64 pi h^9). Mass is applied per contribution.
func (k *SmoothingKernel) DensityCoef() float32 {
	return float32(315.0 / (64.0 * math.Pi * float64(k.H[9])))
}

//PressureGradCoef - mass * -45 / (pi h^6)
func (k *SmoothingKernel) PressureGradCoef(mass float32) float32 {
	return mass * float32(-45.0/(math.Pi*float64(k.H[6])))
}

//ViscosityLaplaceCoef - mass * 45 / (pi h^6)
func (k *SmoothingKernel) ViscosityLaplaceCoef(mass float32) float32 {
	return mass * float32(45.0/(math.Pi*float64(k.H[6])))
}

package vector

import (
	"fmt"
	"math"
)

//Vec32 is the float32 3-vector used for particle positions, velocities and bounds.
//Free functions are immutable, methods mutate the receiver and return it for chaining.
type Vec32 [3]float32

//Vec4 is a padded vector, laid out the way the constant block stores planes (xyz normal, w offset)
type Vec4 [4]float32

//NewVec32 - splats a scalar
func NewVec32(a float32) *Vec32 {
	return &Vec32{a, a, a}
}

func Abs(a Vec32) Vec32 {
	a[0] = float32(math.Abs(float64(a[0])))
	a[1] = float32(math.Abs(float64(a[1])))
	a[2] = float32(math.Abs(float64(a[2])))
	return a
}

func Dot(a Vec32, b Vec32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (v *Vec32) Dot(b Vec32) float32 {
	return v[0]*b[0] + v[1]*b[1] + v[2]*b[2]
}

//Scale - Scales vector by scalar a
func Scale(v Vec32, a float32) Vec32 {
	return Vec32{v[0] * a, v[1] * a, v[2] * a}
}

func (v *Vec32) Scale(a float32) *Vec32 {
	v[0] *= a
	v[1] *= a
	v[2] *= a
	return v
}

func (v *Vec32) Clear() *Vec32 {
	v[0] = 0
	v[1] = 0
	v[2] = 0
	return v
}

func Add(v Vec32, b Vec32) Vec32 {
	return Vec32{v[0] + b[0], v[1] + b[1], v[2] + b[2]}
}

func Sub(v Vec32, b Vec32) Vec32 {
	return Vec32{v[0] - b[0], v[1] - b[1], v[2] - b[2]}
}

//AddScaled - v + b*s, the axpy every integrator step is built from
func AddScaled(v Vec32, b Vec32, s float32) Vec32 {
	return Vec32{v[0] + b[0]*s, v[1] + b[1]*s, v[2] + b[2]*s}
}

func (v *Vec32) Add(b Vec32) *Vec32 {
	v[0] += b[0]
	v[1] += b[1]
	v[2] += b[2]
	return v
}

func (v *Vec32) Sub(b Vec32) *Vec32 {
	v[0] -= b[0]
	v[1] -= b[1]
	v[2] -= b[2]
	return v
}

//AddScaled - Mutating axpy
func (v *Vec32) AddScaled(b Vec32, s float32) *Vec32 {
	v[0] += b[0] * s
	v[1] += b[1] * s
	v[2] += b[2] * s
	return v
}

func Cross(a Vec32, b Vec32) Vec32 {
	return Vec32{a[1]*b[2] - b[1]*a[2],
		a[2]*b[0] - b[2]*a[0],
		a[0]*b[1] - b[0]*a[1]}
}

//Mul - component wise product
func Mul(a Vec32, b Vec32) Vec32 {
	return Vec32{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func Min(a Vec32, b Vec32) Vec32 {
	return Vec32{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

func Max(a Vec32, b Vec32) Vec32 {
	return Vec32{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

func LengthSq(a Vec32) float32 {
	return a[0]*a[0] + a[1]*a[1] + a[2]*a[2]
}

func Length(a Vec32) float32 {
	return float32(math.Sqrt(float64(LengthSq(a))))
}

func (v *Vec32) Length() float32 {
	return Length(*v)
}

//Normalize - returns the zero vector for zero input rather than NaNs
func Normalize(a Vec32) Vec32 {
	l := Length(a)
	if l == 0 {
		return Vec32{}
	}
	return Vec32{a[0] / l, a[1] / l, a[2] / l}
}

//Proj - projection of a onto arbitrary vector n
func Proj(a Vec32, n Vec32) Vec32 {
	vn := Normalize(n)
	return Scale(vn, Dot(a, vn))
}

//Tan - tangential component of a relative to norm
func Tan(a Vec32, norm Vec32) Vec32 {
	return Sub(a, Proj(a, norm))
}

func Reflect(n Vec32, v Vec32) Vec32 {
	b := Scale(n, (Dot(n, v)*2.0)/LengthSq(n))
	return Sub(v, b)
}

func VecEquals(v Vec32, a Vec32) bool {
	return v[0] == a[0] && v[1] == a[1] && v[2] == a[2]
}

//ApproxEquals - component wise comparison within eps
func ApproxEquals(v Vec32, a Vec32, eps float32) bool {
	for i := 0; i < 3; i++ {
		if float32(math.Abs(float64(v[i]-a[i]))) > eps {
			return false
		}
	}
	return true
}

func (v *Vec32) Distance(a Vec32) float32 {
	return Length(Sub(*v, a))
}

//IsFinite - false if any component is NaN or Inf
func IsFinite(v Vec32) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (a Vec32) String() string {
	return fmt.Sprintf("[ %f, %f, %f]", a[0], a[1], a[2])
}

func (a Vec4) String() string {
	return fmt.Sprintf("[ %f, %f, %f, %f]", a[0], a[1], a[2], a[3])
}

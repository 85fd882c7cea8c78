package gpu

import (
	"fmt"
	"math"

	"diesel.com/raysph/vector"
	"github.com/go-gl/mathgl/mgl32"
)

//AABB - one procedural primitive
type AABB struct {
	Min vector.Vec32
	Max vector.Vec32
}

//EmptyAABB - the identity for Union
func EmptyAABB() AABB {
	return AABB{
		Min: vector.Vec32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: vector.Vec32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

func (b AABB) Union(o AABB) AABB {
	return AABB{Min: vector.Min(b.Min, o.Min), Max: vector.Max(b.Max, o.Max)}
}

func (b AABB) Center() vector.Vec32 {
	return vector.Scale(vector.Add(b.Min, b.Max), 0.5)
}

func (b AABB) Contains(p vector.Vec32) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b AABB) surfaceArea() float32 {
	d := vector.Sub(b.Max, b.Min)
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[0]*d[2])
}

//overlapsSegment - the slab test for the segment origin + t*dir, t in [tmin, tmax].
//Zero direction components degrade to an interval containment test on that axis.
func (b AABB) overlapsSegment(o, dir, invDir vector.Vec32, tmin, tmax float32) bool {
	for a := 0; a < 3; a++ {
		if dir[a] == 0 {
			if o[a] < b.Min[a] || o[a] > b.Max[a] {
				return false
			}
			continue
		}
		t0 := (b.Min[a] - o[a]) * invDir[a]
		t1 := (b.Max[a] - o[a]) * invDir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = max(tmin, t0)
		tmax = min(tmax, t1)
		if tmin > tmax {
			return false
		}
	}
	return true
}

//GeometryFlags - how hits against a geometry are committed
type GeometryFlags uint8

const (
	GeometryNone GeometryFlags = 0
	//GeometryOpaque - commits every reported intersection without running any-hit
	GeometryOpaque GeometryFlags = 1 << 0
)

//BuildFlags - the build/trace trade-off
type BuildFlags uint8

const (
	BuildPreferFastTrace BuildFlags = 1 << iota
	BuildPreferFastBuild
)

//PrebuildInfo - sizes the result and scratch storage of a build
type PrebuildInfo struct {
	ResultNodes     int
	ScratchElements int
}

//BottomLevelAS - a BVH over procedural AABB primitives
type BottomLevelAS struct {
	Resource
	ctx      *Context
	geometry *Buffer[AABB]
	count    int
	geoFlags GeometryFlags
	flags    BuildFlags
	info     PrebuildInfo

	nodes []bvhNode
	prims []uint32

	built      bool
	builtFrame uint64
	builds     uint64
}

func NewBottomLevelAS(ctx *Context, name string) *BottomLevelAS {
	return &BottomLevelAS{Resource: ctx.newResource(name), ctx: ctx}
}

//SetAABBGeometry - describes the procedural geometry: count boxes read from buf
func (b *BottomLevelAS) SetAABBGeometry(buf *Buffer[AABB], count int, flags GeometryFlags) error {
	if buf == nil || count <= 0 || count > buf.Len() {
		return fmt.Errorf("%w: %d primitives over a geometry buffer", ErrAllocation, count)
	}
	b.geometry = buf
	b.count = count
	b.geoFlags = flags
	return nil
}

//Prebuild - sizes the structure for its geometry and allocates the result storage
func (b *BottomLevelAS) Prebuild(flags BuildFlags) (PrebuildInfo, error) {
	if err := b.ctx.RequireRayTracing(); err != nil {
		return PrebuildInfo{}, err
	}
	if b.geometry == nil {
		return PrebuildInfo{}, fmt.Errorf("%w: %s has no geometry", ErrNotPrebuilt, b.name)
	}
	b.flags = flags
	b.info = PrebuildInfo{
		ResultNodes:     2*b.count - 1,
		ScratchElements: b.count,
	}
	b.nodes = make([]bvhNode, 0, b.info.ResultNodes)
	b.prims = make([]uint32, b.count)
	return b.info, nil
}

func (b *BottomLevelAS) PrebuildInfo() PrebuildInfo { return b.info }

func (b *BottomLevelAS) Opaque() bool { return b.geoFlags&GeometryOpaque != 0 }

//Builds - counts completed builds; every build is a full rebuild
func (b *BottomLevelAS) Builds() uint64 { return b.builds }

//NodeCount - the size of the last built hierarchy
func (b *BottomLevelAS) NodeCount() int { return len(b.nodes) }

//Bounds - box around the last build
func (b *BottomLevelAS) Bounds() AABB {
	if len(b.nodes) == 0 {
		return EmptyAABB()
	}
	return b.nodes[0].bounds
}

//Instance - places a bottom level structure in the world
type Instance struct {
	Transform mgl32.Mat4
	BLAS      *BottomLevelAS
	ID        uint32
}

//TopLevelAS - holds the instances traced against
type TopLevelAS struct {
	Resource
	ctx       *Context
	capacity  int
	instances []Instance

	inverse []mgl32.Mat4
	bounds  []AABB

	built      bool
	builtFrame uint64
}

func NewTopLevelAS(ctx *Context, name string) *TopLevelAS {
	return &TopLevelAS{Resource: ctx.newResource(name), ctx: ctx}
}

//Prebuild - reserves room for numInstances instances
func (t *TopLevelAS) Prebuild(numInstances int) error {
	if err := t.ctx.RequireRayTracing(); err != nil {
		return err
	}
	if numInstances <= 0 {
		return fmt.Errorf("%w: top level with %d instances", ErrAllocation, numInstances)
	}
	t.capacity = numInstances
	t.instances = make([]Instance, 0, numInstances)
	t.inverse = make([]mgl32.Mat4, numInstances)
	t.bounds = make([]AABB, numInstances)
	return nil
}

//SetInstances - replaces the instance list; it must fit the prebuilt capacity
func (t *TopLevelAS) SetInstances(instances ...Instance) error {
	if t.capacity == 0 {
		return fmt.Errorf("%w: %s", ErrNotPrebuilt, t.name)
	}
	if len(instances) > t.capacity {
		return fmt.Errorf("%w: %d instances exceed capacity %d", ErrAllocation, len(instances), t.capacity)
	}
	for i, inst := range instances {
		if inst.BLAS == nil {
			return fmt.Errorf("instance %d of %s has no bottom level structure", i, t.name)
		}
	}
	t.instances = append(t.instances[:0], instances...)
	return nil
}

func (t *TopLevelAS) Instances() []Instance { return t.instances }

//BuiltFrame - reports the frame of the last build and whether any build happened
func (t *TopLevelAS) BuiltFrame() (uint64, bool) { return t.builtFrame, t.built }

//build - refreshes the instance bounds and world-to-object transforms
func (t *TopLevelAS) build() error {
	for i, inst := range t.instances {
		if !inst.BLAS.built || inst.BLAS.builtFrame != t.ctx.frame {
			return fmt.Errorf("%w: %s", ErrStaleAccelerationStructure, inst.BLAS.name)
		}
		t.inverse[i] = inst.Transform.Inv()
		t.bounds[i] = transformAABB(inst.Transform, inst.BLAS.Bounds())
	}
	t.built = true
	t.builtFrame = t.ctx.frame
	return nil
}

func transformAABB(m mgl32.Mat4, b AABB) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		w := m.Mul4x1(mgl32.Vec4{c[0], c[1], c[2], 1})
		p := vector.Vec32{w[0], w[1], w[2]}
		out.Min = vector.Min(out.Min, p)
		out.Max = vector.Max(out.Max, p)
	}
	return out
}

//DispatchRays - handed to the ray-gen shader of each invocation
type DispatchRays struct {
	Index int
	Width int
	tlas  *TopLevelAS
	prog  *RayTracingProgram
}

//TraceRay - walks the top level structure, running the program's hit group against
//every procedural primitive whose box overlaps the ray interval.
func (d DispatchRays) TraceRay(ray Ray, payload any) {
	var (
		committed bool
		closest   Hit
		tmax      = ray.TMax
	)

	hg := d.prog.Hit
	for i, inst := range d.tlas.instances {
		inv := invDir(ray.Direction)
		if !d.tlas.bounds[i].overlapsSegment(ray.Origin, ray.Direction, inv, ray.TMin, tmax) {
			continue
		}

		inverse := d.tlas.inverse[i]
		o := inverse.Mul4x1(mgl32.Vec4{ray.Origin[0], ray.Origin[1], ray.Origin[2], 1})
		r := inverse.Mul4x1(mgl32.Vec4{ray.Direction[0], ray.Direction[1], ray.Direction[2], 0})
		local := Ray{
			Origin:    vector.Vec32{o[0], o[1], o[2]},
			Direction: vector.Vec32{r[0], r[1], r[2]},
			TMin:      ray.TMin,
			TMax:      tmax,
		}

		blas := inst.BLAS
		stop := blas.traverse(local.Origin, local.Direction, ray.TMin, &tmax, func(prim int) bool {
			local.TMax = tmax
			hit := Hit{RayIndex: d.Index, Primitive: prim, Instance: i, Ray: local}
			t, ok := hg.Intersection(hit)
			if !ok || t < ray.TMin || t > tmax {
				return false
			}
			hit.T = t

			action := AcceptHit
			if !blas.Opaque() && hg.AnyHit != nil {
				action = hg.AnyHit(payload, hit)
			}
			if action == IgnoreHit {
				return false
			}
			committed = true
			closest = hit
			tmax = t
			return action == AcceptHitAndEndSearch
		})
		if stop {
			break
		}
	}

	if committed {
		if hg.ClosestHit != nil {
			hg.ClosestHit(payload, closest)
		}
		return
	}
	if d.prog.Miss != nil {
		d.prog.Miss(payload)
	}
}

func invDir(d vector.Vec32) vector.Vec32 {
	var inv vector.Vec32
	for a := 0; a < 3; a++ {
		if d[a] != 0 {
			inv[a] = 1 / d[a]
		}
	}
	return inv
}

package fluid

import (
	"io"
	"testing"

	"diesel.com/raysph/geometry"
	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testContext() *gpu.Context {
	return gpu.NewContext(gpu.SoftwareCaps(), testLogger())
}

func noGravity() *CameraState {
	return &CameraState{ViewProj: mgl32.Ident4()}
}

func step(t *testing.T, ctx *gpu.Context, sim *Simulation, dt float32, cam *CameraState) {
	t.Helper()
	require.NoError(t, sim.AdvanceFrame(ctx, dt, cam))
	require.NoError(t, ctx.Submit())
	ctx.MoveToNextFrame()
}

//reseed places particles by hand after Initialize; the next frame rebuilds the index
func reseed(t *testing.T, sim *Simulation, positions []vector.Vec32) {
	p := sim.Params()
	require.NoError(t, sim.store.Seed(positions, p.SmoothingRadius, p.AABBShrink))
}

//sparseConfig spreads the particles over the whole container, further apart than h
func sparseConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialSpacing = 0
	return cfg
}

func TestEndToEndGridFalls(t *testing.T) {
	ctx := testContext()
	cfg := sparseConfig()
	sim, err := Initialize(ctx, 64, geometry.UnitCube(), cfg)
	require.NoError(t, err)

	before := append([]Particle(nil), sim.Particles()...)
	step(t, ctx, sim, 0.005, &CameraState{ViewProj: mgl32.Ident4(), GravityDir: vector.Vec32{0, -1, 0}})

	for i, p := range sim.Particles() {
		assert.Less(t, p.Velocity[1], before[i].Velocity[1], "particle %d", i)
		assert.InDelta(t, -0.049, p.Velocity[1], 1e-6)
		assert.Less(t, p.Position[1], before[i].Position[1])
		assert.True(t, sim.Container().Contains(p.Position, 1e-4), "particle %d escaped to %v", i, p.Position)
	}

	stats := sim.Stats(1e-4)
	assert.Equal(t, 0, stats.Escaped)
	assert.Equal(t, 0, stats.NonFinite)
	assert.Equal(t, stats.MinDensity, stats.MaxDensity)
}

func TestIsolatedParticle(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 64, geometry.UnitCube(), sparseConfig())
	require.NoError(t, err)
	step(t, ctx, sim, 0.005, noGravity())

	p := sim.Params()
	k := InitSmoothing(p.SmoothingRadius)
	self := p.Mass * k.Poly6(0) * p.DensityCoef
	require.NotZero(t, self)

	for i := range sim.Particles() {
		assert.Equal(t, self, sim.Densities()[i], "particle %d", i)
		assert.Equal(t, vector.Vec32{}, sim.Accelerations()[i], "particle %d", i)
	}
}

func TestAtRestPressureVanishes(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 2, geometry.UnitCube(), DefaultConfig())
	require.NoError(t, err)
	positions := []vector.Vec32{{0.5, 0.5, 0.5}, {0.51, 0.5, 0.5}}
	reseed(t, sim, positions)

	//measure the pair density, then declare it the rest density
	cl := ctx.CommandList()
	require.NoError(t, sim.index.Rebuild(cl, sim.store.AABBs))
	sim.recordDensity(cl)
	require.NoError(t, ctx.Submit())
	ctx.MoveToNextFrame()

	d := sim.Densities()
	require.Equal(t, d[0], d[1], "pair density depends on distance only")
	sim.UpdateParameters(func(p *SimulationParameters) { p.RestDensity = d[0] })
	assert.Equal(t, uint64(2), sim.Params().Version)

	step(t, ctx, sim, 0.005, noGravity())

	for i, p := range sim.Particles() {
		assert.Equal(t, vector.Vec32{}, sim.Accelerations()[i])
		assert.Equal(t, positions[i], p.Position)
		assert.Equal(t, vector.Vec32{}, p.Velocity)
	}
}

func TestPairForcesOpposeCompression(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 2, geometry.UnitCube(), DefaultConfig())
	require.NoError(t, err)
	reseed(t, sim, []vector.Vec32{{0.5, 0.5, 0.5}, {0.51, 0.5, 0.5}})

	//rest density far below the pair density: the particles push apart
	sim.UpdateParameters(func(p *SimulationParameters) { p.RestDensity = 1 })
	step(t, ctx, sim, 0.005, noGravity())

	acc := sim.Accelerations()
	assert.Less(t, acc[0][0], float32(0))
	assert.Greater(t, acc[1][0], float32(0))
	assert.InDelta(t, -acc[0][0], acc[1][0], float64(acc[1][0])*1e-5)
}

func TestBoundaryPenaltyDamps(t *testing.T) {
	ctx := testContext()
	cfg := DefaultConfig()
	sim, err := Initialize(ctx, 1, geometry.UnitCube(), cfg)
	require.NoError(t, err)

	reseed(t, sim, []vector.Vec32{{-0.01, 0.5, 0.5}})
	sim.store.Particles.Data()[0].Velocity = vector.Vec32{-1, 0, 0}

	step(t, ctx, sim, 0.005, noGravity())

	v := sim.Particles()[0].Velocity
	//penetration 0.01 against the left wall, normal +x
	want := -1 + 0.005*(cfg.WallStiffness*0.01+cfg.WallDamping*1)
	assert.InDelta(t, want, v[0], 1e-5)
	assert.Greater(t, v[0], float32(-1), "wall must oppose penetration")
	assert.Equal(t, float32(0), v[1])
}

func TestBoundaryIgnoresSeparatingVelocity(t *testing.T) {
	ctx := testContext()
	cfg := DefaultConfig()
	sim, err := Initialize(ctx, 1, geometry.UnitCube(), cfg)
	require.NoError(t, err)

	reseed(t, sim, []vector.Vec32{{0.5, -0.01, 0.5}})
	sim.store.Particles.Data()[0].Velocity = vector.Vec32{0, 1, 0}
	step(t, ctx, sim, 0.005, noGravity())

	//only the spring acts, damping is one sided
	want := 1 + 0.005*cfg.WallStiffness*0.01
	assert.InDelta(t, want, sim.Particles()[0].Velocity[1], 1e-5)
}

func TestAABBFollowsIntegration(t *testing.T) {
	for _, shrink := range []float32{1, 0.5} {
		ctx := testContext()
		cfg := DefaultConfig()
		cfg.AABBShrink = shrink
		sim, err := Initialize(ctx, 27, geometry.UnitCube(), cfg)
		require.NoError(t, err)
		step(t, ctx, sim, 0.005, &CameraState{ViewProj: mgl32.Ident4(), GravityDir: vector.Vec32{1, -1, 0}})

		h := cfg.SmoothingRadius
		for i, p := range sim.Particles() {
			box := sim.AABBs()[i]
			assert.Equal(t, ComputeAABB(p.Position, h, shrink), box)
			assert.InDelta(t, p.Position[0]-h, box.Min[0], 1e-6)
			assert.InDelta(t, p.Position[1]-h*shrink, box.Min[1], 1e-6)
			assert.InDelta(t, p.Position[2]+h, box.Max[2], 1e-6)
		}
	}
}

func TestTracedPassesMatchReference(t *testing.T) {
	for _, tc := range []struct {
		name   string
		shrink float32
		flags  gpu.BuildFlags
	}{
		{"point query fast build", 1, gpu.BuildPreferFastBuild},
		{"point query fast trace", 1, gpu.BuildPreferFastTrace},
		{"shrunk boxes", 0.4, gpu.BuildPreferFastTrace},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := testContext()
			cfg := DefaultConfig()
			cfg.AABBShrink = tc.shrink
			cfg.BuildFlags = tc.flags
			cfg.InitialSpacing = 0.011
			sim, err := Initialize(ctx, 343, geometry.UnitCube(), cfg)
			require.NoError(t, err)

			//give the block some shear so viscosity contributes
			for i := range sim.store.Particles.Data() {
				p := &sim.store.Particles.Data()[i]
				p.Velocity = vector.Vec32{p.Position[2] * 10, 0, 0}
			}

			snapshot := append([]Particle(nil), sim.Particles()...)
			step(t, ctx, sim, 0.001, noGravity())

			params := sim.Params()
			rep := ValidateFrame(&params, snapshot, sim.Densities(), sim.Accelerations(), 1)
			assert.Equal(t, 343, rep.Checked)
			assert.Less(t, rep.MaxDensityError, float32(1e-5))
			assert.Less(t, rep.MaxAccelError, float32(1e-4))

			//edge particles see fewer neighbors than interior ones
			assert.Greater(t, sim.Stats(0).MaxDensity, sim.Stats(0).MinDensity)
		})
	}
}

func TestIndexRebuiltEveryFrame(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 64, geometry.UnitCube(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sim.SpatialIndex().Builds())

	for i := 0; i < 4; i++ {
		step(t, ctx, sim, 0.005, nil)
	}
	assert.Equal(t, uint64(5), sim.SpatialIndex().Builds())
	built, ok := sim.SpatialIndex().TLAS().BuiltFrame()
	assert.True(t, ok)
	assert.Equal(t, uint64(3), built)
}

func TestQueryWithoutRebuildFails(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 8, geometry.UnitCube(), DefaultConfig())
	require.NoError(t, err)
	ctx.MoveToNextFrame()

	sim.recordDensity(ctx.CommandList())
	assert.ErrorIs(t, ctx.Submit(), gpu.ErrStaleAccelerationStructure)
}

func TestInitializeFailures(t *testing.T) {
	caps := gpu.SoftwareCaps()
	caps.RayTracing = false
	_, err := Initialize(gpu.NewContext(caps, testLogger()), 64, geometry.UnitCube(), DefaultConfig())
	assert.ErrorIs(t, err, gpu.ErrRayTracingUnsupported)

	caps = gpu.SoftwareCaps()
	caps.MaxBufferElements = 32
	_, err = Initialize(gpu.NewContext(caps, testLogger()), 64, geometry.UnitCube(), DefaultConfig())
	assert.ErrorIs(t, err, gpu.ErrAllocation)

	_, err = Initialize(testContext(), 0, geometry.UnitCube(), DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.InitialSpacing = 0.5
	_, err = Initialize(testContext(), 64, geometry.UnitCube(), cfg)
	assert.Error(t, err)
}

func TestFrameSlots(t *testing.T) {
	ctx := testContext()
	cfg := DefaultConfig()
	cfg.TimeStep = 0.002
	sim, err := Initialize(ctx, 8, geometry.UnitCube(), cfg)
	require.NoError(t, err)

	for slot := 0; slot < gpu.FrameCount; slot++ {
		f := sim.Frame(slot)
		assert.Equal(t, vector.Vec32{0, -9.8, 0}, f.Gravity)
		assert.Equal(t, mgl32.Ident4(), f.ViewProj)
	}

	vp := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 10)
	sim.UpdateCamera(1, vp, vector.Vec32{0, 0, -2})
	assert.Equal(t, vp, sim.Frame(1).ViewProj)
	assert.Equal(t, vector.Vec32{0, 0, -9.8}, sim.Frame(1).Gravity)
	assert.Equal(t, vector.Vec32{0, -9.8, 0}, sim.Frame(2).Gravity, "other slots untouched")

	sim.UpdateCamera(2, vp, vector.Vec32{})
	assert.Equal(t, vector.Vec32{}, sim.Frame(2).Gravity)

	//requested steps are clamped per slot
	assert.Equal(t, 0, sim.FrameSlot(ctx))
	require.NoError(t, sim.AdvanceFrame(ctx, 1, nil))
	require.NoError(t, ctx.Submit())
	assert.Equal(t, float32(MaxTimeStep), sim.Frame(0).TimeStep)
	ctx.MoveToNextFrame()
	assert.Equal(t, 1, sim.FrameSlot(ctx))

	require.NoError(t, sim.AdvanceFrame(ctx, 0, nil))
	require.NoError(t, ctx.Submit())
	assert.Equal(t, float32(0.002), sim.Frame(1).TimeStep)
}

func TestDefaultBlockStaysContained(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}
	ctx := testContext()
	cfg := DefaultConfig()
	box, err := geometry.NewBox(0.2, 0.1, 0.2, vector.Vec32{0.1, 0.05, 0.1})
	require.NoError(t, err)
	//three layers of 20 x 20
	sim, err := Initialize(ctx, 1200, box, cfg)
	require.NoError(t, err)

	h := cfg.SmoothingRadius
	cam := &CameraState{ViewProj: mgl32.Ident4(), GravityDir: vector.Vec32{0, -1, 0}}
	for frame := 1; frame <= 300; frame++ {
		step(t, ctx, sim, cfg.TimeStep, cam)
		if frame%25 != 0 {
			continue
		}
		st := sim.Stats(h)
		require.Equal(t, 0, st.NonFinite, "frame %d", frame)
		require.Equal(t, 0, st.Escaped, "frame %d", frame)
		require.Less(t, st.MaxSpeed, float32(1), "frame %d", frame)
		require.Greater(t, st.MinDensity, float32(0), "frame %d", frame)
	}

	//the block settles onto the floor instead of drifting
	st := sim.Stats(h)
	assert.Less(t, st.MaxSpeed, float32(0.5))
	for i, p := range sim.Particles() {
		assert.Less(t, p.Position[1], float32(0.05), "particle %d", i)
	}
}

type countingVisualizer struct {
	calls int
	count int
	frame FrameConstants
}

func (v *countingVisualizer) DrawParticles(particles []Particle, frame *FrameConstants) error {
	v.calls++
	v.count = len(particles)
	v.frame = *frame
	return nil
}

func TestVisualizationPass(t *testing.T) {
	ctx := testContext()
	sim, err := Initialize(ctx, 8, geometry.UnitCube(), DefaultConfig())
	require.NoError(t, err)

	vis := &countingVisualizer{}
	sim.SetVisualizer(vis)
	vp := mgl32.Translate3D(1, 2, 3)
	step(t, ctx, sim, 0.005, &CameraState{ViewProj: vp, GravityDir: vector.Vec32{0, -1, 0}})

	assert.Equal(t, 1, vis.calls)
	assert.Equal(t, 8, vis.count)
	assert.Equal(t, vp, vis.frame.ViewProj)

	sim.SetVisualizer(nil)
	step(t, ctx, sim, 0.005, nil)
	assert.Equal(t, 1, vis.calls)
}

func BenchmarkAdvanceFrame(b *testing.B) {
	ctx := gpu.NewContext(gpu.SoftwareCaps(), testLogger())
	cfg := DefaultConfig()
	cfg.InitialSpacing = 0.01
	sim, err := Initialize(ctx, 4096, geometry.UnitCube(), cfg)
	if err != nil {
		b.Fatal(err)
	}
	cam := &CameraState{ViewProj: mgl32.Ident4(), GravityDir: vector.Vec32{0, -1, 0}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sim.AdvanceFrame(ctx, 0.005, cam); err != nil {
			b.Fatal(err)
		}
		if err := ctx.Submit(); err != nil {
			b.Fatal(err)
		}
		ctx.MoveToNextFrame()
	}
}

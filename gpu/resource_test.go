package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	caps := SoftwareCaps()
	caps.MaxBufferElements = 16
	ctx := testContext(caps)

	_, err := NewBuffer[float32](ctx, "empty", 0)
	assert.ErrorIs(t, err, ErrAllocation)
	_, err = NewBuffer[float32](ctx, "huge", 17)
	assert.ErrorIs(t, err, ErrAllocation)

	buf, err := NewBuffer[AABB](ctx, "aabbs", 16)
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Len())
	assert.Equal(t, 24, buf.ElementSize())
	assert.Equal(t, "aabbs", buf.Name())

	assert.Error(t, buf.Upload(make([]AABB, 17)))
	assert.NoError(t, buf.Upload(make([]AABB, 3)))
}

func TestRing(t *testing.T) {
	ctx := testContext(SoftwareCaps())
	_, err := NewRing[int](ctx, "bad", 0)
	assert.ErrorIs(t, err, ErrAllocation)

	ring, err := NewRing[int](ctx, "frames", FrameCount)
	require.NoError(t, err)
	assert.Equal(t, FrameCount, ring.Depth())

	for frame := uint64(0); frame < 7; frame++ {
		*ring.Slot(ring.SlotFor(frame)) = int(frame)
	}
	//slots hold the latest frame that owned them
	assert.Equal(t, 6, *ring.Slot(0))
	assert.Equal(t, 4, *ring.Slot(1))
	assert.Equal(t, 5, *ring.Slot(2))

	assert.Panics(t, func() { ring.Slot(FrameCount) })
}

func TestShaderTable(t *testing.T) {
	var table ShaderTable
	assert.ErrorIs(t, table.Validate(), ErrShaderTable)

	compute := &ComputeProgram{ProgramName: "integrate", GroupSize: 256, Main: func(ThreadID) {}}
	rt := &RayTracingProgram{
		ProgramName: "density",
		RayGen:      func(DispatchRays) {},
		Hit:         HitGroup{Intersection: func(Hit) (float32, bool) { return 0, true }},
	}

	//wrong pipeline for the kernel
	assert.ErrorIs(t, table.Bind(KernelDensity, compute), ErrShaderTable)
	assert.ErrorIs(t, table.Bind(KernelIntegrate, nil), ErrShaderTable)
	assert.ErrorIs(t, table.Bind(NumKernels, compute), ErrShaderTable)

	require.NoError(t, table.Bind(KernelDensity, rt))
	require.NoError(t, table.Bind(KernelForce, rt))
	require.NoError(t, table.Bind(KernelIntegrate, compute))
	assert.ErrorIs(t, table.Validate(), ErrShaderTable, "visualize still unbound")

	require.NoError(t, table.Bind(KernelVisualize, &GraphicsProgram{ProgramName: "points", Draw: func() error { return nil }}))
	assert.NoError(t, table.Validate())

	assert.Same(t, compute, table.Compute(KernelIntegrate))
	assert.Same(t, rt, table.RayTracing(KernelForce))
	assert.Nil(t, table.Compute(KernelDensity))
	assert.NotNil(t, table.Graphics(KernelVisualize))

	//malformed compute program
	table[KernelIntegrate] = &ComputeProgram{ProgramName: "broken"}
	assert.ErrorIs(t, table.Validate(), ErrShaderTable)
}

func TestKernelNames(t *testing.T) {
	assert.Equal(t, "density", KernelDensity.String())
	assert.Equal(t, StageRayTracing, KernelForce.Stage())
	assert.Equal(t, StageCompute, KernelIntegrate.Stage())
	assert.Equal(t, StageGraphics, KernelVisualize.Stage())
	assert.Equal(t, "compute", StageCompute.String())
}

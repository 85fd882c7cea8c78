package fluid

import (
	"testing"

	vector "diesel.com/raysph/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAABB(t *testing.T) {
	pos := vector.Vec32{0.5, 0.25, 0.75}
	box := ComputeAABB(pos, 0.02, 1)
	assert.Equal(t, vector.Sub(pos, vector.Vec32{0.02, 0.02, 0.02}), box.Min)
	assert.Equal(t, vector.Add(pos, vector.Vec32{0.02, 0.02, 0.02}), box.Max)

	shrunk := ComputeAABB(pos, 0.02, 0.5)
	assert.Equal(t, pos[0]-0.02, shrunk.Min[0])
	assert.Equal(t, pos[1]-0.01, shrunk.Min[1])
	assert.Equal(t, pos[1]+0.01, shrunk.Max[1])
	assert.Equal(t, pos[2]+0.02, shrunk.Max[2])
}

func TestNeighborProbe(t *testing.T) {
	pos := vector.Vec32{0.5, 0.5, 0.5}

	point := NeighborProbe(pos, 0.02, 1)
	assert.Equal(t, pos, point.Origin)
	assert.Equal(t, vector.Vec32{}, point.Direction)
	assert.Equal(t, float32(0), point.TMax)

	seg := NeighborProbe(pos, 0.02, 0.5)
	assert.InDelta(t, 0.49, seg.Origin[1], 1e-6)
	assert.Equal(t, vector.Vec32{0, 1, 0}, seg.Direction)
	assert.InDelta(t, 0.02, seg.TMax, 1e-6)

	//a neighbor at |dy| = 0.9h is still reached through the shrunk box
	other := ComputeAABB(vector.Vec32{0.5, 0.518, 0.5}, 0.02, 0.5)
	top := seg.Origin[1] + seg.TMax
	assert.GreaterOrEqual(t, top, other.Min[1])
}

func TestParticleStore(t *testing.T) {
	ctx := testContext()
	store, err := NewParticleStore(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, store.Particles.Len())
	assert.Equal(t, 4, store.AABBs.Len())
	assert.Equal(t, 4, store.Densities.Len())
	assert.Equal(t, 4, store.Accelerations.Len())

	assert.Error(t, store.Seed(make([]vector.Vec32, 3), 0.02, 1))

	positions := []vector.Vec32{{0.1, 0.1, 0.1}, {0.2, 0.2, 0.2}, {0.3, 0.3, 0.3}, {0.4, 0.4, 0.4}}
	store.Particles.Data()[2].Velocity = vector.Vec32{1, 1, 1}
	require.NoError(t, store.Seed(positions, 0.02, 1))
	for i, p := range store.Particles.Data() {
		assert.Equal(t, positions[i], p.Position)
		assert.Equal(t, vector.Vec32{}, p.Velocity)
		assert.Equal(t, ComputeAABB(positions[i], 0.02, 1), store.AABBs.Data()[i])
	}

	_, err = NewParticleStore(ctx, 0)
	assert.Error(t, err)
}

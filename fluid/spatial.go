package fluid

import (
	"fmt"

	"diesel.com/raysph/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

//SpatialIndex - two level acceleration structure used for neighbor lookup. The bottom
//level is built over the particle boxes as non opaque procedural geometry so every
//candidate goes through the any-hit gather; the top level holds a single identity
//instance of it. Both are rebuilt from scratch every frame.
type SpatialIndex struct {
	log     logrus.FieldLogger
	aabbs   *gpu.Buffer[ParticleAABB]
	blas    *gpu.BottomLevelAS
	tlas    *gpu.TopLevelAS
	scratch *gpu.Buffer[uint32]
	info    gpu.PrebuildInfo
	//count - primitives the structures were prebuilt for
	count int
}

//NewSpatialIndex - prebuilds both levels for count particle boxes and sizes the scratch
//memory from the prebuild query. Fails on devices without ray tracing.
func NewSpatialIndex(ctx *gpu.Context, aabbs *gpu.Buffer[ParticleAABB], count int, flags gpu.BuildFlags) (*SpatialIndex, error) {
	if err := ctx.RequireRayTracing(); err != nil {
		return nil, err
	}

	s := &SpatialIndex{log: ctx.Logger().WithField("pass", "spatial"), aabbs: aabbs, count: count}
	s.blas = gpu.NewBottomLevelAS(ctx, "particle blas")
	if err := s.blas.SetAABBGeometry(aabbs, count, gpu.GeometryNone); err != nil {
		return nil, fmt.Errorf("spatial index: %w", err)
	}
	info, err := s.blas.Prebuild(flags)
	if err != nil {
		return nil, fmt.Errorf("spatial index: %w", err)
	}
	s.info = info

	if s.scratch, err = gpu.NewBuffer[uint32](ctx, "blas scratch", info.ScratchElements); err != nil {
		return nil, fmt.Errorf("spatial index scratch: %w", err)
	}

	s.tlas = gpu.NewTopLevelAS(ctx, "particle tlas")
	if err := s.tlas.Prebuild(1); err != nil {
		return nil, fmt.Errorf("spatial index: %w", err)
	}
	if err := s.tlas.SetInstances(gpu.Instance{Transform: mgl32.Ident4(), BLAS: s.blas}); err != nil {
		return nil, fmt.Errorf("spatial index: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"primitives":   count,
		"resultNodes":  info.ResultNodes,
		"scratchElems": info.ScratchElements,
	}).Debug("acceleration structures prebuilt")
	return s, nil
}

//Rebuild - records a full rebuild of the bottom level from aabbs followed by the top
//level. Must be recorded after the previous Integration pass and before any query pass.
//A replacement aabbs buffer must hold the prebuilt primitive count.
func (s *SpatialIndex) Rebuild(cl *gpu.CommandList, aabbs *gpu.Buffer[ParticleAABB]) error {
	if aabbs != s.aabbs {
		if aabbs.Len() != s.count {
			return fmt.Errorf("spatial index rebuild: %d boxes for %d prebuilt primitives: %w",
				aabbs.Len(), s.count, gpu.ErrAllocation)
		}
		if err := s.blas.SetAABBGeometry(aabbs, s.count, gpu.GeometryNone); err != nil {
			return fmt.Errorf("spatial index rebuild: %w", err)
		}
		s.aabbs = aabbs
	}
	cl.BuildBLAS(s.blas, s.scratch)
	cl.Barrier(s.blas, s.scratch)
	cl.BuildTLAS(s.tlas)
	cl.Barrier(s.tlas)
	return cl.Err()
}

//TLAS - the structure query passes trace against
func (s *SpatialIndex) TLAS() *gpu.TopLevelAS {
	return s.tlas
}

//Builds - completed bottom level builds
func (s *SpatialIndex) Builds() uint64 {
	return s.blas.Builds()
}

//Count - primitives in the bottom level
func (s *SpatialIndex) Count() int {
	return s.count
}

func (s *SpatialIndex) PrebuildInfo() gpu.PrebuildInfo {
	return s.info
}

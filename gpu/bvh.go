package gpu

import (
	"fmt"
	"sort"
	"time"

	"diesel.com/raysph/vector"
	"github.com/sirupsen/logrus"
)

const (
	//leaf sizes per build preference
	fastBuildLeafItems = 4
	fastTraceLeafItems = 2
	maxLeafItems       = 8

	sahBins = 12
)

//bvhNode - stored depth first: the first child directly follows its parent and
//secondChild holds the index of the other one.
type bvhNode struct {
	bounds      AABB
	leaf        bool
	first       uint32
	count       uint32
	secondChild uint32
}

type bvhBuilder struct {
	boxes   []AABB
	indices []uint32
	nodes   []bvhNode
	leaf    int
	sah     bool
	depth   int
}

//build - rebuilds the hierarchy from the current contents of the geometry buffer,
//using scratch as the working primitive permutation.
func (b *BottomLevelAS) build(scratch *Buffer[uint32]) error {
	if b.info.ResultNodes == 0 {
		return fmt.Errorf("%w: %s", ErrNotPrebuilt, b.name)
	}
	if scratch.Len() < b.info.ScratchElements {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrScratchTooSmall, b.name,
			b.info.ScratchElements, scratch.Len())
	}

	start := time.Now()
	indices := scratch.Data()[:b.count]
	for i := range indices {
		indices[i] = uint32(i)
	}

	builder := bvhBuilder{
		boxes:   b.geometry.Data()[:b.count],
		indices: indices,
		nodes:   b.nodes[:0],
		leaf:    fastTraceLeafItems,
		sah:     b.flags&BuildPreferFastBuild == 0,
	}
	if !builder.sah {
		builder.leaf = fastBuildLeafItems
	}
	builder.partition(0, len(indices), 0)

	b.nodes = builder.nodes
	copy(b.prims, indices)
	b.built = true
	b.builtFrame = b.ctx.frame
	b.builds++

	b.ctx.log.WithFields(logrus.Fields{
		"blas":     b.name,
		"prims":    b.count,
		"nodes":    len(b.nodes),
		"maxDepth": builder.depth,
		"elapsed":  time.Since(start),
	}).Debug("bottom level rebuilt")
	return nil
}

//partition - builds the subtree over indices[start:end] and returns its node index
func (bb *bvhBuilder) partition(start, end, depth int) uint32 {
	if depth > bb.depth {
		bb.depth = depth
	}

	bounds := EmptyAABB()
	centroids := EmptyAABB()
	for _, idx := range bb.indices[start:end] {
		box := bb.boxes[idx]
		bounds = bounds.Union(box)
		c := box.Center()
		centroids = centroids.Union(AABB{Min: c, Max: c})
	}

	nodeIndex := uint32(len(bb.nodes))
	bb.nodes = append(bb.nodes, bvhNode{bounds: bounds})

	count := end - start
	if count <= bb.leaf {
		bb.makeLeaf(nodeIndex, start, count)
		return nodeIndex
	}

	extent := vector.Sub(centroids.Max, centroids.Min)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}

	//all centroids coincide, nothing to split on
	if extent[axis] <= 0 {
		if count <= maxLeafItems {
			bb.makeLeaf(nodeIndex, start, count)
			return nodeIndex
		}
		bb.splitMedian(start, end, axis)
		return bb.finish(nodeIndex, start, start+count/2, end, depth)
	}

	mid := -1
	if bb.sah {
		mid = bb.splitSAH(start, end, bounds, centroids)
		if mid < 0 && count <= maxLeafItems {
			bb.makeLeaf(nodeIndex, start, count)
			return nodeIndex
		}
	} else {
		split := centroids.Min[axis] + extent[axis]*0.5
		mid = bb.partitionAt(start, end, axis, split)
	}

	if mid <= start || mid >= end {
		bb.splitMedian(start, end, axis)
		mid = start + count/2
	}
	return bb.finish(nodeIndex, start, mid, end, depth)
}

func (bb *bvhBuilder) finish(nodeIndex uint32, start, mid, end, depth int) uint32 {
	bb.partition(start, mid, depth+1)
	second := bb.partition(mid, end, depth+1)
	bb.nodes[nodeIndex].secondChild = second
	return nodeIndex
}

func (bb *bvhBuilder) makeLeaf(nodeIndex uint32, start, count int) {
	n := &bb.nodes[nodeIndex]
	n.leaf = true
	n.first = uint32(start)
	n.count = uint32(count)
}

//partitionAt - moves primitives with centroid below split to the front and returns
//the first index of the upper half.
func (bb *bvhBuilder) partitionAt(start, end, axis int, split float32) int {
	i, j := start, end-1
	for i <= j {
		if bb.boxes[bb.indices[i]].Center()[axis] < split {
			i++
		} else {
			bb.indices[i], bb.indices[j] = bb.indices[j], bb.indices[i]
			j--
		}
	}
	return i
}

func (bb *bvhBuilder) splitMedian(start, end, axis int) {
	sub := bb.indices[start:end]
	sort.Slice(sub, func(a, b int) bool {
		return bb.boxes[sub[a]].Center()[axis] < bb.boxes[sub[b]].Center()[axis]
	})
}

//splitSAH - bins centroids along every axis and applies the cheapest split found, or
//returns -1 when no split beats keeping the node as a leaf.
func (bb *bvhBuilder) splitSAH(start, end int, bounds, centroids AABB) int {
	type bin struct {
		bounds AABB
		count  int
	}

	count := end - start
	bestCost := float32(count) * bounds.surfaceArea()
	bestAxis, bestSplit := -1, float32(0)

	for axis := 0; axis < 3; axis++ {
		lo := centroids.Min[axis]
		ext := centroids.Max[axis] - lo
		if ext <= 0 {
			continue
		}

		var bins [sahBins]bin
		for i := range bins {
			bins[i].bounds = EmptyAABB()
		}
		scale := float32(sahBins) / ext
		for _, idx := range bb.indices[start:end] {
			box := bb.boxes[idx]
			k := int((box.Center()[axis] - lo) * scale)
			if k >= sahBins {
				k = sahBins - 1
			}
			bins[k].count++
			bins[k].bounds = bins[k].bounds.Union(box)
		}

		for split := 1; split < sahBins; split++ {
			left, right := EmptyAABB(), EmptyAABB()
			nl, nr := 0, 0
			for k := 0; k < split; k++ {
				left = left.Union(bins[k].bounds)
				nl += bins[k].count
			}
			for k := split; k < sahBins; k++ {
				right = right.Union(bins[k].bounds)
				nr += bins[k].count
			}
			if nl == 0 || nr == 0 {
				continue
			}
			cost := 0.125*bounds.surfaceArea() +
				float32(nl)*left.surfaceArea() + float32(nr)*right.surfaceArea()
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = lo + float32(split)/scale
			}
		}
	}

	if bestAxis < 0 {
		return -1
	}
	return bb.partitionAt(start, end, bestAxis, bestSplit)
}

//traverse - visits every primitive whose box overlaps the segment. visit returns true
//to end the search; *tmax may shrink as hits are committed.
func (b *BottomLevelAS) traverse(o, dir vector.Vec32, tmin float32, tmax *float32, visit func(prim int) bool) bool {
	if len(b.nodes) == 0 {
		return false
	}
	inv := invDir(dir)
	boxes := b.geometry.Data()

	var stackBuf [64]uint32
	stack := append(stackBuf[:0], 0)
	for len(stack) > 0 {
		ptr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[ptr]

		if !node.bounds.overlapsSegment(o, dir, inv, tmin, *tmax) {
			continue
		}
		if node.leaf {
			for _, prim := range b.prims[node.first : node.first+node.count] {
				if !boxes[prim].overlapsSegment(o, dir, inv, tmin, *tmax) {
					continue
				}
				if visit(int(prim)) {
					return true
				}
			}
			continue
		}
		stack = append(stack, node.secondChild, ptr+1)
	}
	return false
}

package utils

import (
	"fmt"
	"math"
	"unsafe"

	G "diesel.com/raysph/geometry"
	V "diesel.com/raysph/vector"
)

//Application Specific Positional Data Transfer, Vec32 Array, Unsafe Access
//This is intended for a graphics memory buffer but may be streamed to any pointer from a go slice
func TransferPositionData(graphicsPtr unsafe.Pointer, posArray []V.Vec32, count int) error {
	if count <= 0 || count > len(posArray) {
		return fmt.Errorf("size of positional data buffer transfer out of bounds: %d", count)
	}
	if graphicsPtr == nil {
		return fmt.Errorf("no valid pointer to graphics memory location")
	}

	dst := unsafe.Slice((*V.Vec32)(graphicsPtr), count)
	copy(dst, posArray[:count])
	return nil
}

//PackPositions - gathers the position of every element of src into dst, which is grown
//as needed and returned. Used to stage particle positions for a vertex upload.
func PackPositions[T any](dst []V.Vec32, src []T, position func(*T) V.Vec32) []V.Vec32 {
	if cap(dst) < len(src) {
		dst = make([]V.Vec32, len(src))
	}
	dst = dst[:len(src)]
	for i := range src {
		dst[i] = position(&src[i])
	}
	return dst
}

//LatticePositions - count particles on a cubic lattice inside the box.
//With spacing zero the lattice fills the whole box evenly, one particle at the center of
//each cell of an n x n x n grid. A positive spacing stacks a block from the lower corner,
//filling X then Z before moving up in Y, and fails if the box cannot hold it.
func LatticePositions(box G.Box, count int, spacing float32) ([]V.Vec32, error) {
	if count <= 0 {
		return nil, fmt.Errorf("lattice of %d particles", count)
	}
	lo := box.Min()
	extent := [3]float32{box.Width, box.Height, box.Depth}

	var cells [3]int
	var step [3]float32
	if spacing <= 0 {
		n := int(math.Ceil(math.Cbrt(float64(count))))
		//guard against cbrt rounding just above an exact cube
		for n > 1 && (n-1)*(n-1)*(n-1) >= count {
			n--
		}
		for a := 0; a < 3; a++ {
			cells[a] = n
			step[a] = extent[a] / float32(n)
		}
	} else {
		for a := 0; a < 3; a++ {
			cells[a] = int(extent[a] / spacing)
			step[a] = spacing
		}
		if cells[0] == 0 || cells[2] == 0 || cells[0]*cells[1]*cells[2] < count {
			return nil, fmt.Errorf("%d particles at spacing %g do not fit in a %g x %g x %g box",
				count, spacing, box.Width, box.Height, box.Depth)
		}
	}

	positions := make([]V.Vec32, 0, count)
	for y := 0; y < cells[1] && len(positions) < count; y++ {
		for z := 0; z < cells[2] && len(positions) < count; z++ {
			for x := 0; x < cells[0] && len(positions) < count; x++ {
				positions = append(positions, V.Vec32{
					lo[0] + (float32(x)+0.5)*step[0],
					lo[1] + (float32(y)+0.5)*step[1],
					lo[2] + (float32(z)+0.5)*step[2],
				})
			}
		}
	}
	return positions, nil
}

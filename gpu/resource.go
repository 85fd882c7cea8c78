package gpu

import (
	"fmt"
	"unsafe"
)

//Resource - the identity the command list tracks hazards against
type Resource struct {
	name string
	id   int
}

func (r *Resource) Name() string { return r.name }

func (r *Resource) resource() *Resource { return r }

//Bindable - anything that can be bound to a dispatch
type Bindable interface {
	resource() *Resource
}

//Buffer - a structured buffer of fixed length
type Buffer[T any] struct {
	Resource
	data []T
}

//NewBuffer - allocates count zeroed elements
func NewBuffer[T any](ctx *Context, name string, count int) (*Buffer[T], error) {
	if count <= 0 || count > ctx.caps.MaxBufferElements {
		return nil, fmt.Errorf("%w: buffer %q with %d elements (max %d)",
			ErrAllocation, name, count, ctx.caps.MaxBufferElements)
	}
	return &Buffer[T]{Resource: ctx.newResource(name), data: make([]T, count)}, nil
}

func (b *Buffer[T]) Len() int { return len(b.data) }

//Data - the mapped view of the buffer. Shaders index it directly; the host may only
//touch it outside Submit.
func (b *Buffer[T]) Data() []T { return b.data }

//ElementSize - the stride of one element in bytes
func (b *Buffer[T]) ElementSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

//Upload - copies src into the start of the buffer
func (b *Buffer[T]) Upload(src []T) error {
	if len(src) > len(b.data) {
		return fmt.Errorf("upload %d elements into %q of length %d", len(src), b.name, len(b.data))
	}
	copy(b.data, src)
	return nil
}

//Ring - a fixed-depth set of per-frame slots for data the host rewrites every frame.
//SlotFor maps a frame number onto the slot it owns.
type Ring[T any] struct {
	Resource
	slots []T
}

func NewRing[T any](ctx *Context, name string, depth int) (*Ring[T], error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: ring %q with depth %d", ErrAllocation, name, depth)
	}
	return &Ring[T]{Resource: ctx.newResource(name), slots: make([]T, depth)}, nil
}

func (r *Ring[T]) Depth() int { return len(r.slots) }

//SlotFor - slot owned by frame
func (r *Ring[T]) SlotFor(frame uint64) int {
	return int(frame % uint64(len(r.slots)))
}

//Slot - returns the slot at index i; i must be in [0, Depth())
func (r *Ring[T]) Slot(i int) *T {
	if i < 0 || i >= len(r.slots) {
		panic(fmt.Sprintf("gpu: ring %q slot %d out of range [0,%d)", r.name, i, len(r.slots)))
	}
	return &r.slots[i]
}

package queueing

import (
	"log"

	"github.com/sarchlab/attila/sim/hooking"
	"github.com/sarchlab/attila/sim/naming"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buf Pop"}

// A Buffer is a fifo queue for anything
type Buffer interface {
	naming.Named
	hooking.Hookable

	CanPush() bool
	Push(e any)
	Pop() any
	Peek() any
	Capacity() int
	Size() int

	// Remove all elements in the buffer
	Clear()
}

// BufferBuilder is a builder for Buffer.
type BufferBuilder struct {
	capacity int
}

// MakeBufferBuilder creates a BufferBuilder with a capacity of 1.
func MakeBufferBuilder() BufferBuilder {
	return BufferBuilder{capacity: 1}
}

// WithCapacity defines the capacity of the buffer.
func (b BufferBuilder) WithCapacity(capacity int) BufferBuilder {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder) Build(name string) Buffer {
	naming.NameMustBeValid(name)

	if b.capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &bufferImpl{
		name:     name,
		capacity: b.capacity,
	}
}

// NewBuffer creates a default buffer object.
func NewBuffer(name string, capacity int) Buffer {
	return MakeBufferBuilder().WithCapacity(capacity).Build(name)
}

type bufferImpl struct {
	hooking.HookableBase

	name     string
	capacity int
	elements []any
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e any) {
	if len(b.elements) >= b.capacity {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

func (b *bufferImpl) Pop() any {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e
}

func (b *bufferImpl) Peek() any {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}

package binder

import (
	"log"

	"github.com/sarchlab/attila/sim/hooking"
)

// Builder can build binders.
type Builder struct {
	initialCapacity int
	growthIncrement int
	hooks           []hooking.Hook
}

// MakeBuilder creates a builder with an initial capacity of 256 signals that
// grows by 64 signals at a time.
func MakeBuilder() Builder {
	return Builder{
		initialCapacity: 256,
		growthIncrement: 64,
	}
}

// WithInitialCapacity sets the number of signals the binder allocates
// entries for up front.
func (b Builder) WithInitialCapacity(n int) Builder {
	b.initialCapacity = n
	return b
}

// WithGrowthIncrement sets the number of entries added when the binder runs
// out of room.
func (b Builder) WithGrowthIncrement(n int) Builder {
	b.growthIncrement = n
	return b
}

// WithSignalHook attaches the hook to every signal that the binder creates.
func (b Builder) WithSignalHook(h hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), h)
	return b
}

// Build creates a new Binder.
func (b Builder) Build() *Binder {
	if b.initialCapacity < 0 {
		log.Panicf("binder: negative initial capacity %d", b.initialCapacity)
	}

	if b.growthIncrement <= 0 {
		log.Panicf("binder: growth increment must be positive, got %d",
			b.growthIncrement)
	}

	return &Binder{
		entries:   make([]*entry, 0, b.initialCapacity),
		index:     make(map[string]int),
		increment: b.growthIncrement,
		hooks:     append([]hooking.Hook(nil), b.hooks...),
	}
}

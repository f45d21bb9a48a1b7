// Package hooking lets observers attach to signals, binders and engines
// without the observed objects knowing who is watching.
package hooking

import "log"

// HookPos names a place where a hookable object invokes its hooks.
type HookPos struct {
	Name string
}

// HookCtx describes one invocation. Item is what the event is about, for
// example a payload, and Detail carries position-specific data.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable defines an object that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is invoked by the hookable objects it is registered with.
type Hook interface {
	// Func handles an invocation.
	Func(ctx HookCtx)
}

// A HookableBase can be embedded to implement Hookable.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook. A hook can only be registered once.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			log.Panicf("hook %T registered twice", hook)
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook calls the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

// Package sim drives the boxes of a cycle-accurate simulation.
package sim

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/sim/hooking"
	"github.com/sarchlab/attila/sim/naming"
)

// HookPosBeforeCycle marks the start of a cycle, before any box ticks.
var HookPosBeforeCycle = &hooking.HookPos{Name: "BeforeCycle"}

// HookPosAfterCycle marks the end of a cycle, after all the boxes ticked.
var HookPosAfterCycle = &hooking.HookPos{Name: "AfterCycle"}

// A Box is a hardware unit that the engine ticks once per cycle. Boxes talk
// to each other only through signals.
type Box interface {
	naming.Named

	// Tick updates the box for the cycle. It returns true if the box did
	// anything.
	Tick(cycle uint64) bool
}

// A SimulationEndHandler is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(cycle uint64)
}

// CycleReport is the hook detail reported at HookPosAfterCycle.
type CycleReport struct {
	Cycle        uint64
	BusyBoxes    int
	MadeProgress bool
}

// An Engine advances the global cycle and ticks every box in registration
// order.
type Engine struct {
	hooking.HookableBase

	binder *binder.Binder
	boxes  []Box
	names  map[string]bool

	cycleLock sync.RWMutex
	cycle     uint64

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
	stateLock     sync.RWMutex

	simulationEndHandlers []SimulationEndHandler
}

// NewEngine creates an engine that runs the boxes connected by the binder.
func NewEngine(b *binder.Binder) *Engine {
	if b == nil {
		log.Panic("engine requires a binder")
	}

	return &Engine{
		binder: b,
		names:  make(map[string]bool),
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "Engine"
}

// Binder returns the binder that holds the signals of the simulation.
func (e *Engine) Binder() *binder.Binder {
	return e.binder
}

// RegisterBox adds a box to the end of the tick order.
func (e *Engine) RegisterBox(box Box) {
	name := box.Name()
	if e.names[name] {
		log.Panicf("box %s already registered", name)
	}

	e.names[name] = true
	e.boxes = append(e.boxes, box)
}

// Boxes returns the registered boxes in tick order.
func (e *Engine) Boxes() []Box {
	return append([]Box(nil), e.boxes...)
}

// CurrentCycle returns the cycle that the next Step simulates.
func (e *Engine) CurrentCycle() uint64 {
	e.cycleLock.RLock()
	defer e.cycleLock.RUnlock()

	return e.cycle
}

func (e *Engine) writeCycle(cycle uint64) {
	e.cycleLock.Lock()
	e.cycle = cycle
	e.cycleLock.Unlock()
}

// EnableSignalTrace starts a signal trace on w. The engine dumps every
// cycle before ticking the boxes and ends the trace in Finished.
func (e *Engine) EnableSignalTrace(w io.Writer) error {
	return e.binder.InitSignalTrace(w)
}

// Step simulates one cycle.
func (e *Engine) Step() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	return e.step()
}

func (e *Engine) step() error {
	e.stateLock.Lock()
	defer e.stateLock.Unlock()

	cycle := e.CurrentCycle()

	if e.binder.IsTracing() {
		err := e.binder.DumpSignalTrace(cycle)
		if err != nil {
			return err
		}
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeCycle,
		Item:   cycle,
	})

	busy := 0

	for _, box := range e.boxes {
		if box.Tick(cycle) {
			busy++
		}
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosAfterCycle,
		Item:   cycle,
		Detail: CycleReport{
			Cycle:        cycle,
			BusyBoxes:    busy,
			MadeProgress: busy > 0,
		},
	})

	e.writeCycle(cycle + 1)

	return nil
}

// Run simulates numCycles cycles. It refuses to start if any signal misses
// a reader or a writer, and it stops early if ctx is cancelled.
func (e *Engine) Run(ctx context.Context, numCycles uint64) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	if !e.binder.CheckSignalBindings() {
		return errors.Errorf("signals not bound: %s",
			strings.Join(e.binder.UnboundSignals(), ", "))
	}

	for i := uint64(0); i < numCycles; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := e.Step()
		if err != nil {
			return err
		}
	}

	return nil
}

// Inspect calls f between two cycles so that f can read the state of the
// boxes and the signals while the simulation runs in another goroutine.
func (e *Engine) Inspect(f func()) {
	e.stateLock.RLock()
	defer e.stateLock.RUnlock()

	f()
}

// Pause prevents the engine from simulating more cycles.
func (e *Engine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the engine to simulate more cycles.
func (e *Engine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// IsPaused returns true if the engine is paused.
func (e *Engine) IsPaused() bool {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	return e.isPaused
}

// RegisterSimulationEndHandler registers a handler that is called in
// Finished.
func (e *Engine) RegisterSimulationEndHandler(handler SimulationEndHandler) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. It calls all the
// registered SimulationEndHandlers and ends the signal trace.
func (e *Engine) Finished() error {
	cycle := e.CurrentCycle()
	for _, h := range e.simulationEndHandlers {
		h.Handle(cycle)
	}

	if e.binder.IsTracing() {
		return e.binder.EndSignalTrace()
	}

	return nil
}

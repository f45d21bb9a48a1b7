package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim"
	"github.com/sarchlab/attila/sim/hooking"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished marks amount elements as finished. Elements that
// finish without having been counted as in progress only add to Finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= min(amount, b.InProgress)
	b.Finished += amount
}

// CycleProgress is an engine hook that moves a progress bar forward by one
// at the end of every cycle.
type CycleProgress struct {
	Bar *ProgressBar
}

// Func advances the bar.
func (p CycleProgress) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sim.HookPosAfterCycle {
		return
	}

	p.Bar.IncrementFinished(1)
}

// TrackCycles creates a progress bar for a run of total cycles and hooks it
// to the registered engine.
func (m *Monitor) TrackCycles(name string, total uint64) *ProgressBar {
	bar := m.CreateProgressBar(name, total)
	m.engine.AcceptHook(CycleProgress{Bar: bar})

	return bar
}

// FlowProgress is a signal hook that counts the payloads written into Entry
// as in progress and the payloads read from Exit as finished.
type FlowProgress struct {
	Bar   *ProgressBar
	Entry *signal.Signal
	Exit  *signal.Signal
}

// Func moves the bar.
func (p FlowProgress) Func(ctx hooking.HookCtx) {
	switch {
	case ctx.Pos == signal.HookPosSignalWrite && ctx.Domain == p.Entry:
		p.Bar.IncrementInProgress(1)
	case ctx.Pos == signal.HookPosSignalRead && ctx.Domain == p.Exit:
		p.Bar.MoveInProgressToFinished(1)
	}
}

// TrackFlow creates a progress bar for total payloads that travel from entry
// to exit.
func (m *Monitor) TrackFlow(
	name string,
	total uint64,
	entry, exit *signal.Signal,
) *ProgressBar {
	bar := m.CreateProgressBar(name, total)
	hook := FlowProgress{Bar: bar, Entry: entry, Exit: exit}

	entry.AcceptHook(hook)
	if exit != entry {
		exit.AcceptHook(hook)
	}

	return bar
}

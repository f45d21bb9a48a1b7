// Package binder provides the registry that connects the boxes of a
// simulation through named signals.
//
// Each box registers the signals it reads and the signals it writes. The
// first registration of a name creates the signal. The second registration,
// from the opposite direction, binds it and returns the same signal. A
// signal accepts exactly one reader and one writer.
package binder

import (
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/hooking"
)

// Mode is the direction in which a box uses a signal.
type Mode int

// The directions a signal can be registered for.
const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// BindingState tells which sides of a signal have been registered.
type BindingState int

// The binding states of a signal.
const (
	BindingNone BindingState = iota
	BindingReadOnly
	BindingWriteOnly
	BindingBound
)

func (s BindingState) String() string {
	switch s {
	case BindingReadOnly:
		return "R binding"
	case BindingWriteOnly:
		return "W binding"
	case BindingBound:
		return "RW binding"
	default:
		return "not registered"
	}
}

func stateFor(m Mode) BindingState {
	if m == ModeRead {
		return BindingReadOnly
	}

	return BindingWriteOnly
}

type entry struct {
	signal *signal.Signal
	state  BindingState
}

// A Binder creates signals on demand and checks that they are wired
// consistently.
type Binder struct {
	entries   []*entry
	index     map[string]int
	increment int
	hooks     []hooking.Hook

	trace     io.Writer
	numTraced int
	shutdown  bool
}

// New creates a Binder with the default settings.
func New() *Binder {
	return MakeBuilder().Build()
}

// RegisterSignal registers a box as the reader or the writer of the named
// signal and returns the signal.
//
// A bandwidth or latency of 0 means that the caller does not care about the
// value. The first registration that gives a nonzero value defines it and
// later nonzero values must match. A signal must have both values defined
// once it is bound.
func (b *Binder) RegisterSignal(
	name string,
	mode Mode,
	bandwidth, latency uint32,
) *signal.Signal {
	if b.shutdown {
		log.Panicf("binder: cannot register signal %s after shutdown", name)
	}

	if mode != ModeRead && mode != ModeWrite {
		log.Panicf("binder: signal %s registered with unknown mode %d",
			name, int(mode))
	}

	i, found := b.index[name]
	if !found {
		return b.addSignal(name, mode, bandwidth, latency)
	}

	e := b.entries[i]

	if e.state == BindingBound {
		log.Panicf("binder: no more registrations allowed for signal %s",
			name)
	}

	if e.state == stateFor(mode) {
		log.Panicf("binder: signal %s registered twice for %s", name, mode)
	}

	b.bindBandwidth(e.signal, bandwidth)
	b.bindLatency(e.signal, latency)

	e.state = BindingBound

	return e.signal
}

func (b *Binder) addSignal(
	name string,
	mode Mode,
	bandwidth, latency uint32,
) *signal.Signal {
	if len(b.entries) == cap(b.entries) {
		b.grow()
	}

	s := signal.New(name, bandwidth, latency)
	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	b.index[name] = len(b.entries)
	b.entries = append(b.entries, &entry{
		signal: s,
		state:  stateFor(mode),
	})

	return s
}

func (b *Binder) grow() {
	entries := make([]*entry, len(b.entries), cap(b.entries)+b.increment)
	copy(entries, b.entries)
	b.entries = entries

	log.Printf("binder: growing to %d signals", cap(b.entries))
}

func (b *Binder) bindBandwidth(s *signal.Signal, bandwidth uint32) {
	switch {
	case !s.IsBandwidthDefined():
		if bandwidth == 0 {
			log.Panicf("binder: bandwidth of signal %s must be defined",
				s.Name())
		}

		s.SetBandwidth(bandwidth)
	case bandwidth != 0 && bandwidth != s.Bandwidth():
		log.Panicf("binder: bandwidth %d of signal %s does not match "+
			"the previous bandwidth %d", bandwidth, s.Name(), s.Bandwidth())
	}
}

func (b *Binder) bindLatency(s *signal.Signal, latency uint32) {
	switch {
	case !s.IsLatencyDefined():
		if latency == 0 {
			log.Panicf("binder: latency of signal %s must be defined",
				s.Name())
		}

		s.SetLatency(latency)
	case latency != 0 && latency != s.Latency():
		log.Panicf("binder: latency %d of signal %s does not match "+
			"the previous latency %d", latency, s.Name(), s.Latency())
	}
}

// GetSignal returns the named signal, or nil if it was never registered.
func (b *Binder) GetSignal(name string) *signal.Signal {
	i, found := b.index[name]
	if !found {
		return nil
	}

	return b.entries[i].signal
}

// Signals returns all the signals in registration order.
func (b *Binder) Signals() []*signal.Signal {
	signals := make([]*signal.Signal, 0, len(b.entries))
	for _, e := range b.entries {
		signals = append(signals, e.signal)
	}

	return signals
}

// BindingState returns the binding state of the named signal.
func (b *Binder) BindingState(name string) BindingState {
	i, found := b.index[name]
	if !found {
		return BindingNone
	}

	return b.entries[i].state
}

// Len returns the number of registered signals.
func (b *Binder) Len() int {
	return len(b.entries)
}

// Capacity returns the number of signals the binder can hold before it needs
// to grow.
func (b *Binder) Capacity() int {
	return cap(b.entries)
}

// CheckSignalBindings returns true if every registered signal has both a
// reader and a writer.
func (b *Binder) CheckSignalBindings() bool {
	for _, e := range b.entries {
		if e.state != BindingBound {
			return false
		}
	}

	return true
}

// UnboundSignals returns the names of the signals that miss a reader or a
// writer.
func (b *Binder) UnboundSignals() []string {
	var names []string

	for _, e := range b.entries {
		if e.state != BindingBound {
			names = append(names, e.signal.Name())
		}
	}

	return names
}

// Dump prints the registered signals. If onlyUnbound is set, bound signals
// are skipped.
func (b *Binder) Dump(w io.Writer, onlyUnbound bool) {
	fmt.Fprintf(w, "Capacity: %d\n", b.Capacity())
	fmt.Fprintf(w, "Elements: %d\n", b.Len())

	if len(b.entries) == 0 {
		fmt.Fprintln(w, "No registered signals yet")
	}

	for _, e := range b.entries {
		if onlyUnbound && e.state == BindingBound {
			continue
		}

		defined := "NOT DEFINED"
		if e.signal.IsDefined() {
			defined = "DEFINED"
		}

		fmt.Fprintf(w, "%s   State: %s   %s   BW: %d   LAT: %d\n",
			e.signal.Name(), e.state, defined,
			e.signal.Bandwidth(), e.signal.Latency())
	}

	fmt.Fprintln(w, "-------------------")
}

// Shutdown ends the signal trace if it is open. No signal can be
// registered afterwards.
func (b *Binder) Shutdown() error {
	b.shutdown = true

	if b.trace == nil {
		return nil
	}

	return b.EndSignalTrace()
}

package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/hooking"
)

// SignalCount is the number of events observed on one signal.
type SignalCount struct {
	Writes       uint64
	Reads        uint64
	LostPayloads uint64
}

// EventCounter is a hook that counts signal events per signal.
type EventCounter struct {
	lock   sync.Mutex
	counts map[string]*SignalCount
}

// NewEventCounter creates an EventCounter.
func NewEventCounter() *EventCounter {
	return &EventCounter{
		counts: make(map[string]*SignalCount),
	}
}

// Func counts the event.
func (c *EventCounter) Func(ctx hooking.HookCtx) {
	evt, ok := ctx.Detail.(signal.Event)
	if !ok {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	count, found := c.counts[evt.Signal]
	if !found {
		count = &SignalCount{}
		c.counts[evt.Signal] = count
	}

	switch ctx.Pos {
	case signal.HookPosSignalWrite:
		count.Writes += uint64(evt.Count)
	case signal.HookPosSignalRead:
		count.Reads += uint64(evt.Count)
	case signal.HookPosDataLoss:
		count.LostPayloads += uint64(evt.Count)
	}
}

// Count returns the counts of the named signal.
func (c *EventCounter) Count(name string) SignalCount {
	c.lock.Lock()
	defer c.lock.Unlock()

	count, found := c.counts[name]
	if !found {
		return SignalCount{}
	}

	return *count
}

// Signals returns the names of the signals that had events, sorted.
func (c *EventCounter) Signals() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, 0, len(c.counts))
	for name := range c.counts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Total returns the sum of the counts of all signals.
func (c *EventCounter) Total() SignalCount {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := SignalCount{}
	for _, count := range c.counts {
		total.Writes += count.Writes
		total.Reads += count.Reads
		total.LostPayloads += count.LostPayloads
	}

	return total
}

// Package signal provides the timed channel that hardware boxes use to talk to
// each other.
//
// A Signal connects exactly one producer and one consumer. A payload written
// at cycle C with latency L becomes readable at exactly cycle C+L. Since a
// write never targets the current cycle, producers and consumers can be
// ticked in any order within a cycle and observe the same result.
package signal

import (
	"log"

	"github.com/sarchlab/attila/sim/hooking"
	"github.com/sarchlab/attila/sim/naming"
)

// HookPosSignalWrite marks when a payload is accepted by a signal.
var HookPosSignalWrite = &hooking.HookPos{Name: "Signal Write"}

// HookPosSignalRead marks when a payload is taken out of a signal.
var HookPosSignalRead = &hooking.HookPos{Name: "Signal Read"}

// HookPosDataLoss marks when payloads are dropped because nobody read them at
// the cycle they were visible.
var HookPosDataLoss = &hooking.HookPos{Name: "Signal Data Loss"}

// Event is the hook detail that a Signal provides.
type Event struct {
	Signal    string
	Cycle     uint64
	VisibleAt uint64
	Count     int
}

// Stats summarizes the activity of a signal since it was last configured.
type Stats struct {
	Writes         uint64
	Reads          uint64
	RejectedWrites uint64
	LostPayloads   uint64

	LastWriteCycle    uint64
	LastReadCycle     uint64
	LastActivityCycle uint64
}

// A Signal is a named, latency-accurate, bandwidth-limited channel.
type Signal struct {
	hooking.HookableBase

	name       string
	bandwidth  uint32
	maxLatency uint32
	slots      *ring

	writesThisCycle uint32
	hasWritten      bool
	started         bool
	pending         int
	stats           Stats
}

// New creates a signal. If bandwidth or latency is 0, the signal stays
// undefined until SetBandwidth, SetLatency or SetParameters defines it.
func New(name string, bandwidth, latency uint32) *Signal {
	naming.NameMustBeValid(name)

	s := &Signal{name: name}
	s.SetParameters(bandwidth, latency)

	return s
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Bandwidth returns the number of payloads that can be written per cycle, or
// 0 if it is not defined.
func (s *Signal) Bandwidth() uint32 {
	return s.bandwidth
}

// Latency returns the maximum latency of the signal, or 0 if it is not
// defined.
func (s *Signal) Latency() uint32 {
	return s.maxLatency
}

// Capacity returns the number of slots in the signal storage, or 0 if the
// signal is undefined.
func (s *Signal) Capacity() int {
	if s.slots == nil {
		return 0
	}

	return s.slots.capacity()
}

// IsDefined returns true if both bandwidth and latency are defined.
func (s *Signal) IsDefined() bool {
	return s.bandwidth > 0 && s.maxLatency > 0
}

// IsBandwidthDefined returns true if the bandwidth is defined.
func (s *Signal) IsBandwidthDefined() bool {
	return s.bandwidth > 0
}

// IsLatencyDefined returns true if the latency is defined.
func (s *Signal) IsLatencyDefined() bool {
	return s.maxLatency > 0
}

// Pending returns the number of payloads written but not read yet.
func (s *Signal) Pending() int {
	return s.pending
}

// Stats returns the activity counters of the signal.
func (s *Signal) Stats() Stats {
	return s.stats
}

// SetBandwidth changes the bandwidth. It is a hard reset, see SetParameters.
func (s *Signal) SetBandwidth(bandwidth uint32) bool {
	return s.SetParameters(bandwidth, s.maxLatency)
}

// SetLatency changes the maximum latency. It is a hard reset, see
// SetParameters.
func (s *Signal) SetLatency(latency uint32) bool {
	return s.SetParameters(s.bandwidth, latency)
}

// SetParameters sets the bandwidth and the maximum latency. All the payloads
// in flight are discarded and the storage is reallocated. It returns true if
// the signal is defined afterwards.
func (s *Signal) SetParameters(bandwidth, latency uint32) bool {
	s.bandwidth = bandwidth
	s.maxLatency = latency
	s.slots = nil

	if s.IsDefined() {
		s.slots = newRing(capacityFor(latency), int(bandwidth))
	}

	s.writesThisCycle = 0
	s.hasWritten = false
	s.started = false
	s.pending = 0
	s.stats = Stats{}

	return s.IsDefined()
}

// Write writes a payload with the maximum latency of the signal.
func (s *Signal) Write(cycle uint64, p Payload) bool {
	return s.WriteWithLatency(cycle, p, s.maxLatency)
}

// WriteWithLatency writes a payload that becomes readable at cycle+latency.
// It returns false, leaving the payload with the caller, if the bandwidth of
// the cycle is used up or if the target cycle is already full.
func (s *Signal) WriteWithLatency(
	cycle uint64,
	p Payload,
	latency uint32,
) bool {
	s.mustBeDefined("write")

	if checksEnabled {
		s.latencyMustBeValid(latency)
		s.payloadMustNotBeNil(p, "write")
		s.mustNotGoBack(cycle, "write")
	}

	s.advance(cycle)

	if !s.hasWritten || s.stats.LastWriteCycle != cycle {
		s.writesThisCycle = 0
	}

	if s.writesThisCycle >= s.bandwidth {
		s.stats.RejectedWrites++
		return false
	}

	visibleAt := cycle + uint64(latency)

	sl := s.claim(visibleAt, cycle)
	if len(sl.items) >= int(s.bandwidth) {
		s.stats.RejectedWrites++
		return false
	}

	sl.push(p)
	s.pending++
	s.writesThisCycle++
	s.hasWritten = true
	s.stats.Writes++
	s.stats.LastWriteCycle = cycle

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSignalWrite,
			Item:   p,
			Detail: Event{
				Signal:    s.name,
				Cycle:     cycle,
				VisibleAt: visibleAt,
				Count:     1,
			},
		})
	}

	return true
}

// Read takes the next payload that is visible at the given cycle. It returns
// false if no payload was scheduled for the cycle or all of them have already
// been read.
func (s *Signal) Read(cycle uint64) (Payload, bool) {
	s.mustBeDefined("read")

	if checksEnabled {
		s.mustNotGoBack(cycle, "read")
	}

	s.advance(cycle)
	s.stats.LastReadCycle = cycle

	sl := s.slots.at(cycle)
	if sl.cycle != cycle || sl.pending() == 0 {
		return nil, false
	}

	p := sl.pop()
	s.pending--
	s.stats.Reads++

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSignalRead,
			Item:   p,
			Detail: Event{
				Signal:    s.name,
				Cycle:     cycle,
				VisibleAt: cycle,
				Count:     1,
			},
		})
	}

	return p, true
}

// SetData fills the signal before the simulation starts, so that reads from
// firstCycle on succeed without prior writes. The payloads are consumed in
// groups of bandwidth; group g becomes readable at firstCycle+g, as if it had
// been written at firstCycle-latency+1+g with the maximum latency. At most
// latency groups can be provided.
func (s *Signal) SetData(initial []Payload, firstCycle uint64) bool {
	s.mustBeDefined("set data")

	if checksEnabled && s.started {
		log.Panicf("signal %s: data must be set before any read or write",
			s.name)
	}

	limit := int(s.bandwidth) * int(s.maxLatency)
	if len(initial) > limit {
		log.Panicf("signal %s: %d initial payloads exceed the %d the signal "+
			"can hold", s.name, len(initial), limit)
	}

	for i, p := range initial {
		if checksEnabled {
			s.payloadMustNotBeNil(p, "set data")
		}

		visibleAt := firstCycle + uint64(i/int(s.bandwidth))
		sl := s.claim(visibleAt, firstCycle)
		sl.push(p)
		s.pending++
	}

	s.started = true
	s.hasWritten = false
	s.stats.LastActivityCycle = firstCycle
	s.stats.LastReadCycle = firstCycle
	s.stats.LastWriteCycle = firstCycle

	return true
}

// advance moves the signal clock forward and, in checked builds, looks for
// payloads that left the window without being read.
func (s *Signal) advance(cycle uint64) {
	if !s.started {
		s.started = true
		s.stats.LastActivityCycle = cycle

		return
	}

	if cycle <= s.stats.LastActivityCycle {
		return
	}

	if checksEnabled && s.pending > 0 {
		s.checkReadsMissed(s.stats.LastActivityCycle, cycle)
	}

	s.stats.LastActivityCycle = cycle
}

// checkReadsMissed drops the unread payloads visible in [from, to).
func (s *Signal) checkReadsMissed(from, to uint64) {
	if to-from >= uint64(s.slots.capacity()) {
		for i := range s.slots.slots {
			sl := &s.slots.slots[i]
			if sl.pending() > 0 && sl.cycle < to {
				s.discard(sl, to)
			}
		}

		return
	}

	for c := from; c < to; c++ {
		sl := s.slots.at(c)
		if sl.cycle == c && sl.pending() > 0 {
			s.discard(sl, to)
		}
	}
}

// claim returns the slot for the visibleAt cycle, recycling it if it still
// belongs to an older cycle.
func (s *Signal) claim(visibleAt, now uint64) *slot {
	sl := s.slots.at(visibleAt)
	if sl.cycle == visibleAt {
		return sl
	}

	if sl.pending() > 0 {
		s.discard(sl, now)
	}

	sl.reset()
	sl.cycle = visibleAt

	return sl
}

func (s *Signal) discard(sl *slot, now uint64) {
	n := sl.pending()
	s.pending -= n
	s.stats.LostPayloads += uint64(n)

	if checksEnabled {
		s.reportDataLoss(sl, now)
	}

	sl.reset()
}

func (s *Signal) reportDataLoss(sl *slot, now uint64) {
	lost := append([]Payload(nil), sl.unread()...)

	log.Printf("signal %s: data loss at cycle %d, %d payload(s) visible at "+
		"cycle %d were never read", s.name, now, len(lost), sl.cycle)

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosDataLoss,
			Item:   lost,
			Detail: Event{
				Signal:    s.name,
				Cycle:     now,
				VisibleAt: sl.cycle,
				Count:     len(lost),
			},
		})
	}
}

func (s *Signal) mustBeDefined(op string) {
	if !s.IsDefined() {
		log.Panicf("signal %s: cannot %s, signal is not defined "+
			"(bandwidth %d, latency %d)", s.name, op, s.bandwidth, s.maxLatency)
	}
}

func (s *Signal) latencyMustBeValid(latency uint32) {
	if latency == 0 || latency > s.maxLatency {
		log.Panicf("signal %s: latency %d out of range [1, %d]",
			s.name, latency, s.maxLatency)
	}
}

func (s *Signal) payloadMustNotBeNil(p Payload, op string) {
	if p == nil {
		log.Panicf("signal %s: cannot %s a nil payload", s.name, op)
	}
}

func (s *Signal) mustNotGoBack(cycle uint64, op string) {
	if s.started && cycle < s.stats.LastActivityCycle {
		log.Panicf("signal %s: cannot %s at cycle %d, signal is already at "+
			"cycle %d", s.name, op, cycle, s.stats.LastActivityCycle)
	}
}

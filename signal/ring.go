package signal

import "math/bits"

// A slot holds the payloads that become visible at one exact cycle.
type slot struct {
	cycle uint64
	items []Payload
	head  int
}

// pending returns the number of reads still required before the slot can be
// reused.
func (s *slot) pending() int {
	return len(s.items) - s.head
}

func (s *slot) push(p Payload) {
	s.items = append(s.items, p)
}

func (s *slot) pop() Payload {
	p := s.items[s.head]
	s.items[s.head] = nil
	s.head++

	if s.head == len(s.items) {
		s.reset()
	}

	return p
}

func (s *slot) unread() []Payload {
	return s.items[s.head:]
}

func (s *slot) reset() {
	for i := range s.items {
		s.items[i] = nil
	}

	s.items = s.items[:0]
	s.head = 0
}

// ring is a fixed-capacity arena of slots addressed by cycle&mask.
type ring struct {
	slots []slot
	mask  uint64
}

// capacityFor returns the smallest power of two that is at least
// maxLatency+1.
func capacityFor(maxLatency uint32) int {
	return 1 << bits.Len32(maxLatency)
}

func newRing(capacity int, width int) *ring {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring capacity must be a power of two")
	}

	r := &ring{
		slots: make([]slot, capacity),
		mask:  uint64(capacity - 1),
	}

	for i := range r.slots {
		r.slots[i].items = make([]Payload, 0, width)
	}

	return r
}

func (r *ring) capacity() int {
	return len(r.slots)
}

func (r *ring) at(cycle uint64) *slot {
	return &r.slots[cycle&r.mask]
}

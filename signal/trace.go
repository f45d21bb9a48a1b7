package signal

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// TraceSignal writes one line per payload that is visible at the cycle and
// has not been read yet. It does not change the signal.
func (s *Signal) TraceSignal(w io.Writer, cycle uint64) error {
	if !s.IsDefined() {
		return nil
	}

	sl := s.slots.at(cycle)
	if sl.cycle != cycle {
		return nil
	}

	for _, p := range sl.unread() {
		_, err := fmt.Fprintf(w, "\t%s\n", FormatPayload(p))
		if err != nil {
			return errors.Wrapf(err, "trace signal %s at cycle %d", s.name, cycle)
		}
	}

	return nil
}

// Dump prints the content of the signal storage for debugging.
func (s *Signal) Dump(w io.Writer) {
	fmt.Fprintf(w, "Signal %s\n", s.name)

	if !s.IsDefined() {
		fmt.Fprintf(w, "Signal undefined\n")
		fmt.Fprintf(w, "Bandwidth: %d\n", s.bandwidth)
		fmt.Fprintf(w, "Max. Latency: %d\n", s.maxLatency)

		return
	}

	fmt.Fprintf(w, "Bandwidth: %d  Max. Latency: %d  Capacity: %d\n",
		s.bandwidth, s.maxLatency, s.slots.capacity())

	for i := range s.slots.slots {
		sl := &s.slots.slots[i]
		if sl.pending() == 0 {
			continue
		}

		fmt.Fprintf(w, "  slot %d (cycle %d): %d pending\n",
			i, sl.cycle, sl.pending())

		for _, p := range sl.unread() {
			fmt.Fprintf(w, "    %s\n", FormatPayload(p))
		}
	}

	fmt.Fprintf(w, "Writes in last write cycle (%d): %d\n",
		s.stats.LastWriteCycle, s.writesThisCycle)
	fmt.Fprintf(w, "Pending reads: %d\n", s.pending)
	fmt.Fprintf(w, "Writes: %d  Reads: %d  Rejected: %d  Lost: %d\n",
		s.stats.Writes, s.stats.Reads, s.stats.RejectedWrites,
		s.stats.LostPayloads)
}

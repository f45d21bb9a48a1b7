package binder

import (
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"
)

// TraceVersionLine is the first line of every signal trace file.
const TraceVersionLine = "Signal Trace File v. 1.0"

// InitSignalTrace starts a signal trace on w. It writes the header that
// lists the ID, the bandwidth and the latency of every registered signal.
// Signals registered later do not appear in the trace. The binder never
// closes w; the caller does once EndSignalTrace returns.
func (b *Binder) InitSignalTrace(w io.Writer) error {
	if w == nil {
		log.Panic("binder: signal trace writer must not be nil")
	}

	b.trace = w
	b.numTraced = len(b.entries)

	_, err := fmt.Fprintf(w,
		"%s\n\nSignal Name\t\t\tSignal ID.\tBandwidth\tLatency\n\n",
		TraceVersionLine)
	if err != nil {
		return errors.Wrap(err, "write signal trace header")
	}

	for i, e := range b.entries {
		_, err = fmt.Fprintf(w, "%s\t\t\t%d\t\t%d\t\t%d\n",
			e.signal.Name(), i, e.signal.Bandwidth(), e.signal.Latency())
		if err != nil {
			return errors.Wrap(err, "write signal trace header")
		}
	}

	_, err = io.WriteString(w, "\n\n")

	return errors.Wrap(err, "write signal trace header")
}

// DumpSignalTrace writes the payloads that every signal listed in the trace
// header has for the cycle.
func (b *Binder) DumpSignalTrace(cycle uint64) error {
	b.traceMustBeOpen("dump")

	_, err := fmt.Fprintf(b.trace, "C %d\n", cycle)
	if err != nil {
		return errors.Wrapf(err, "write signal trace for cycle %d", cycle)
	}

	for i, e := range b.entries[:b.numTraced] {
		_, err = fmt.Fprintf(b.trace, "S %d:\n", i)
		if err != nil {
			return errors.Wrapf(err, "write signal trace for cycle %d", cycle)
		}

		err = e.signal.TraceSignal(b.trace, cycle)
		if err != nil {
			return err
		}
	}

	return nil
}

// EndSignalTrace writes the footer and stops tracing.
func (b *Binder) EndSignalTrace() error {
	b.traceMustBeOpen("end")

	w := b.trace
	b.trace = nil
	b.numTraced = 0

	_, err := io.WriteString(w, "\n\nEnd of Trace\n")

	return errors.Wrap(err, "write signal trace footer")
}

// IsTracing returns true if a signal trace is open.
func (b *Binder) IsTracing() bool {
	return b.trace != nil
}

func (b *Binder) traceMustBeOpen(op string) {
	if b.trace == nil {
		log.Panicf("binder: cannot %s signal trace, trace was never opened",
			op)
	}
}

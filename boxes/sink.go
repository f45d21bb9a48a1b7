package boxes

import (
	"log"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/naming"
)

// An Arrival records when a token reached a sink.
type Arrival struct {
	Token *Token
	Cycle uint64
}

// A Sink reads every payload that its input signal delivers and records the
// arrival cycle of tokens.
type Sink struct {
	naming.NamedBase

	in       *signal.Signal
	arrivals []Arrival
	others   int
}

// NewSink creates a sink that reads the named signal.
func NewSink(name string, b *binder.Binder, input string) *Sink {
	s := &Sink{
		NamedBase: naming.MakeNamedBase(name),
	}

	s.in = b.RegisterSignal(input, binder.ModeRead, 0, 0)

	return s
}

// Input returns the input signal.
func (s *Sink) Input() *signal.Signal {
	return s.in
}

// Tick reads all the payloads visible at the cycle.
func (s *Sink) Tick(cycle uint64) bool {
	madeProgress := false

	for {
		item, ok := s.in.Read(cycle)
		if !ok {
			break
		}

		madeProgress = true

		t, isToken := item.(*Token)
		if !isToken {
			s.others++
			continue
		}

		s.arrivals = append(s.arrivals, Arrival{Token: t, Cycle: cycle})
	}

	return madeProgress
}

// Arrivals returns the tokens received so far, in arrival order.
func (s *Sink) Arrivals() []Arrival {
	return s.arrivals
}

// NumReceived returns the number of payloads received, tokens or not.
func (s *Sink) NumReceived() int {
	return len(s.arrivals) + s.others
}

// AverageLatency returns the average number of cycles between the creation
// and the arrival of the received tokens.
func (s *Sink) AverageLatency() float64 {
	if len(s.arrivals) == 0 {
		return 0
	}

	total := uint64(0)
	for _, a := range s.arrivals {
		total += a.Cycle - a.Token.CreatedAt
	}

	return float64(total) / float64(len(s.arrivals))
}

// Handle reports the tokens received when the simulation ends.
func (s *Sink) Handle(cycle uint64) {
	log.Printf("%s received %d tokens by cycle %d, average latency %.2f",
		s.Name(), len(s.arrivals), cycle, s.AverageLatency())
}

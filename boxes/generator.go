package boxes

import (
	"log"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/naming"
)

// A Generator writes a fixed number of tokens into its output signal, as
// many per cycle as the signal bandwidth allows.
type Generator struct {
	naming.NamedBase

	out       *signal.Signal
	numTokens int
	nextID    int
	pending   *Token
}

// GeneratorBuilder can build generators.
type GeneratorBuilder struct {
	binder    *binder.Binder
	numTokens int
	output    string
	bandwidth uint32
	latency   uint32
	preload   int
}

// MakeGeneratorBuilder creates a builder for a generator with one token and
// an output of bandwidth 1 and latency 1.
func MakeGeneratorBuilder() GeneratorBuilder {
	return GeneratorBuilder{
		numTokens: 1,
		bandwidth: 1,
		latency:   1,
	}
}

// WithBinder sets the binder that the generator registers its output with.
func (b GeneratorBuilder) WithBinder(bnd *binder.Binder) GeneratorBuilder {
	b.binder = bnd
	return b
}

// WithNumTokens sets the number of tokens to generate.
func (b GeneratorBuilder) WithNumTokens(n int) GeneratorBuilder {
	b.numTokens = n
	return b
}

// WithOutput sets the name, the bandwidth and the latency of the output
// signal.
func (b GeneratorBuilder) WithOutput(
	name string,
	bandwidth, latency uint32,
) GeneratorBuilder {
	b.output = name
	b.bandwidth = bandwidth
	b.latency = latency

	return b
}

// WithPreloadedTokens makes the first n tokens readable from cycle 0 without
// being written. n cannot exceed bandwidth*latency.
func (b GeneratorBuilder) WithPreloadedTokens(n int) GeneratorBuilder {
	b.preload = n
	return b
}

// Build creates the generator.
func (b GeneratorBuilder) Build(name string) *Generator {
	if b.binder == nil {
		log.Panicf("generator %s requires a binder", name)
	}

	if b.preload > b.numTokens {
		log.Panicf("generator %s cannot preload %d of %d tokens",
			name, b.preload, b.numTokens)
	}

	output := b.output
	if output == "" {
		output = naming.BuildName(name, "Out")
	}

	g := &Generator{
		NamedBase: naming.MakeNamedBase(name),
		numTokens: b.numTokens,
	}

	g.out = b.binder.RegisterSignal(
		output, binder.ModeWrite, b.bandwidth, b.latency)

	if b.preload > 0 {
		g.preload(b.preload)
	}

	return g
}

func (g *Generator) preload(n int) {
	initial := make([]signal.Payload, 0, n)
	for i := 0; i < n; i++ {
		initial = append(initial, g.newToken(0))
	}

	g.out.SetData(initial, 0)
}

func (g *Generator) newToken(cycle uint64) *Token {
	t := NewToken(g.nextID, cycle)
	g.nextID++

	return t
}

// Output returns the output signal.
func (g *Generator) Output() *signal.Signal {
	return g.out
}

// Generated returns the number of tokens handed to the output signal.
func (g *Generator) Generated() int {
	if g.pending != nil {
		return g.nextID - 1
	}

	return g.nextID
}

// Done returns true if all the tokens have been written.
func (g *Generator) Done() bool {
	return g.Generated() == g.numTokens
}

// Tick writes new tokens.
func (g *Generator) Tick(cycle uint64) bool {
	madeProgress := false

	for i := uint32(0); i < g.out.Bandwidth(); i++ {
		if g.pending == nil {
			if g.nextID >= g.numTokens {
				break
			}

			g.pending = g.newToken(cycle)
		}

		if !g.out.Write(cycle, g.pending) {
			break
		}

		g.pending = nil
		madeProgress = true
	}

	return madeProgress
}

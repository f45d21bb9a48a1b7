package boxes

import (
	"log"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/sim"
	"github.com/sarchlab/attila/sim/naming"
)

// PipelineConfig describes a linear pipeline of a generator, a number of
// stages and a sink.
type PipelineConfig struct {
	NumTokens        int
	NumStages        int
	Bandwidth        uint32
	Latency          uint32
	ProcessingCycles int
	BufferCapacity   int
	PreloadedTokens  int
}

// DefaultPipelineConfig returns a two-stage pipeline that moves 16 tokens.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		NumTokens:        16,
		NumStages:        2,
		Bandwidth:        1,
		Latency:          2,
		ProcessingCycles: 1,
		BufferCapacity:   4,
	}
}

// A Pipeline is a built reference pipeline, ready to run.
type Pipeline struct {
	Binder    *binder.Binder
	Engine    *sim.Engine
	Generator *Generator
	Stages    []*Stage
	Sink      *Sink
}

// BuildPipeline creates the boxes of the pipeline, registers their signals
// with b and their ticks with a new engine.
func BuildPipeline(b *binder.Binder, cfg PipelineConfig) *Pipeline {
	if cfg.NumStages < 0 {
		log.Panicf("pipeline cannot have %d stages", cfg.NumStages)
	}

	p := &Pipeline{
		Binder: b,
		Engine: sim.NewEngine(b),
	}

	p.Generator = MakeGeneratorBuilder().
		WithBinder(b).
		WithNumTokens(cfg.NumTokens).
		WithOutput("Generator.Out", cfg.Bandwidth, cfg.Latency).
		WithPreloadedTokens(cfg.PreloadedTokens).
		Build("Generator")
	p.Engine.RegisterBox(p.Generator)

	input := p.Generator.Output().Name()

	for i := 0; i < cfg.NumStages; i++ {
		name := naming.BuildNameWithIndex("", "Stage", i)

		s := MakeStageBuilder().
			WithBinder(b).
			WithInput(input).
			WithOutput(naming.BuildName(name, "Out"),
				cfg.Bandwidth, cfg.Latency).
			WithProcessingCycles(cfg.ProcessingCycles).
			WithWidth(int(cfg.Bandwidth)).
			WithBufferCapacity(cfg.BufferCapacity).
			Build(name)
		p.Engine.RegisterBox(s)
		p.Stages = append(p.Stages, s)

		input = s.Output().Name()
	}

	p.Sink = NewSink("Sink", b, input)
	p.Engine.RegisterBox(p.Sink)
	p.Engine.RegisterSimulationEndHandler(p.Sink)

	return p
}

// ExpectedArrival returns the cycle at which a token written at cycle
// created reaches the sink when nothing stalls.
func (cfg PipelineConfig) ExpectedArrival(created uint64) uint64 {
	perStage := uint64(cfg.ProcessingCycles) + uint64(cfg.Latency)
	return created + uint64(cfg.Latency) + uint64(cfg.NumStages)*perStage
}

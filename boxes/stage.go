package boxes

import (
	"log"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/signal"
	"github.com/sarchlab/attila/sim/naming"
	"github.com/sarchlab/attila/sim/queueing"
)

// A Stage reads tokens from its input signal, holds each of them for a fixed
// number of processing cycles and forwards them to its output signal. When
// the output signal is busy, tokens wait in internal buffers. The input
// buffer must hold at least one cycle of input, and the stage must be as wide
// as its input bandwidth to keep up with a producer that writes every cycle.
type Stage struct {
	naming.NamedBase

	in         *signal.Signal
	out        *signal.Signal
	outLatency uint32

	inBuf    queueing.Buffer
	pipeline queueing.Pipeline
	postBuf  queueing.Buffer
}

// StageBuilder can build stages.
type StageBuilder struct {
	binder           *binder.Binder
	input            string
	output           string
	bandwidth        uint32
	latency          uint32
	writeLatency     uint32
	processingCycles int
	width            int
	bufferCapacity   int
}

// MakeStageBuilder creates a builder for a stage that takes one cycle to
// process a token and writes into an output of bandwidth 1 and latency 1.
func MakeStageBuilder() StageBuilder {
	return StageBuilder{
		bandwidth:        1,
		latency:          1,
		processingCycles: 1,
		width:            1,
		bufferCapacity:   4,
	}
}

// WithBinder sets the binder that the stage registers its signals with.
func (b StageBuilder) WithBinder(bnd *binder.Binder) StageBuilder {
	b.binder = bnd
	return b
}

// WithInput sets the name of the input signal.
func (b StageBuilder) WithInput(name string) StageBuilder {
	b.input = name
	return b
}

// WithOutput sets the name, the bandwidth and the maximum latency of the
// output signal.
func (b StageBuilder) WithOutput(
	name string,
	bandwidth, latency uint32,
) StageBuilder {
	b.output = name
	b.bandwidth = bandwidth
	b.latency = latency

	return b
}

// WithWriteLatency sets the latency the stage writes with. It defaults to
// the maximum latency of the output signal.
func (b StageBuilder) WithWriteLatency(latency uint32) StageBuilder {
	b.writeLatency = latency
	return b
}

// WithProcessingCycles sets the number of cycles a token spends in the
// stage when nothing stalls.
func (b StageBuilder) WithProcessingCycles(n int) StageBuilder {
	b.processingCycles = n
	return b
}

// WithWidth sets the number of tokens that can start processing in the same
// cycle.
func (b StageBuilder) WithWidth(n int) StageBuilder {
	b.width = n
	return b
}

// WithBufferCapacity sets the capacity of the input and the output buffers.
func (b StageBuilder) WithBufferCapacity(n int) StageBuilder {
	b.bufferCapacity = n
	return b
}

// Build creates the stage.
func (b StageBuilder) Build(name string) *Stage {
	if b.binder == nil {
		log.Panicf("stage %s requires a binder", name)
	}

	if b.input == "" {
		log.Panicf("stage %s requires an input signal", name)
	}

	if b.processingCycles < 1 {
		log.Panicf("stage %s must process tokens for at least 1 cycle", name)
	}

	output := b.output
	if output == "" {
		output = naming.BuildName(name, "Out")
	}

	s := &Stage{
		NamedBase: naming.MakeNamedBase(name),
		inBuf: queueing.NewBuffer(
			naming.BuildName(name, "InBuf"), b.bufferCapacity),
		postBuf: queueing.NewBuffer(
			naming.BuildName(name, "PostBuf"), b.bufferCapacity),
	}

	s.pipeline = queueing.MakePipelineBuilder().
		WithPipelineWidth(b.width).
		WithNumStage(b.processingCycles).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(s.postBuf).
		Build(naming.BuildName(name, "Pipeline"))

	s.in = b.binder.RegisterSignal(b.input, binder.ModeRead, 0, 0)
	s.out = b.binder.RegisterSignal(
		output, binder.ModeWrite, b.bandwidth, b.latency)

	if s.in.IsBandwidthDefined() {
		s.inputMustFit()
	}

	s.outLatency = b.writeLatency
	if s.outLatency == 0 {
		s.outLatency = b.latency
	}

	return s
}

// Input returns the input signal.
func (s *Stage) Input() *signal.Signal {
	return s.in
}

// Output returns the output signal.
func (s *Stage) Output() *signal.Signal {
	return s.out
}

// InBuffer returns the buffer that holds the tokens waiting to be processed.
func (s *Stage) InBuffer() queueing.Buffer {
	return s.inBuf
}

// PostBuffer returns the buffer that holds the processed tokens waiting for
// the output signal.
func (s *Stage) PostBuffer() queueing.Buffer {
	return s.postBuf
}

// Tick advances the stage by one cycle.
func (s *Stage) Tick(cycle uint64) bool {
	madeProgress := false

	madeProgress = s.pipeline.Tick() || madeProgress
	madeProgress = s.forward(cycle) || madeProgress
	madeProgress = s.receive(cycle) || madeProgress
	madeProgress = s.accept() || madeProgress

	return madeProgress
}

func (s *Stage) forward(cycle uint64) bool {
	madeProgress := false

	for s.postBuf.Size() > 0 {
		item := s.postBuf.Peek()
		if !s.out.WriteWithLatency(cycle, item, s.outLatency) {
			break
		}

		s.postBuf.Pop()
		madeProgress = true
	}

	return madeProgress
}

// inputMustFit panics if a cycle's worth of input cannot be buffered. Every
// payload must be read in the cycle it becomes visible.
func (s *Stage) inputMustFit() {
	if s.inBuf.Capacity() < int(s.in.Bandwidth()) {
		log.Panicf("stage %s: input buffer capacity %d is below the "+
			"bandwidth %d of signal %s",
			s.Name(), s.inBuf.Capacity(), s.in.Bandwidth(), s.in.Name())
	}
}

func (s *Stage) receive(cycle uint64) bool {
	s.inputMustFit()

	madeProgress := false

	for s.inBuf.CanPush() {
		item, ok := s.in.Read(cycle)
		if !ok {
			break
		}

		if t, ok := item.(*Token); ok {
			t.Hops++
		}

		s.inBuf.Push(item)
		madeProgress = true
	}

	return madeProgress
}

func (s *Stage) accept() bool {
	madeProgress := false

	for s.inBuf.Size() > 0 && s.pipeline.CanAccept() {
		s.pipeline.Accept(s.inBuf.Pop())
		madeProgress = true
	}

	return madeProgress
}

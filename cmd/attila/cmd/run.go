package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/attila/binder"
	"github.com/sarchlab/attila/boxes"
	"github.com/sarchlab/attila/monitoring"
	"github.com/sarchlab/attila/tracing"
)

type runOptions struct {
	cycles       uint64
	pipeline     boxes.PipelineConfig
	tracePath    string
	sqlitePath   string
	monitor      bool
	port         int
	openBrowser  bool
	dumpBindings bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reference pipeline.",
	Long: "Run a generator, a chain of stages and a sink connected by " +
		"signals, and report the signal activity.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := readRunOptions(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runSimulation(ctx, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	cfg := boxes.DefaultPipelineConfig()
	flags := runCmd.Flags()
	flags.Uint64("cycles", 64, "Number of cycles to simulate.")
	flags.Int("tokens", cfg.NumTokens, "Number of tokens to generate.")
	flags.Int("stages", cfg.NumStages, "Number of stages in the pipeline.")
	flags.Uint32("latency", cfg.Latency, "Latency of every signal.")
	flags.Uint32("bandwidth", cfg.Bandwidth, "Bandwidth of every signal.")
	flags.Int("processing", cfg.ProcessingCycles,
		"Cycles a stage holds a token.")
	flags.Int("buffer", cfg.BufferCapacity, "Capacity of the stage buffers.")
	flags.Int("preload", 0, "Number of tokens readable from cycle 0.")
	flags.String("trace", "", "Write a signal trace to this file.")
	flags.String("sqlite", "",
		"Record signal events into this database (without .sqlite3).")
	flags.Bool("monitor", false, "Start the monitoring server.")
	flags.Int("port", 0, "Port of the monitoring server.")
	flags.Bool("open", false, "Open the monitoring page in a browser.")
	flags.Bool("dump-bindings", false, "Print the signal bindings.")
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()
	opts := runOptions{pipeline: boxes.DefaultPipelineConfig()}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error

	opts.cycles, err = flags.GetUint64("cycles")
	collect(err)
	opts.pipeline.NumTokens, err = flags.GetInt("tokens")
	collect(err)
	opts.pipeline.NumStages, err = flags.GetInt("stages")
	collect(err)
	opts.pipeline.Latency, err = flags.GetUint32("latency")
	collect(err)
	opts.pipeline.Bandwidth, err = flags.GetUint32("bandwidth")
	collect(err)
	opts.pipeline.ProcessingCycles, err = flags.GetInt("processing")
	collect(err)
	opts.pipeline.BufferCapacity, err = flags.GetInt("buffer")
	collect(err)
	opts.pipeline.PreloadedTokens, err = flags.GetInt("preload")
	collect(err)
	opts.tracePath, err = flags.GetString("trace")
	collect(err)
	opts.sqlitePath, err = flags.GetString("sqlite")
	collect(err)
	opts.monitor, err = flags.GetBool("monitor")
	collect(err)
	opts.port, err = flags.GetInt("port")
	collect(err)
	opts.openBrowser, err = flags.GetBool("open")
	collect(err)
	opts.dumpBindings, err = flags.GetBool("dump-bindings")
	collect(err)

	if len(errs) > 0 {
		return opts, errors.Wrap(errs[0], "read run flags")
	}

	return opts, opts.validate()
}

func (o runOptions) validate() error {
	cfg := o.pipeline

	if cfg.Latency == 0 || cfg.Bandwidth == 0 {
		return errors.New("latency and bandwidth must be positive")
	}

	if cfg.BufferCapacity < int(cfg.Bandwidth) {
		return errors.Errorf("buffer capacity %d is below the bandwidth %d",
			cfg.BufferCapacity, cfg.Bandwidth)
	}

	if cfg.ProcessingCycles < 1 {
		return errors.New("processing cycles must be at least 1")
	}

	if cfg.PreloadedTokens > int(cfg.Bandwidth*cfg.Latency) ||
		cfg.PreloadedTokens > cfg.NumTokens {
		return errors.Errorf("cannot preload %d tokens", cfg.PreloadedTokens)
	}

	return nil
}

func runSimulation(ctx context.Context, opts runOptions, out io.Writer) error {
	counter := tracing.NewEventCounter()
	builder := binder.MakeBuilder().WithSignalHook(counter)

	var recorder *tracing.SQLiteRecorder
	if opts.sqlitePath != "" {
		recorder = tracing.NewSQLiteRecorder(opts.sqlitePath)
		recorder.Init()
		builder = builder.WithSignalHook(recorder)
	}

	b := builder.Build()
	p := boxes.BuildPipeline(b, opts.pipeline)

	if recorder != nil {
		recorder.RecordSignals(b.Signals())
	}

	if opts.dumpBindings {
		b.Dump(out, false)
	}

	if opts.tracePath != "" {
		f, err := os.Create(opts.tracePath)
		if err != nil {
			return errors.Wrap(err, "create signal trace")
		}
		defer f.Close()

		err = p.Engine.EnableSignalTrace(f)
		if err != nil {
			return err
		}
	}

	var bars []*monitoring.ProgressBar
	var m *monitoring.Monitor
	if opts.monitor {
		m = monitoring.NewMonitor().WithPortNumber(opts.port)
		m.RegisterEngine(p.Engine)
		bars = append(bars,
			m.TrackCycles("Cycles", opts.cycles),
			m.TrackFlow("Tokens", uint64(opts.pipeline.NumTokens),
				p.Generator.Output(), p.Sink.Input()))
		m.StartServer()

		if opts.openBrowser {
			err := m.OpenBrowser()
			if err != nil {
				fmt.Fprintf(os.Stderr, "cannot open browser: %v\n", err)
			}
		}
	}

	runErr := p.Engine.Run(ctx, opts.cycles)

	err := p.Engine.Finished()
	if err != nil && runErr == nil {
		runErr = err
	}

	for _, bar := range bars {
		m.CompleteProgressBar(bar)
	}

	if recorder != nil {
		recorder.Flush()
		fmt.Fprintf(out, "Recorded %d signal events into %s\n",
			recorder.NumEventsWritten(), recorder.FileName())
	}

	if runErr != nil {
		return runErr
	}

	printRunSummary(out, p, counter)

	return nil
}

func printRunSummary(
	out io.Writer,
	p *boxes.Pipeline,
	counter *tracing.EventCounter,
) {
	fmt.Fprintf(out, "Simulated %d cycles, %d of %d tokens delivered, "+
		"average latency %.2f\n",
		p.Engine.CurrentCycle(), len(p.Sink.Arrivals()),
		p.Generator.Generated(), p.Sink.AverageLatency())

	for _, name := range counter.Signals() {
		c := counter.Count(name)
		fmt.Fprintf(out, "%-16s writes %d, reads %d, lost %d\n",
			name, c.Writes, c.Reads, c.LostPayloads)
	}
}

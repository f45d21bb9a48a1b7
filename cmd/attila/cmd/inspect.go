package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/attila/tracing"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <trace>",
	Short: "Summarize a signal trace.",
	Long: "Print the signals of a signal trace with the number of payloads " +
		"traced for each of them.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		busiest, err := cmd.Flags().GetInt("busiest")
		if err != nil {
			return err
		}

		return inspectTrace(args[0], busiest, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Int("busiest", 0,
		"Also list this many cycles with the most payloads.")
}

func inspectTrace(path string, busiest int, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open signal trace")
	}
	defer f.Close()

	trace, err := tracing.ReadSignalTrace(f)
	if err != nil {
		return errors.Wrapf(err, "read signal trace %s", path)
	}

	first, last, ok := trace.CycleRange()
	if ok {
		fmt.Fprintf(out, "Cycles %d to %d\n", first, last)
	} else {
		fmt.Fprintf(out, "No cycles traced\n")
	}

	if trace.Truncated {
		fmt.Fprintf(out, "Trace is truncated\n")
	}

	for _, s := range trace.Signals {
		fmt.Fprintf(out, "%3d %-16s BW %d LAT %d payloads %d\n",
			s.ID, s.Name, s.Bandwidth, s.Latency, trace.PayloadCount(s.ID))
	}

	if busiest > 0 {
		fmt.Fprintf(out, "Busiest cycles: %v\n", trace.BusiestCycles(busiest))
	}

	return nil
}

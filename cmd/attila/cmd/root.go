// Package cmd provides the command-line interface for Attila.
package cmd

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix is prepended to the upper-cased flag name to find the
// environment variable that provides the default of a flag.
const envPrefix = "ATTILA_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "attila",
	Short: "Attila runs and inspects cycle-accurate signal pipelines.",
	Long: `Attila runs a reference pipeline of boxes connected by timed ` +
		`signals and inspects the signal traces it writes. Flag defaults ` +
		`can be set with ATTILA_ environment variables or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnvDefaults(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

// applyEnvDefaults loads .env if it exists and sets every flag that is not
// given on the command line from its environment variable.
func applyEnvDefaults(flags *pflag.FlagSet) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var setErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		setErr = flags.Set(f.Name, value)
	})

	return setErr
}

func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

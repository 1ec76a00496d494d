package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/tagsgen/internal/config"
	"github.com/mvp-joe/tagsgen/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	quietFlag bool
)

// rootCmd represents the base command. Without a subcommand it generates tags.
var rootCmd = &cobra.Command{
	Use:   "tagsgen",
	Short: "Generate Geany tag files for Python",
	Long: `tagsgen builds a tagmanager tag file describing the public API of Python
modules, so an editor can offer completion and calltips for them.

Without arguments it walks the interpreter's standard library. Each module is
imported in a child interpreter; modules that cannot be imported are scanned
as text instead.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.RunE = runGenerate

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tagsgen.yaml in the working directory or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every unit and skipped member")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only log warnings and errors, no progress bar")

	addGenerateFlags(rootCmd, &rootGenerateFlags)
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger returns the stderr logger for the global verbosity flags.
func newLogger(w io.Writer) *slog.Logger {
	return logging.New(w, logging.Options{Verbose: verbose, Quiet: quietFlag})
}

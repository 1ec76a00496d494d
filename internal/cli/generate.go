package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/tagsgen/internal/config"
	"github.com/mvp-joe/tagsgen/internal/extract"
	"github.com/mvp-joe/tagsgen/internal/logging"
	"github.com/mvp-joe/tagsgen/internal/pipeline"
	"github.com/mvp-joe/tagsgen/internal/pyrt"
	"github.com/mvp-joe/tagsgen/internal/sanitize"
	"github.com/mvp-joe/tagsgen/internal/tagdb"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// generateFlags are the command-line overrides of a generate run.
type generateFlags struct {
	output   string
	python   string
	embedded bool
	fallback string
}

var (
	rootGenerateFlags generateFlags
	genFlags          generateFlags
)

var generateCmd = &cobra.Command{
	Use:   "generate [units or paths...]",
	Short: "Generate a tag file",
	Long: `Generate imports each unit in a child interpreter and records its public
functions, classes and methods with their signatures.

Arguments may be module names, .py files or directories. With no arguments the
interpreter's standard library is enumerated.

Examples:
  # Tags for the standard library of python3 on PATH
  tagsgen generate -o python.tags

  # Use the interpreter bundled into tagsgen
  tagsgen generate --embedded

  # Tags for a few modules and a source tree
  tagsgen generate json asyncio ./vendor/mylib -o mylib.tags
`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd, &genFlags)
}

func addGenerateFlags(cmd *cobra.Command, f *generateFlags) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "tag file to write (default from config: python.tags)")
	cmd.Flags().StringVar(&f.python, "python", "", "python interpreter to inspect with")
	cmd.Flags().BoolVar(&f.embedded, "embedded", false, "use the bundled python interpreter")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "source scanner for units that fail to load: pattern or syntax")
	cmd.MarkFlagsMutuallyExclusive("python", "embedded")
}

// applyGenerateFlags overrides cfg with the flags set on cmd.
func applyGenerateFlags(cmd *cobra.Command, f *generateFlags, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = f.output
	}
	if flags.Changed("python") {
		cfg.Runtime.Mode = config.RuntimeSystem
		cfg.Runtime.Python = f.python
	}
	if flags.Changed("embedded") && f.embedded {
		cfg.Runtime.Mode = config.RuntimeEmbedded
	}
	if flags.Changed("fallback") {
		cfg.Extract.Fallback = f.fallback
	}
	return config.Validate(cfg)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Stopping after the current unit...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := &genFlags
	if cmd == rootCmd {
		f = &rootGenerateFlags
	}
	if err := applyGenerateFlags(cmd, f, cfg); err != nil {
		return err
	}

	logger, runID := logging.WithRun(newLogger(os.Stderr))
	logger.Debug("starting run", "run_id", runID, "output", cfg.Output.Path, "runtime", cfg.Runtime.Mode)

	rt, err := newRuntime(&cfg.Runtime)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to clean up runtime", "error", err)
		}
	}()

	var progress pipeline.ProgressReporter = pipeline.NoOpProgressReporter{}
	if !quietFlag && !verbose {
		progress = NewCLIProgressReporter(os.Stderr, os.Stdout)
	}

	_, err = generate(ctx, cfg, rt, args, logger, progress)
	return err
}

func newRuntime(cfg *config.RuntimeConfig) (pyrt.Runtime, error) {
	if cfg.Mode == config.RuntimeEmbedded {
		return pyrt.NewEmbedded(cfg.CacheDir)
	}
	return pyrt.NewSystem(cfg.Python)
}

func newFallback(cfg *config.ExtractConfig, policy *extract.Policy) extract.Extractor {
	if cfg.Fallback == config.FallbackSyntax {
		return extract.NewSyntax(policy)
	}
	return extract.NewFallback()
}

// generate extracts the units named by args, or the runtime's standard
// library when args is empty, and writes the tag file named in cfg.
func generate(ctx context.Context, cfg *config.Config, rt pyrt.Runtime, args []string, logger *slog.Logger, progress pipeline.ProgressReporter) (*pipeline.Summary, error) {
	if progress == nil {
		progress = pipeline.NoOpProgressReporter{}
	}
	info, err := rt.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe python runtime: %w", err)
	}
	logger.Info("using python runtime", "python", info.Identity(), "executable", info.Executable)

	policy, err := extract.NewPolicy(cfg.Rules())
	if err != nil {
		return nil, err
	}
	sanitizer := sanitize.New(info.Executable, info.Prefixes()...)
	primary := extract.NewReflective(rt, sanitizer, policy, logger)
	fallback := newFallback(&cfg.Extract, policy)

	discovery := pipeline.NewDiscovery(policy, cfg.Ignore.Paths...)
	var units []extract.Unit
	if len(args) == 0 {
		if info.Stdlib == "" {
			return nil, fmt.Errorf("%w: runtime reported no standard library directory", pyrt.ErrRuntime)
		}
		progress.OnDiscoveryStart(info.Stdlib)
		units, err = discovery.Root(info.Stdlib)
	} else {
		progress.OnDiscoveryStart(strings.Join(args, " "))
		units, err = discovery.Resolve(args)
	}
	if err != nil {
		return nil, err
	}
	progress.OnDiscoveryComplete(len(units))
	logger.Debug("units discovered", "count", len(units))

	runner := pipeline.NewRunner(primary, fallback, tagdb.New(), logger, progress)
	summary, runErr := runner.Run(ctx, units)
	if runErr != nil {
		// whatever was collected before the stop is still written
		logger.Warn("run stopped early", "records", summary.Records, "error", runErr)
	}

	header := tags.NewHeader(generatorName(info.Identity()), time.Now())
	if err := runner.Write(cfg.Output.Path, header, summary); err != nil {
		if runErr != nil {
			logger.Error("failed to write partial tag file", "path", cfg.Output.Path, "error", err)
			return summary, runErr
		}
		return summary, fmt.Errorf("failed to write tag file: %w", err)
	}
	if runErr != nil {
		return summary, runErr
	}

	logger.Info("tag file written",
		"path", summary.Output,
		"records", summary.Records,
		"reflected", summary.Reflected,
		"fell_back", summary.FellBack,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duplicates", summary.DB.Duplicates,
		"rejected", summary.DB.Rejected,
	)
	return summary, nil
}

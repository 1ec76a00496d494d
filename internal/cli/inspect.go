package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/tagsgen/internal/inspect"
)

var (
	inspectRaw    bool
	inspectCounts bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the entries of a tag file",
	Long: `Inspect decodes a tag file and prints one line per entry:

  kind:       [type ]scope :: name(signature)

Lines that cannot be decoded are reported on stderr and do not stop the listing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], inspectRaw, inspectCounts)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "print each undecoded line before its entry")
	inspectCmd.Flags().BoolVar(&inspectCounts, "counts", false, "print entry counts per kind to stderr")
}

func runInspect(out, errOut io.Writer, path string, raw, counts bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tag file: %w", err)
	}
	defer f.Close()

	report, err := inspect.Read(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := inspect.Print(out, report, raw); err != nil {
		return err
	}

	if counts {
		for _, kc := range report.CountKinds() {
			fmt.Fprintf(errOut, "%-12s%s\n", kc.Kind.String()+":", formatNumber(kc.Count))
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(errOut, "%s lines skipped:\n", formatNumber(len(report.Skipped)))
		for _, s := range report.Skipped {
			fmt.Fprintf(errOut, "  line %d: %v\n", s.Line, s.Err)
		}
	}
	return nil
}

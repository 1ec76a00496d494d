package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/tagsgen/internal/config"
	"github.com/mvp-joe/tagsgen/internal/docimport"
	"github.com/mvp-joe/tagsgen/internal/logging"
	"github.com/mvp-joe/tagsgen/internal/tagdb"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

var importOutput string

var importDocCmd = &cobra.Command{
	Use:   "import-doc [file-or-url]",
	Short: "Build a tag file from a JSON function manual",
	Long: `Import-doc converts a JSON manual mapping fully-qualified names to
prototypes into a tag file. The source may be a local file or an http(s) URL;
it defaults to the doc_import.source setting (the PHP manual).

Examples:
  tagsgen import-doc -o std.php.tags
  tagsgen import-doc ./php_manual_en.json -o php.tags
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImportDoc,
}

func init() {
	rootCmd.AddCommand(importDocCmd)
	importDocCmd.Flags().StringVarP(&importOutput, "output", "o", "", "tag file to write (default from config: std.php.tags)")
}

func runImportDoc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.DocImport.Source = args[0]
	}
	if cmd.Flags().Changed("output") {
		cfg.DocImport.Output = importOutput
	}

	logger, _ := logging.WithRun(newLogger(os.Stderr))
	stats, err := importDoc(cmd.Context(), &cfg.DocImport, logger)
	if err != nil {
		return err
	}
	if !quietFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Tags written: %s records from %s entries (%s unmatched)\n",
			formatNumber(stats.Records), formatNumber(stats.Entries), formatNumber(stats.Unmatched))
	}
	return nil
}

// importDoc loads the manual named in cfg and writes its records.
func importDoc(ctx context.Context, cfg *config.DocImportConfig, logger *slog.Logger) (docimport.Stats, error) {
	if cfg.Source == "" {
		return docimport.Stats{}, fmt.Errorf("no manual source given")
	}
	if cfg.Output == "" {
		return docimport.Stats{}, fmt.Errorf("no output file given")
	}

	records, stats, err := docimport.Load(ctx, cfg.Source, cfg.DownloadDir, logger)
	if err != nil {
		return stats, err
	}

	db := tagdb.New()
	for _, rec := range records {
		if _, err := db.Add(rec); err != nil {
			logger.Debug("record rejected", "record", rec.String(), "error", err)
		}
	}
	stats.Records = db.Len()

	header := tags.NewHeader(generatorName("doc import"), time.Now())
	if err := db.WriteFile(cfg.Output, header); err != nil {
		return stats, fmt.Errorf("failed to write tag file: %w", err)
	}
	logger.Info("tag file written", "path", cfg.Output, "records", stats.Records, "unmatched", stats.Unmatched, "private", stats.Private)
	return stats, nil
}

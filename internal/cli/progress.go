package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/tagsgen/internal/pipeline"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// CLIProgressReporter shows a progress bar on one writer and the final
// summary on another.
type CLIProgressReporter struct {
	bar       *progressbar.ProgressBar
	barOut    io.Writer
	out       io.Writer
	startTime time.Time
}

// NewCLIProgressReporter creates a reporter drawing its bar on barOut and
// printing messages to out.
func NewCLIProgressReporter(barOut, out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{
		barOut:    barOut,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart(root string) {
	fmt.Fprintf(c.out, "Discovering units in %s...\n", root)
}

func (c *CLIProgressReporter) OnDiscoveryComplete(units int) {
	fmt.Fprintf(c.out, "Found %s units\n", formatNumber(units))
}

func (c *CLIProgressReporter) OnUnitsStart(total int) {
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.barOut),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("units/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.barOut)
		}),
	)
}

func (c *CLIProgressReporter) OnUnitProcessed(unit string) {
	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnWriting(path string) {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
	fmt.Fprintf(c.out, "Writing %s...\n", path)
}

func (c *CLIProgressReporter) OnComplete(summary *pipeline.Summary) {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Tags written: %s records in %.1fs\n",
		formatNumber(summary.Records), time.Since(c.startTime).Seconds())
	fmt.Fprintf(c.out, "  Units:      %s (%s reflected, %s scanned, %s skipped, %s failed)\n",
		formatNumber(summary.Units),
		formatNumber(summary.Reflected),
		formatNumber(summary.FellBack),
		formatNumber(summary.Skipped),
		formatNumber(summary.Failed))
	fmt.Fprintf(c.out, "  From scans: %s records\n",
		formatNumber(summary.DB.Added[tags.OriginFallback]+summary.DB.Added[tags.OriginSyntax]))
	if summary.DB.Duplicates > 0 || summary.DB.Rejected > 0 {
		fmt.Fprintf(c.out, "  Dropped:    %s duplicates, %s rejected\n",
			formatNumber(summary.DB.Duplicates), formatNumber(summary.DB.Rejected))
	}
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	return humanize.Comma(int64(n))
}

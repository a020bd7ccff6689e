package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/corpus"
	"github.com/sells-group/corpus-cli/internal/fetcher"
	"github.com/sells-group/corpus-cli/internal/source"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Assemble the deduplicated corpus",
	Long: `Assemble the corpus by streaming each configured source in order.

Every record is stripped, length-filtered, and fingerprinted; records whose
fingerprint was already written — by any source in this run — are skipped.
Each source stops at its fraction of the total byte target. The output file
is recreated at the start of every run; runs are not additive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "collect"))

		opts, err := parseCollectOpts(cmd)
		if err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		reg, err := source.NewRegistry(cfg.Sources, f, cfg.Fetch)
		if err != nil {
			return eris.Wrap(err, "collect: build sources")
		}

		engine := corpus.NewEngine(cfg.Corpus, reg)

		log.Info("starting collect",
			zap.Strings("sources", opts.Sources),
			zap.Bool("dry_run", opts.DryRun),
		)

		summary, err := engine.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "collect")
		}

		printSummary(summary)
		return nil
	},
}

func init() {
	collectCmd.Flags().String("output", "", "output file path (overrides config)")
	collectCmd.Flags().Int64("target-bytes", 0, "total byte budget (overrides config)")
	collectCmd.Flags().String("sources", "", "comma-separated source names (default: all configured)")
	collectCmd.Flags().Int("min-chars", 0, "minimum record length in characters (overrides config)")
	collectCmd.Flags().Int("max-chars", 0, "maximum record length in characters (overrides config)")
	collectCmd.Flags().Bool("dry-run", false, "filter and dedup but write nothing")
	rootCmd.AddCommand(collectCmd)
}

// parseCollectOpts extracts corpus.RunOpts from the command flags and
// applies the flag overrides onto the loaded config.
func parseCollectOpts(cmd *cobra.Command) (corpus.RunOpts, error) {
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Corpus.OutputPath = output
	}
	if target, _ := cmd.Flags().GetInt64("target-bytes"); target > 0 {
		cfg.Corpus.TargetBytes = target
	}
	if minChars, _ := cmd.Flags().GetInt("min-chars"); minChars > 0 {
		cfg.Corpus.MinChars = minChars
	}
	if maxChars, _ := cmd.Flags().GetInt("max-chars"); maxChars > 0 {
		cfg.Corpus.MaxChars = maxChars
	}
	if err := cfg.Validate(); err != nil {
		return corpus.RunOpts{}, err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	sourcesStr, _ := cmd.Flags().GetString("sources")

	return corpus.RunOpts{
		Sources: splitList(sourcesStr),
		DryRun:  dryRun,
	}, nil
}

// splitList splits a comma-separated flag value, trimming whitespace
// and dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(s *corpus.Summary) {
	for _, p := range s.Passes {
		fmt.Printf("  %-24s %12s  %8d kept\n", p.Source, humanBytes(p.BytesWritten), p.RecordsKept)
	}
	fmt.Printf("Finished: wrote %s of deduplicated text to %s\n", humanBytes(s.TotalBytes), s.OutputPath)
	fmt.Printf("Unique snippets kept: %d\n", s.TotalKept)
}

// humanBytes renders a byte count the way the summary wants it: MB with
// one decimal above 1 MB, otherwise raw bytes.
func humanBytes(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1f MB", float64(n)/1e6)
	}
	return fmt.Sprintf("%d B", n)
}

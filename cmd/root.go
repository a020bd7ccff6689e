package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "corpus-cli",
	Short: "Deduplicated text corpus builder",
	Long:  "Streams records from configured dataset sources, filters them by length, deduplicates by content fingerprint, and writes the survivors to a newline-delimited corpus file until a byte budget is reached.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/config"

	// Object-store backends register their URI schemes.
	_ "github.com/sells-group/market-etl/internal/objstore/gcs"
	_ "github.com/sells-group/market-etl/internal/objstore/local"
	_ "github.com/sells-group/market-etl/internal/objstore/s3"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "market-etl",
	Short: "Market-tracker ETL pipeline",
	Long:  "Downloads the published market-tracker extracts, projects and types the tracked columns, writes snappy-compressed Parquet, and loads the Postgres warehouse.",
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

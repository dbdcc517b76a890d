package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/db"
	"github.com/sells-group/market-etl/internal/etl/dataset"
)

var loadUpsert bool

var loadCmd = &cobra.Command{
	Use:   "load <dataset>",
	Short: "Load a cleaned extract into the warehouse",
	Long: `Reads the cleaned Parquet output for a dataset and loads it into its
warehouse table. The default mode truncates the table and bulk-copies the
rows; --upsert merges on the natural key instead, leaving rows from other
periods in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("warehouse"); err != nil {
			return err
		}
		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}

		reg, err := dataset.NewRegistry(cfg)
		if err != nil {
			return err
		}
		ds, err := reg.Get(args[0])
		if err != nil {
			return err
		}

		sess, err := newSession("", "")
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		pool, err := warehousePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		n, err := ds.Load(ctx, sess, pool, loadUpsert)
		if err != nil {
			return eris.Wrapf(err, "load %s", ds.Name())
		}

		zap.L().Info("load complete",
			zap.String("dataset", ds.Name()),
			zap.String("table", ds.Table()),
			zap.Int64("rows", n),
			zap.Bool("upsert", loadUpsert))
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadUpsert, "upsert", false, "merge on the natural key instead of truncate and reload")
	rootCmd.AddCommand(loadCmd)
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/etl/dataset"
)

var (
	runAll    bool
	runInput  string
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run [dataset...]",
	Short: "Transform fetched extracts into clean Parquet tables",
	Long: `Executes the transformation for each selected dataset: load the raw
extract, project the tracked columns, drop rows with null metrics, derive the
period columns, and write the Parquet output. Every execution is recorded in
the run log; a failed dataset does not stop the others, but any failure makes
the command exit non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 && !runAll {
			return eris.New("run: name at least one dataset or pass --all")
		}
		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess, err := newSession(runInput, runOutput)
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		reg, err := dataset.NewRegistry(cfg)
		if err != nil {
			return err
		}

		engine := dataset.NewEngine(sess, st, reg)

		zap.L().Info("starting transformation", zap.Strings("datasets", args), zap.Bool("all", runAll))

		return engine.Run(ctx, dataset.RunOpts{Datasets: args})
	},
}

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every registered dataset")
	runCmd.Flags().StringVar(&runInput, "input", "", "override the raw storage prefix for this run")
	runCmd.Flags().StringVar(&runOutput, "output", "", "override the clean storage prefix for this run")
	rootCmd.AddCommand(runCmd)
}

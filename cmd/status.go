package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-etl/internal/etl/dataset"
	"github.com/sells-group/market-etl/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-dataset pipeline health",
	Long:  "Summarizes the run log into per-dataset health: last run, time since last success, and current failure streak.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg, err := dataset.NewRegistry(cfg)
		if err != nil {
			return err
		}

		collector := monitoring.NewCollector(st, reg.Names())
		snap, err := collector.Collect(ctx)
		if err != nil {
			return err
		}

		formatStatus(os.Stdout, snap)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatStatus writes the health snapshot as a table to out.
func formatStatus(out io.Writer, snap *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tLAST RUN\tSTATUS\tAGE\tSTREAK\tRUNS\tLAST ERROR")
	_, _ = fmt.Fprintln(w, "-------\t--------\t------\t---\t------\t----\t----------")

	now := time.Now().UTC()
	for _, h := range snap.Datasets {
		lastRun := "-"
		status := "never run"
		lastErr := ""
		if h.LastRun != nil {
			lastRun = h.LastRun.StartedAt.Format("2006-01-02 15:04")
			status = string(h.LastRun.Status)
			lastErr = h.LastRun.Error
		}

		ageStr := "-"
		if age, ok := h.Age(now); ok {
			ageStr = formatAge(age)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			h.Dataset,
			lastRun,
			status,
			ageStr,
			h.FailureStreak,
			h.Succeeded, h.Total,
			truncate(lastErr, 40),
		)
	}
	_ = w.Flush()
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

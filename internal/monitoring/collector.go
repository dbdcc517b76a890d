// Package monitoring distills the run log into per-dataset health: the
// latest run, time since the last success, and how many runs in a row have
// failed. The status command and the /api/status endpoint render what
// Collect returns; in serve mode a background Checker watches the same
// snapshot and pushes webhook alerts for datasets that go stale or keep
// failing.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/model"
	"github.com/sells-group/market-etl/internal/store"
)

// streakWindow bounds how far back the failure-streak walk looks. A dataset
// that has failed more times in a row than this reports streakWindow.
const streakWindow = 50

// DatasetHealth is the health of one dataset cut, derived from its run
// history. The embedded stats cover the full history; LastRun and
// FailureStreak describe the recent past.
type DatasetHealth struct {
	model.DatasetStats
	LastRun       *model.Run `json:"last_run,omitempty"`
	FailureStreak int        `json:"failure_streak"`
}

// Age returns how long ago the dataset last succeeded. ok is false when it
// never has.
func (h *DatasetHealth) Age(now time.Time) (age time.Duration, ok bool) {
	if h.LastSuccess == nil {
		return 0, false
	}
	return now.Sub(*h.LastSuccess), true
}

// Snapshot is the health of every known dataset at one point in time.
type Snapshot struct {
	CollectedAt time.Time       `json:"collected_at"`
	Datasets    []DatasetHealth `json:"datasets"`
}

// Collector assembles Snapshots from the run log.
type Collector struct {
	store    store.Store
	datasets []string
}

// NewCollector creates a Collector over the given run store. datasets names
// every cut to report on; a cut with no run history still appears in the
// snapshot, so a dataset that has never run stays visible.
func NewCollector(st store.Store, datasets []string) *Collector {
	return &Collector{store: st, datasets: datasets}
}

// Collect builds a point-in-time health snapshot from the run log.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: aggregate run stats")
	}
	byDataset := make(map[string]model.DatasetStats, len(stats))
	for _, s := range stats {
		byDataset[s.Dataset] = s
	}

	names := c.names(byDataset)
	snap := &Snapshot{
		CollectedAt: time.Now().UTC(),
		Datasets:    make([]DatasetHealth, 0, len(names)),
	}
	for _, name := range names {
		h := DatasetHealth{DatasetStats: byDataset[name]}
		h.Dataset = name

		runs, err := c.store.ListRuns(ctx, store.RunFilter{Dataset: name, Limit: streakWindow})
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: list runs for %s", name)
		}
		if len(runs) > 0 {
			latest := runs[0]
			h.LastRun = &latest
		}
		h.FailureStreak = failureStreak(runs)

		snap.Datasets = append(snap.Datasets, h)
	}
	return snap, nil
}

// names merges the configured dataset names with any extra names found in
// the run log, so retired cuts with history still show up.
func (c *Collector) names(observed map[string]model.DatasetStats) []string {
	seen := make(map[string]bool, len(c.datasets))
	names := make([]string, 0, len(c.datasets)+len(observed))
	for _, n := range c.datasets {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range observed {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// failureStreak counts consecutive failed runs, newest first. Runs still in
// progress neither extend nor break the streak.
func failureStreak(runs []model.Run) int {
	streak := 0
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusFailed:
			streak++
		case model.RunStatusSucceeded:
			return streak
		}
	}
	return streak
}

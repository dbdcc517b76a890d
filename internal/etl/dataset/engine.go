package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/store"
)

// Engine orchestrates transformation runs, recording each one in the run
// store. It continues past a failed dataset and reports the aggregate
// outcome at the end.
type Engine struct {
	sess  *etl.Session
	store store.Store
	reg   *Registry
}

// RunOpts configures which datasets to run.
type RunOpts struct {
	Datasets []string // restrict to specific dataset names; empty means all
}

// NewEngine creates a new run engine.
func NewEngine(sess *etl.Session, st store.Store, reg *Registry) *Engine {
	return &Engine{sess: sess, store: st, reg: reg}
}

// Run iterates over the selected datasets and executes each one. Every
// execution is recorded in the run store. A dataset failure does not stop
// the loop; the returned error reports how many failed.
func (e *Engine) Run(ctx context.Context, opts RunOpts) error {
	log := zap.L().With(zap.String("component", "etl.engine"))

	datasets, err := e.reg.Select(opts.Datasets)
	if err != nil {
		return err
	}

	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return nil
	}

	log.Info("selected datasets", zap.Int("count", len(datasets)))

	var failed int

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, _, err := e.runOne(ctx, ds); err != nil {
			failed++
		}
	}

	log.Info("engine run complete",
		zap.Int("succeeded", len(datasets)-failed),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return eris.Errorf("engine: %d of %d datasets failed", failed, len(datasets))
	}
	return nil
}

// RunAsync starts a run for one dataset in the background and returns its
// run id immediately. The execution detaches from the caller's context.
func (e *Engine) RunAsync(ctx context.Context, ds Dataset) (string, error) {
	id, err := e.store.StartRun(ctx, ds.Name())
	if err != nil {
		return "", eris.Wrapf(err, "engine: start run for %s", ds.Name())
	}

	go e.execute(context.Background(), zap.L().With(zap.String("component", "etl.engine")), ds, id)
	return id, nil
}

// runOne records and executes a single dataset run.
func (e *Engine) runOne(ctx context.Context, ds Dataset) (string, *etl.Result, error) {
	log := zap.L().With(zap.String("component", "etl.engine"))

	id, err := e.store.StartRun(ctx, ds.Name())
	if err != nil {
		return "", nil, eris.Wrapf(err, "engine: start run for %s", ds.Name())
	}

	result, err := e.execute(ctx, log, ds, id)
	return id, result, err
}

// execute runs the dataset and records the outcome against the run id.
func (e *Engine) execute(ctx context.Context, log *zap.Logger, ds Dataset, id string) (*etl.Result, error) {
	dsLog := log.With(zap.String("dataset", ds.Name()), zap.String("run_id", id))
	dsLog.Info("starting run")

	start := time.Now()
	result, err := ds.Run(ctx, e.sess)
	elapsed := time.Since(start)

	if err != nil {
		dsLog.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if logErr := e.store.FailRun(ctx, id, err.Error()); logErr != nil {
			dsLog.Error("failed to record run failure", zap.Error(logErr))
		}
		return nil, err
	}

	if err := e.store.CompleteRun(ctx, id, result); err != nil {
		dsLog.Error("failed to record run completion", zap.Error(err))
	}

	dsLog.Info("run complete",
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Int64("rows_dropped", result.RowsDropped),
		zap.Int64("rows_written", result.RowsWritten),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

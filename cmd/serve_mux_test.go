//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-etl/internal/config"
	"github.com/sells-group/market-etl/internal/etl"
	"github.com/sells-group/market-etl/internal/etl/dataset"
	"github.com/sells-group/market-etl/internal/model"
	"github.com/sells-group/market-etl/internal/monitoring"
	"github.com/sells-group/market-etl/internal/store"
)

// newServeStore opens a migrated sqlite run store in a temp dir.
func newServeStore(t *testing.T) store.Store {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// newTestRouter wires a router over a fresh store and empty storage dirs.
func newTestRouter(t *testing.T, st store.Store) *chi.Mux {
	t.Helper()

	sess, err := etl.NewSession(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	reg, err := dataset.NewRegistry(&config.Config{})
	require.NoError(t, err)

	engine := dataset.NewEngine(sess, st, reg)
	collector := monitoring.NewCollector(st, reg.Names())
	return buildRouter(st, engine, reg, collector)
}

func TestBuildRouter_Healthz(t *testing.T) {
	r := newTestRouter(t, newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_ListRuns_Empty(t *testing.T) {
	r := newTestRouter(t, newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
	assert.Empty(t, body.Runs)
}

func TestBuildRouter_ListRuns_InvalidLimit(t *testing.T) {
	r := newTestRouter(t, newServeStore(t))

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit="+limit, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", limit)
		assert.Contains(t, rr.Body.String(), "limit must be a positive integer")
	}
}

func TestBuildRouter_ListRuns_FiltersByDataset(t *testing.T) {
	st := newServeStore(t)
	ctx := context.Background()

	cityID, err := st.StartRun(ctx, "city")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, cityID, "fetch city: unexpected status 503"))

	countyID, err := st.StartRun(ctx, "county")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, countyID, &etl.Result{RowsWritten: 12}))

	r := newTestRouter(t, st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?dataset=city", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "city", body.Runs[0].Dataset)
	assert.Equal(t, model.RunStatusFailed, body.Runs[0].Status)
}

func TestBuildRouter_GetRun_NotFound(t *testing.T) {
	r := newTestRouter(t, newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/no-such-run", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "run not found")
}

func TestBuildRouter_GetRun_Found(t *testing.T) {
	st := newServeStore(t)
	ctx := context.Background()

	id, err := st.StartRun(ctx, "national")
	require.NoError(t, err)

	r := newTestRouter(t, st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "national", run.Dataset)
	assert.Equal(t, model.RunStatusRunning, run.Status)
}

func TestBuildRouter_Status(t *testing.T) {
	st := newServeStore(t)
	ctx := context.Background()

	id, err := st.StartRun(ctx, "city")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, id, "fetch city: unexpected status 503"))

	r := newTestRouter(t, st)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.Datasets)

	var city *monitoring.DatasetHealth
	for i := range snap.Datasets {
		if snap.Datasets[i].Dataset == "city" {
			city = &snap.Datasets[i]
		}
	}
	require.NotNil(t, city)
	assert.Equal(t, 1, city.FailureStreak)
	require.NotNil(t, city.LastRun)
	assert.Equal(t, model.RunStatusFailed, city.LastRun.Status)
}

func TestBuildRouter_TriggerRun_UnknownDataset(t *testing.T) {
	r := newTestRouter(t, newServeStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/bogus/run", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "bogus")
}

func TestBuildRouter_TriggerRun_Accepted(t *testing.T) {
	st := newServeStore(t)
	r := newTestRouter(t, st)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/city/run", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "city", resp["dataset"])
	require.NotEmpty(t, resp["run_id"])

	// The background run fails fast against the empty raw dir; wait for the
	// store to show the terminal state so the async path is fully exercised.
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := st.GetRun(ctx, resp["run_id"])
		require.NoError(t, err)
		if run.Terminal() {
			assert.Equal(t, model.RunStatusFailed, run.Status)
			assert.NotEmpty(t, run.Error)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("triggered run never reached a terminal state")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

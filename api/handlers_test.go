package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal/comparator"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/internal/specstore"
	"gaitspec/internal/testkit"
	"gaitspec/internal/tuner"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

// stubReader serves preloaded datasets by path
type stubReader struct {
	datasets map[string]*ports.Dataset
}

func (s *stubReader) ReadDataset(ctx context.Context, path string) (*ports.Dataset, error) {
	ds, ok := s.datasets[path]
	if !ok {
		return nil, core.NewDataFormatError("no such fixture "+path, "check the test setup")
	}
	return ds, nil
}

func newTestApp(t *testing.T) (*App, *specstore.Store) {
	t.Helper()
	store, err := specstore.New(testkit.SeedRanges(-1, 1), "seed", nil, nil)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	val := validator.NewValidator(segmenter.NewSegmenter(0, nil), resampler.NewResampler(150), 4, nil)
	reader := &stubReader{datasets: map[string]*ports.Dataset{
		"clean.csv": testkit.ProfileDataset("clean.csv",
			testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 10, 150,
				map[gait.Variable]float64{"knee_flexion_angle_ipsi_rad": 0.2})),
	}}

	app := NewApp(Deps{
		Store:      store,
		Validator:  val,
		Tuner:      tuner.NewTuner(store, val, 30, nil),
		Comparator: comparator.NewComparator(val, nil),
		Reader:     reader,
	})
	return app, store
}

func doJSON(t *testing.T, app *App, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func TestSpecCurrentReportsFullSeed(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app, http.MethodGet, "/api/spec/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var view versionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := len(gait.SupportedTasks()) * len(gait.RequiredVariables()) * len(gait.RepresentativePhases())
	if view.RangeCount != want {
		t.Errorf("range count = %d, want %d", view.RangeCount, want)
	}
	if len(view.Ranges) != want {
		t.Errorf("serialized ranges = %d, want %d", len(view.Ranges), want)
	}
}

func TestValidateEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/validate", map[string]string{"path": "clean.csv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		PassRate float64 `json:"pass_rate"`
		Status   string  `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.PassRate != 100.0 {
		t.Errorf("pass rate = %v, want 100.0", result.PassRate)
	}
}

func TestValidateEndpointBadBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestValidateEndpointUnknownFixture(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/validate", map[string]string{"path": "missing.csv"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommitStaleStagingConflicts(t *testing.T) {
	app, store := newTestApp(t)

	k := rangespec.Key{
		Task:         gait.TaskLevelWalking,
		Variable:     "knee_flexion_angle_ipsi_rad",
		PhasePercent: 50,
	}
	change := rangespec.Change{Op: rangespec.OpSet, Range: rangespec.ValidationRange{Key: k, Min: -2, Max: 2}}

	stale, err := store.Stage(store.LiveVersion(), []rangespec.Change{change})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	fresh, err := store.Stage(store.LiveVersion(), []rangespec.Change{change})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := store.Commit(context.Background(), fresh, "advance live"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rec := doJSON(t, app, http.MethodPost, "/api/spec/commit", map[string]interface{}{
		"change_set": stale,
		"rationale":  "should conflict",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "STALE_STAGING" {
		t.Errorf("error code = %s, want STALE_STAGING", resp.Error.Code)
	}
}

func TestCommitAdvancesSpecVersion(t *testing.T) {
	app, store := newTestApp(t)

	k := rangespec.Key{
		Task:         gait.TaskLevelWalking,
		Variable:     "knee_flexion_angle_ipsi_rad",
		PhasePercent: 50,
	}
	cs, err := store.Stage(store.LiveVersion(), []rangespec.Change{
		{Op: rangespec.OpSet, Range: rangespec.ValidationRange{Key: k, Min: -2, Max: 2}},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	rec := doJSON(t, app, http.MethodPost, "/api/spec/commit", map[string]interface{}{
		"change_set": cs,
		"rationale":  "widen knee",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var view versionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Seq != 2 {
		t.Errorf("committed seq = %d, want 2", view.Seq)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gaitspec/domain/core"
	"gaitspec/domain/rangespec"
	"gaitspec/domain/verdict"
	"gaitspec/internal/comparator"
	"gaitspec/internal/errors"
	"gaitspec/internal/tuner"
	"gaitspec/ports"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"spec_version": a.store.LiveVersion().String(),
	})
}

// validateRequest names a dataset to validate against the live spec
type validateRequest struct {
	Path string `json:"path"`
}

func (a *App) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	ds, err := a.reader.ReadDataset(r.Context(), req.Path)
	if err != nil {
		writeError(w, a, err)
		return
	}

	result, err := a.validator.Validate(r.Context(), ds, a.store.Snapshot())
	if err != nil {
		writeError(w, a, err)
		return
	}
	a.recordResult(r, result)
	writeJSON(w, http.StatusOK, result)
}

type validateBatchRequest struct {
	Paths []string `json:"paths"`
}

func (a *App) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req validateBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	datasets, err := a.loadDatasets(r, req.Paths)
	if err != nil {
		writeError(w, a, err)
		return
	}

	results, err := a.validator.ValidateBatch(r.Context(), datasets, a.store.Snapshot())
	if err != nil {
		writeError(w, a, err)
		return
	}
	for _, result := range results {
		a.recordResult(r, result)
	}
	writeJSON(w, http.StatusOK, results)
}

// recordResult appends to the audit trail when a repository is wired.
// Persistence failure never fails the validation request itself.
func (a *App) recordResult(r *http.Request, result *verdict.DatasetValidationResult) {
	if a.results == nil || result == nil {
		return
	}
	if err := a.results.SaveResult(r.Context(), result); err != nil {
		a.logger.Warn("failed to record validation result for %s: %v", result.DatasetID, err)
	}
}

func (a *App) handleResults(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		writeError(w, a, errors.NotFound("validation result history (no database configured)"))
		return
	}

	id, err := core.ParseDatasetID(chi.URLParam(r, "datasetID"))
	if err != nil {
		writeError(w, a, errors.New(errors.CodeDataFormat, err.Error()))
		return
	}

	results, err := a.results.ListResults(r.Context(), id, 50)
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// versionView is the wire shape of a committed version; the range map is
// flattened to a sorted array because struct-keyed maps do not serialize.
type versionView struct {
	ID          core.VersionID              `json:"id"`
	Seq         int                         `json:"seq"`
	Rationale   string                      `json:"rationale"`
	CommittedAt core.Timestamp              `json:"committed_at"`
	Fingerprint core.SpecFingerprint        `json:"fingerprint"`
	RangeCount  int                         `json:"range_count"`
	Ranges      []rangespec.ValidationRange `json:"ranges,omitempty"`
}

func viewOf(v *rangespec.Version, includeRanges bool) versionView {
	view := versionView{
		ID:          v.ID,
		Seq:         v.Seq,
		Rationale:   v.Rationale,
		CommittedAt: v.CommittedAt,
		Fingerprint: v.Fingerprint,
		RangeCount:  len(v.Ranges),
	}
	if includeRanges {
		for _, k := range v.SortedKeys() {
			view.Ranges = append(view.Ranges, v.Ranges[k])
		}
	}
	return view
}

func (a *App) handleSpecCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(a.store.Snapshot(), true))
}

func (a *App) handleSpecVersions(w http.ResponseWriter, r *http.Request) {
	versions := a.store.Versions()
	views := make([]versionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, viewOf(v, false))
	}
	writeJSON(w, http.StatusOK, views)
}

type proposeManualRequest struct {
	Edits []tuner.ManualEdit `json:"edits"`
}

func (a *App) handleProposeManual(w http.ResponseWriter, r *http.Request) {
	var req proposeManualRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	cs, err := a.tuner.ProposeManual(req.Edits)
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type proposeAutoRequest struct {
	Paths  []string `json:"paths"`
	Method string   `json:"method"`
}

func (a *App) handleProposeAuto(w http.ResponseWriter, r *http.Request) {
	var req proposeAutoRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	refs, err := a.loadDatasets(r, req.Paths)
	if err != nil {
		writeError(w, a, err)
		return
	}

	cs, err := a.tuner.ProposeAutomated(r.Context(), refs, tuner.Method(req.Method))
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type previewRequest struct {
	ChangeSet    *rangespec.ChangeSet `json:"change_set"`
	HoldoutPaths []string             `json:"holdout_paths"`
}

func (a *App) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}
	if req.ChangeSet == nil {
		writeError(w, a, errors.New(errors.CodeDataFormat, "change_set is required"))
		return
	}

	holdout, err := a.loadDatasets(r, req.HoldoutPaths)
	if err != nil {
		writeError(w, a, err)
		return
	}

	preview, err := a.tuner.PreviewImpact(r.Context(), req.ChangeSet, holdout)
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type commitRequest struct {
	ChangeSet *rangespec.ChangeSet `json:"change_set"`
	Rationale string               `json:"rationale"`
}

func (a *App) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}
	if req.ChangeSet == nil {
		writeError(w, a, errors.New(errors.CodeDataFormat, "change_set is required"))
		return
	}

	v, err := a.tuner.Commit(r.Context(), req.ChangeSet, req.Rationale)
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(v, false))
}

type rollbackRequest struct {
	VersionID string `json:"version_id"`
	Rationale string `json:"rationale"`
}

func (a *App) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	id, err := core.ParseVersionID(req.VersionID)
	if err != nil {
		writeError(w, a, errors.New(errors.CodeDataFormat, err.Error()))
		return
	}

	v, err := a.store.Rollback(r.Context(), id, req.Rationale)
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(v, false))
}

type compareRequest struct {
	Paths []string `json:"paths"`
	Test  string   `json:"test"`
	Alpha float64  `json:"alpha"`
}

func (a *App) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, a, err)
		return
	}

	datasets, err := a.loadDatasets(r, req.Paths)
	if err != nil {
		writeError(w, a, err)
		return
	}

	result, err := a.comparator.Compare(r.Context(), datasets, comparator.Config{
		Test:  comparator.TestKind(req.Test),
		Alpha: req.Alpha,
	})
	if err != nil {
		writeError(w, a, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *App) loadDatasets(r *http.Request, paths []string) ([]*ports.Dataset, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.CodeDataFormat, "paths is required")
	}
	datasets := make([]*ports.Dataset, 0, len(paths))
	for _, path := range paths {
		ds, err := a.reader.ReadDataset(r.Context(), path)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func decodeBody(r *http.Request, into interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.New(errors.CodeDataFormat, "invalid request body: "+err.Error())
	}
	return nil
}

// errorResponse is the wire shape of every handler failure
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, a *App, err error) {
	code := errors.GetCode(err)

	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = err.Error()

	status := http.StatusInternalServerError
	switch code {
	case errors.CodeDataFormat, errors.CodeUnknownTask, errors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case errors.CodeInsufficientData, errors.CodeInsufficientSample, errors.CodeSpecIntegrity:
		status = http.StatusUnprocessableEntity
	case errors.CodeStaleStaging:
		status = http.StatusConflict
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed: %v", err)
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

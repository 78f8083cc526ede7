package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ibis-project/ibis-examples/models"
)

type stubRunner struct {
	runs   []string
	err    error
	status []models.ArtifactStatus
}

func (s *stubRunner) Run(ctx context.Context, name string) ([]models.Report, error) {
	s.runs = append(s.runs, name)
	if s.err != nil {
		return nil, s.err
	}
	return []models.Report{{Pipeline: name, Stages: []models.StageResult{{Stage: "fetch", Skipped: true}}}}, nil
}

func (s *stubRunner) Status() ([]models.ArtifactStatus, error) {
	return s.status, nil
}

type stubLedger struct{ artifacts []models.Artifact }

func (s stubLedger) ListArtifacts(ctx context.Context) ([]models.Artifact, error) {
	return s.artifacts, nil
}

func serve(t *testing.T, h *AdminHandler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestPrepare(t *testing.T) {
	runner := &stubRunner{}
	rec := serve(t, &AdminHandler{Runner: runner}, http.MethodPost, "/api/admin/prepare/Campaign")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(runner.runs) != 1 || runner.runs[0] != "campaign" {
		t.Fatalf("unexpected runs %v", runner.runs)
	}
	var reports []models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reports) != 1 || reports[0].Pipeline != "campaign" {
		t.Fatalf("unexpected reports %+v", reports)
	}
}

func TestPrepareRejectsUnknownPipeline(t *testing.T) {
	runner := &stubRunner{}
	rec := serve(t, &AdminHandler{Runner: runner}, http.MethodPost, "/api/admin/prepare/everything")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("no pipeline should run, got %v", runner.runs)
	}
}

func TestPrepareFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("archive error: member missing")}
	rec := serve(t, &AdminHandler{Runner: runner}, http.MethodPost, "/api/admin/prepare/all")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestPrepareRequiresPost(t *testing.T) {
	rec := serve(t, &AdminHandler{Runner: &stubRunner{}}, http.MethodGet, "/api/admin/prepare/campaign")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestListArtifacts(t *testing.T) {
	h := &AdminHandler{
		Runner: &stubRunner{status: []models.ArtifactStatus{{Pipeline: "tutorial", Stage: "fetch", Path: "geography.db", Exists: true}}},
		Ledger: stubLedger{artifacts: []models.Artifact{{Pipeline: "tutorial", Stage: "fetch"}}},
	}
	rec := serve(t, h, http.MethodGet, "/api/artifacts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp artifactsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Local) != 1 || !resp.Local[0].Exists || len(resp.Ledger) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	rec := serve(t, &AdminHandler{Runner: &stubRunner{}}, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

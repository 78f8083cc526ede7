// handlers/admin_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ibis-project/ibis-examples/models"
	"github.com/ibis-project/ibis-examples/services"
)

// PipelineRunner runs a named pipeline and reports on-disk artifact state.
type PipelineRunner interface {
	Run(ctx context.Context, name string) ([]models.Report, error)
	Status() ([]models.ArtifactStatus, error)
}

// ArtifactLister reads the artifact ledger.
type ArtifactLister interface {
	ListArtifacts(ctx context.Context) ([]models.Artifact, error)
}

// AdminHandler exposes the pipelines over HTTP. Runs are serialized, since
// stages coordinate only through the files they leave behind.
type AdminHandler struct {
	Runner PipelineRunner
	Ledger ArtifactLister // optional

	mu sync.Mutex
}

// NewRouter registers the admin routes.
func NewRouter(h *AdminHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/artifacts", h.ListArtifacts).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/prepare/{pipeline}", h.Prepare).Methods(http.MethodPost)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path))
	})
	return r
}

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	log.Printf("API Error %d: %s", code, message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type artifactsResponse struct {
	Local  []models.ArtifactStatus `json:"local"`
	Ledger []models.Artifact       `json:"ledger,omitempty"`
}

// ListArtifacts returns on-disk artifact state and, when a ledger is
// configured, the recorded history.
func (h *AdminHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	local, err := h.Runner.Status()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read artifact status: %v", err))
		return
	}
	resp := artifactsResponse{Local: local}
	if h.Ledger != nil {
		resp.Ledger, err = h.Ledger.ListArtifacts(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read artifact ledger: %v", err))
			return
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Prepare handles POST /api/admin/prepare/{pipeline} where {pipeline} is
// "campaign", "tutorial" or "all".
func (h *AdminHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(mux.Vars(r)["pipeline"])
	switch name {
	case services.PipelineCampaign, services.PipelineTutorial, "all":
	default:
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid pipeline '%s'. Use 'campaign', 'tutorial', or 'all'.", name))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	reports, err := h.Runner.Run(r.Context(), name)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to prepare %s data: %v", name, err))
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}

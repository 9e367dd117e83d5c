package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/db"
	"github.com/tphummel/hwreq/internal/rules"
)

const maxBodyBytes = 64 * 1024

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	DB      *db.DB
	Catalog *catalog.Catalog
	Version string
	Commit  string
}

// Route binds a ServeMux pattern to a handler. Auth routes require the
// Bearer token.
type Route struct {
	Pattern string
	Handler http.HandlerFunc
	Auth    bool
}

// Routes lists every API route served by h.
func (h *Handler) Routes() []Route {
	return []Route{
		{"GET /healthz", h.Health, false},
		{"GET /openapi.yaml", h.OpenAPISpec, false},
		{"GET /docs", h.Docs, false},

		{"GET /api/v1/catalog", h.ListCategories, true},
		{"GET /api/v1/catalog/{category}", h.GetCategory, true},
		{"POST /api/v1/indicators", h.CreateIndicator, true},
		{"POST /api/v1/rules", h.CreateRule, true},

		{"POST /api/v1/requirements", h.CreateRequirementSet, true},
		{"GET /api/v1/requirements", h.ListRequirementSets, true},
		{"GET /api/v1/requirements/{id}", h.GetRequirementSet, true},
		{"PUT /api/v1/requirements/{id}", h.UpdateRequirementSet, true},
		{"DELETE /api/v1/requirements/{id}", h.DeleteRequirementSet, true},
		{"POST /api/v1/requirements/{id}/rules", h.AddRule, true},
		{"DELETE /api/v1/requirements/{id}/rules/{ruleID}", h.RemoveRule, true},
		{"POST /api/v1/requirements/{id}/evaluate", h.EvaluateRequirementSet, true},
		{"POST /api/v1/evaluate", h.EvaluateDraft, true},
	}
}

func (h *Handler) catalog() *catalog.Catalog {
	if h.Catalog == nil {
		return catalog.Default()
	}
	return h.Catalog
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationError responds 400 with the validation code when err carries
// one, and 500 otherwise.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	code, ok := rules.CodeOf(err)
	if !ok {
		slog.Error("unexpected error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}

// decodeBody reads a size-limited JSON body into v. On failure it writes the
// response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		var ve *rules.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, r, err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// Health handles GET /healthz — no auth required.
// Returns 503 if the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
		"commit":  h.Commit,
	})
}

// ListCategories handles GET /api/v1/catalog.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog().Definitions())
}

// GetCategory handles GET /api/v1/catalog/{category}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := catalog.CategoryID(r.PathValue("category"))
	cat := h.catalog()
	if !cat.HasCategory(id) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, cat.FieldsFor(id))
}

// CreateIndicator handles POST /api/v1/indicators. It validates one
// indicator draft without storing it.
func (h *Handler) CreateIndicator(w http.ResponseWriter, r *http.Request) {
	var in rules.IndicatorInput
	if !decodeBody(w, r, &in) {
		return
	}
	ind, err := rules.CreateIndicator(h.catalog(), in)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ind)
}

// CreateRule handles POST /api/v1/rules. It builds and finalizes a rule
// draft without storing it.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in rules.RuleInput
	if !decodeBody(w, r, &in) {
		return
	}
	rule, err := rules.BuildRule(h.catalog(), in)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

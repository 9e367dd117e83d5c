package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/db"
	"github.com/tphummel/hwreq/internal/evaluator"
	"github.com/tphummel/hwreq/internal/metrics"
	"github.com/tphummel/hwreq/internal/rules"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// CreateRequirementSetRequest is the body of POST /api/v1/requirements.
type CreateRequirementSetRequest struct {
	CustomerID string            `json:"customer_id"`
	Rules      []rules.RuleInput `json:"rules"`
}

// UpdateRequirementSetRequest is the body of PUT /api/v1/requirements/{id}.
type UpdateRequirementSetRequest struct {
	Rules []rules.RuleInput `json:"rules"`
}

// Summary is one row of the requirement set listing.
type Summary struct {
	ID             string               `json:"id"`
	CustomerID     string               `json:"customer_id"`
	Categories     []catalog.CategoryID `json:"categories"`
	RuleCount      int                  `json:"rule_count"`
	IndicatorCount int                  `json:"indicator_count"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ListResponse is a page of requirement set summaries.
type ListResponse struct {
	Items   []Summary `json:"items"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	Total   int       `json:"total"`
}

// EvaluateDraftRequest is the body of POST /api/v1/evaluate.
type EvaluateDraftRequest struct {
	Rules   []rules.RuleInput `json:"rules"`
	Profile evaluator.Profile `json:"profile"`
}

func now() time.Time {
	// Stored timestamps have second precision.
	return time.Now().UTC().Truncate(time.Second)
}

func summarize(s *rules.RequirementSet) Summary {
	cats := s.Categories()
	if cats == nil {
		cats = []catalog.CategoryID{}
	}
	return Summary{
		ID:             s.ID,
		CustomerID:     s.CustomerID,
		Categories:     cats,
		RuleCount:      len(s.Rules),
		IndicatorCount: s.IndicatorCount(),
		UpdatedAt:      s.UpdatedAt,
	}
}

// lookup loads the set named by the {id} path value. On failure it writes
// the response and returns nil.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) *rules.RequirementSet {
	set, err := h.DB.GetByID(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "requirement set not found")
		return nil
	}
	if err != nil {
		slog.Error("failed to get requirement set", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get requirement set")
		return nil
	}
	return set
}

// store validates next against the current catalog and writes it over the
// stored set. Indicators on fields the catalog has since dropped fail here.
func (h *Handler) store(w http.ResponseWriter, r *http.Request, next rules.RequirementSet) bool {
	if err := next.Validate(h.catalog()); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	err := h.DB.Update(&next)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "requirement set not found")
		return false
	}
	if err != nil {
		slog.Error("failed to update requirement set", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update requirement set")
		return false
	}
	return true
}

// CreateRequirementSet handles POST /api/v1/requirements.
func (h *Handler) CreateRequirementSet(w http.ResponseWriter, r *http.Request) {
	var req CreateRequirementSetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	built, err := rules.BuildRules(h.catalog(), req.Rules)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	t := now()
	set, err := rules.Save(rules.ReplaceRules(rules.NewRequirementSet(req.CustomerID, t), built, t))
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	err = h.DB.Create(&set)
	if errors.Is(err, db.ErrCustomerExists) {
		writeError(w, http.StatusConflict, "customer already has a requirement set")
		return
	}
	if err != nil {
		slog.Error("failed to create requirement set", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create requirement set")
		return
	}

	writeJSON(w, http.StatusCreated, set)
}

// ListRequirementSets handles GET /api/v1/requirements with optional ?q=,
// ?page= and ?per_page= parameters.
func (h *Handler) ListRequirementSets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	perPage, err := positiveParam(q.Get("per_page"), defaultPerPage)
	if err != nil || perPage > maxPerPage {
		writeError(w, http.StatusBadRequest, "invalid per_page")
		return
	}

	sets, total, err := h.DB.List(db.ListFilter{
		Query:  q.Get("q"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		slog.Error("failed to list requirement sets", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list requirement sets")
		return
	}

	resp := ListResponse{Items: make([]Summary, 0, len(sets)), Page: page, PerPage: perPage, Total: total}
	for _, s := range sets {
		resp.Items = append(resp.Items, summarize(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func positiveParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}

// GetRequirementSet handles GET /api/v1/requirements/{id}.
func (h *Handler) GetRequirementSet(w http.ResponseWriter, r *http.Request) {
	set := h.lookup(w, r)
	if set == nil {
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// UpdateRequirementSet handles PUT /api/v1/requirements/{id}. The rules are
// replaced wholesale; the owning customer cannot change.
func (h *Handler) UpdateRequirementSet(w http.ResponseWriter, r *http.Request) {
	existing := h.lookup(w, r)
	if existing == nil {
		return
	}

	var req UpdateRequirementSetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	built, err := rules.BuildRules(h.catalog(), req.Rules)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	next := rules.ReplaceRules(*existing, built, now())
	if !h.store(w, r, next) {
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// DeleteRequirementSet handles DELETE /api/v1/requirements/{id}.
func (h *Handler) DeleteRequirementSet(w http.ResponseWriter, r *http.Request) {
	err := h.DB.Delete(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "requirement set not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete requirement set", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete requirement set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddRule handles POST /api/v1/requirements/{id}/rules.
func (h *Handler) AddRule(w http.ResponseWriter, r *http.Request) {
	existing := h.lookup(w, r)
	if existing == nil {
		return
	}

	var in rules.RuleInput
	if !decodeBody(w, r, &in) {
		return
	}
	rule, err := rules.BuildRule(h.catalog(), in)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	next := rules.AddRule(*existing, rule, now())
	if !h.store(w, r, next) {
		return
	}
	writeJSON(w, http.StatusCreated, next)
}

// RemoveRule handles DELETE /api/v1/requirements/{id}/rules/{ruleID}.
// Removing the last rule is rejected since a stored set needs at least one.
func (h *Handler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	existing := h.lookup(w, r)
	if existing == nil {
		return
	}

	ruleID := r.PathValue("ruleID")
	if _, ok := existing.FindRule(ruleID); !ok {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}

	next := rules.RemoveRule(*existing, ruleID, now())
	if !h.store(w, r, next) {
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// EvaluateRequirementSet handles POST /api/v1/requirements/{id}/evaluate.
// The body is a hardware profile.
func (h *Handler) EvaluateRequirementSet(w http.ResponseWriter, r *http.Request) {
	set := h.lookup(w, r)
	if set == nil {
		return
	}

	var profile evaluator.Profile
	if !decodeBody(w, r, &profile) {
		return
	}
	opts, ok := evaluateOptions(w, r)
	if !ok {
		return
	}

	res := evaluator.Evaluate(*set, profile, opts...)
	metrics.RecordEvaluation(res.Satisfied)
	writeJSON(w, http.StatusOK, res)
}

// EvaluateDraft handles POST /api/v1/evaluate: it checks a profile against
// rules that have not been stored.
func (h *Handler) EvaluateDraft(w http.ResponseWriter, r *http.Request) {
	var req EvaluateDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	built, err := rules.BuildRules(h.catalog(), req.Rules)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	opts, ok := evaluateOptions(w, r)
	if !ok {
		return
	}

	set := rules.ReplaceRules(rules.RequirementSet{}, built, now())
	res := evaluator.Evaluate(set, req.Profile, opts...)
	metrics.RecordEvaluation(res.Satisfied)
	writeJSON(w, http.StatusOK, res)
}

// evaluateOptions reads ?trace=full and ?archetype=GPU|CPU.
func evaluateOptions(w http.ResponseWriter, r *http.Request) ([]evaluator.Option, bool) {
	q := r.URL.Query()
	var opts []evaluator.Option
	switch q.Get("trace") {
	case "":
	case "full":
		opts = append(opts, evaluator.WithFullTrace())
	default:
		writeError(w, http.StatusBadRequest, "invalid trace")
		return nil, false
	}
	if a := q.Get("archetype"); a != "" {
		archetype := rules.ServerArchetype(a)
		if !archetype.Valid() {
			writeValidationError(w, r, &rules.ValidationError{Code: rules.CodeInvalidArchetype, Detail: a})
			return nil, false
		}
		opts = append(opts, evaluator.ForArchetype(archetype))
	}
	return opts, true
}

// Package apiclient is an HTTP client for the hwreq REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/evaluator"
	"github.com/tphummel/hwreq/internal/rules"
)

// Client talks to one hwreq service with Bearer token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-success response. Code is the validation code the
// service attached, if any.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("hwreq API returned status %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("hwreq API returned status %d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient creates a Client targeting endpoint.
func NewClient(endpoint, token string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	return &Client{
		baseURL: strings.TrimRight(endpoint, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Summary mirrors one row of the requirement set listing.
type Summary struct {
	ID             string               `json:"id"`
	CustomerID     string               `json:"customer_id"`
	Categories     []catalog.CategoryID `json:"categories"`
	RuleCount      int                  `json:"rule_count"`
	IndicatorCount int                  `json:"indicator_count"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ListPage is one page of summaries.
type ListPage struct {
	Items   []Summary `json:"items"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	Total   int       `json:"total"`
}

// ListOptions narrows ListRequirementSets. Zero values use the server
// defaults.
type ListOptions struct {
	Query   string
	Page    int
	PerPage int
}

// EvaluateOptions mirrors the evaluator options on the wire.
type EvaluateOptions struct {
	FullTrace bool
	Archetype rules.ServerArchetype
}

func (o EvaluateOptions) query() string {
	v := url.Values{}
	if o.FullTrace {
		v.Set("trace", "full")
	}
	if o.Archetype != "" {
		v.Set("archetype", string(o.Archetype))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Catalog returns every category definition the service knows.
func (c *Client) Catalog(ctx context.Context) ([]catalog.CategoryDefinition, error) {
	var out []catalog.CategoryDefinition
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/catalog", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRequirementSets returns one page of requirement set summaries.
func (c *Client) ListRequirementSets(ctx context.Context, opts ListOptions) (*ListPage, error) {
	v := url.Values{}
	if opts.Query != "" {
		v.Set("q", opts.Query)
	}
	if opts.Page > 0 {
		v.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	path := "/api/v1/requirements"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out ListPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRequirementSet fetches one set by ID.
func (c *Client) GetRequirementSet(ctx context.Context, id string) (*rules.RequirementSet, error) {
	var out rules.RequirementSet
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/requirements/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequirementSet stores a new set for customerID.
func (c *Client) CreateRequirementSet(ctx context.Context, customerID string, rs []rules.RuleInput) (*rules.RequirementSet, error) {
	body := map[string]any{"customer_id": customerID, "rules": rs}
	var out rules.RequirementSet
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/requirements", body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRequirementSet replaces the rules of the set with the given ID.
func (c *Client) UpdateRequirementSet(ctx context.Context, id string, rs []rules.RuleInput) (*rules.RequirementSet, error) {
	body := map[string]any{"rules": rs}
	var out rules.RequirementSet
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/requirements/"+url.PathEscape(id), body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRequirementSet removes the set with the given ID.
func (c *Client) DeleteRequirementSet(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/requirements/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Evaluate checks profile against the stored set with the given ID.
func (c *Client) Evaluate(ctx context.Context, id string, profile evaluator.Profile, opts EvaluateOptions) (*evaluator.Result, error) {
	var out evaluator.Result
	path := "/api/v1/requirements/" + url.PathEscape(id) + "/evaluate" + opts.query()
	if err := c.doJSON(ctx, http.MethodPost, path, profile, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateDraft checks profile against rules that are not stored.
func (c *Client) EvaluateDraft(ctx context.Context, rs []rules.RuleInput, profile evaluator.Profile, opts EvaluateOptions) (*evaluator.Result, error) {
	body := map[string]any{"rules": rs, "profile": profile}
	var out evaluator.Result
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/evaluate"+opts.query(), body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, expectedStatus int, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != expectedStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(payload, &e) == nil {
			apiErr.Message, apiErr.Code = e.Error, e.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		return apiErr
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

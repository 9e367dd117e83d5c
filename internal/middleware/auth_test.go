package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tphummel/hwreq/internal/middleware"
)

const operatorToken = "hwreq-operator-token"

// okHandler answers 200 so tests can tell when a request got through.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// authorize sends a GET /api/v1/requirements with the given Authorization
// header (omitted when empty) through Auth and reports whether next ran.
func authorize(token, header string) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requirements", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	middleware.Auth(token, next).ServeHTTP(rec, req)
	return rec, reached
}

func TestAuth_Headers(t *testing.T) {
	tests := []struct {
		name   string
		header string
		allow  bool
	}{
		{"missing", "", false},
		{"basic scheme", "Basic aHdyZXE6c2VjcmV0", false},
		{"scheme without token", "Bearer ", false},
		{"lowercase scheme", "bearer " + operatorToken, false},
		{"extra space before token", "Bearer  " + operatorToken, false},
		{"trailing space", "Bearer " + operatorToken + " ", false},
		{"token prefix", "Bearer " + operatorToken[:5], false},
		{"token with suffix", "Bearer " + operatorToken + "x", false},
		{"other token", "Bearer another-token", false},
		{"valid", "Bearer " + operatorToken, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reached := authorize(operatorToken, tt.header)
			if reached != tt.allow {
				t.Errorf("next reached: got %v, want %v", reached, tt.allow)
			}
			want := http.StatusUnauthorized
			if tt.allow {
				want = http.StatusOK
			}
			if rec.Code != want {
				t.Errorf("status: got %d, want %d", rec.Code, want)
			}
		})
	}
}

func TestAuth_Challenge(t *testing.T) {
	rec, _ := authorize(operatorToken, "Bearer nope")

	if got := rec.Header().Get("WWW-Authenticate"); got != `Bearer realm="hwreq"` {
		t.Errorf("WWW-Authenticate: got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("401 body is not JSON: %v (%q)", err, rec.Body.String())
	}
	if body.Error != "unauthorized" || body.Code != "" {
		t.Errorf("401 body: got %+v", body)
	}
}

func TestAuth_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	for _, header := range []string{"", "Bearer ", "Bearer x"} {
		if rec, reached := authorize("", header); reached || rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d, reached %v", header, rec.Code, reached)
		}
	}
}

func TestAuth_EachHandlerKeepsItsToken(t *testing.T) {
	server := middleware.Auth("server-token", okHandler)
	ci := middleware.Auth("ci-token", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", nil)
	req.Header.Set("Authorization", "Bearer server-token")

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("server token on server handler: got %d, want 200", rec.Code)
	}
	rec = httptest.NewRecorder()
	ci.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("server token on ci handler: got %d, want 401", rec.Code)
	}
}

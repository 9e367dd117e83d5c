package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/handlers"
)

// openAPIDoc is the part of the OpenAPI document these tests read.
type openAPIDoc struct {
	OpenAPI string `yaml:"openapi"`
	Info    struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`
	Paths map[string]map[string]any `yaml:"paths"`
}

func getOpenAPI(t *testing.T, h *handlers.Handler) openAPIDoc {
	t.Helper()
	w := httptest.NewRecorder()
	h.OpenAPISpec(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type: got %q, want application/yaml", ct)
	}
	var doc openAPIDoc
	if err := yaml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi.yaml is not valid YAML: %v", err)
	}
	return doc
}

func TestOpenAPISpec_DocumentsEveryRoute(t *testing.T) {
	h := &handlers.Handler{}
	doc := getOpenAPI(t, h)
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Errorf("openapi: got %q, want 3.x", doc.OpenAPI)
	}

	for _, rt := range h.Routes() {
		method, path, _ := strings.Cut(rt.Pattern, " ")
		if path == "/openapi.yaml" || path == "/docs" {
			continue
		}
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("openapi.yaml does not document %s", path)
			continue
		}
		if _, ok := ops[strings.ToLower(method)]; !ok {
			t.Errorf("openapi.yaml does not document %s %s", method, path)
		}
	}
}

func TestOpenAPISpec_StampsBuildVersion(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"", "1"},
		{"v1.4.0", "v1.4.0"},
		{"1.10", "1.10"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			doc := getOpenAPI(t, &handlers.Handler{Version: tt.version})
			if doc.Info.Version != tt.want {
				t.Errorf("info.version: got %q, want %q", doc.Info.Version, tt.want)
			}
			if doc.Info.Title != "hwreq API" {
				t.Errorf("info.title: got %q", doc.Info.Title)
			}
			if _, ok := doc.Paths["/api/v1/catalog/{category}"]; !ok {
				t.Error("re-encoded document lost a templated path")
			}
		})
	}
}

func TestDocs_ListsCatalog(t *testing.T) {
	h := &handlers.Handler{Catalog: catalog.Default(), Version: "v2.0.0"}
	w := httptest.NewRecorder()
	h.Docs(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q, want text/html; charset=utf-8", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "swagger-ui", `url: "/openapi.yaml"`, "v2.0.0", "</html>"} {
		if !strings.Contains(body, want) {
			t.Errorf("docs page should contain %q", want)
		}
	}
	for _, c := range catalog.Default().Categories() {
		if !strings.Contains(body, "<td>"+string(c.ID)+"</td>") {
			t.Errorf("docs page does not list category %s", c.ID)
		}
	}
}

func TestDocs_EscapesCatalogLabels(t *testing.T) {
	cat, err := catalog.New([]catalog.CategoryDefinition{{
		ID:     "FPGA",
		Label:  "<b>FPGA</b>",
		Fields: []catalog.FieldDefinition{{Key: "LUTs", ValueType: catalog.Numeric}},
	}})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	w := httptest.NewRecorder()
	(&handlers.Handler{Catalog: cat}).Docs(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	body := w.Body.String()
	if strings.Contains(body, "<b>FPGA</b>") {
		t.Error("catalog label was not escaped")
	}
	if !strings.Contains(body, "&lt;b&gt;FPGA&lt;/b&gt;") {
		t.Error("escaped catalog label missing from docs page")
	}
}

// TestDocsAndSpec_ViaFullMux verifies both endpoints are reachable without
// auth through the route table main.go registers.
func TestDocsAndSpec_ViaFullMux(t *testing.T) {
	mux, _ := newTestMux(t)

	tests := []struct {
		path         string
		wantCTPrefix string
	}{
		{"/openapi.yaml", "application/yaml"},
		{"/docs", "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantCTPrefix) {
				t.Errorf("Content-Type: got %q, want prefix %q", ct, tt.wantCTPrefix)
			}
		})
	}
}

package handlers

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/tphummel/hwreq/internal/catalog"
)

//go:embed openapi.yaml
var openapiYAML []byte

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>hwreq API Docs</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <section id="catalog">
    <h2>Catalog{{if .Version}} ({{.Version}}){{end}}</h2>
    <table>
      <tr><th>Category</th><th>Label</th><th>Fields</th></tr>
      {{- range .Categories}}
      <tr><td>{{.ID}}</td><td>{{.Label}}</td><td>{{len .Fields}}</td></tr>
      {{- end}}
    </table>
  </section>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
      deepLinking: true,
    });
  </script>
</body>
</html>
`))

type docsData struct {
	Version    string
	Categories []catalog.CategoryDefinition
}

// OpenAPISpec handles GET /openapi.yaml. When the build has a version it
// replaces info.version in the embedded document.
func (h *Handler) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	doc, err := stampVersion(openapiYAML, h.Version)
	if err != nil {
		slog.Error("failed to render openapi document", "error", err)
		doc = openapiYAML
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(doc)
}

// Docs handles GET /docs: Swagger UI plus the catalog the service validates
// against.
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := docsPage.Execute(&buf, docsData{Version: h.Version, Categories: h.catalog().Definitions()})
	if err != nil {
		slog.Error("failed to render docs page", "error", err)
		http.Error(w, "failed to render docs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func stampVersion(doc []byte, version string) ([]byte, error) {
	if version == "" {
		return doc, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, errors.New("openapi: empty document")
	}
	v := mappingValue(mappingValue(root.Content[0], "info"), "version")
	if v == nil {
		return nil, errors.New("openapi: no info.version")
	}
	v.Value = version
	v.Tag = "!!str"
	v.Style = yaml.DoubleQuotedStyle

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders a Page with the embedded dashboard template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("dashboard.html").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the full HTML document for page to w. Nothing is written if
// template execution fails.
func (r *Renderer) Render(w io.Writer, page Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "dashboard.html", page); err != nil {
		return fmt.Errorf("renderer: failed to render dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Package views holds the HTML templates for the operator screens and the
// exported static pages, and exposes them as templ components.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
)

//go:embed templates
var TemplateFS embed.FS

// Views is a collection of page templates, each parsed together with the
// shared layouts.
type Views struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006")
	},
	"isodate": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}

// New parses every page under templates/pages with the layouts in
// templates/layouts.
func New(templateFS fs.FS) (*Views, error) {
	v := &Views{templates: make(map[string]*template.Template)}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}
	return v, nil
}

// Default parses the embedded templates.
func Default() (*Views, error) {
	return New(TemplateFS)
}

// Component returns the named page bound to data. Executing an unknown page
// fails at render time.
func (v *Views) Component(name string, data any) templ.Component {
	ts, ok := v.templates[name]
	if !ok {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return fmt.Errorf("template %s not found", name)
		})
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		// Execute into a buffer so a template error never leaves a half
		// written page behind.
		var buf bytes.Buffer
		if err := templ.FromGoHTML(ts, data).Render(ctx, &buf); err != nil {
			return err
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

// Has reports whether a page with the given file name was parsed.
func (v *Views) Has(name string) bool {
	_, ok := v.templates[name]
	return ok
}

// Package scaffold lays out a new rilis site directory: a config file, the
// data and upload directories, and a starter stylesheet for the exported
// pages.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/afero"
)

// Templates contains the scaffold files. Files with a .tmpl suffix are
// executed as text/template; the rest are copied as is.
//
//go:embed all:templates
var Templates embed.FS

// Data holds the values substituted into the scaffold templates.
type Data struct {
	SiteName      string
	SiteURL       string
	AdminUsername string
	AdminPassword string
	SessionSecret string
}

// Write creates the site skeleton under dir on fsys. It refuses to write
// into a directory that already holds a config.yml.
func Write(fsys afero.Fs, dir string, data Data) ([]string, error) {
	if ok, _ := afero.Exists(fsys, filepath.Join(dir, "config.yml")); ok {
		return nil, fmt.Errorf("%s already contains config.yml", dir)
	}

	var written []string
	root := "templates"
	err := fs.WalkDir(Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dir, strings.TrimSuffix(rel, ".tmpl"))
		if d.IsDir() {
			return fsys.MkdirAll(out, 0o755)
		}

		content, err := Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.HasSuffix(path, ".tmpl") {
			tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
			if err != nil {
				return fmt.Errorf("parse template %s: %w", path, err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("execute template %s: %w", path, err)
			}
			content = buf.Bytes()
		}
		if err := afero.WriteFile(fsys, out, content, 0o644); err != nil {
			return err
		}
		written = append(written, out)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, sub := range []string{"data", "uploads", "public/data"} {
		if err := fsys.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return written, nil
}

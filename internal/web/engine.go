// Package web renders the site's HTML pages and serves its static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

//go:embed templates static
var embedded embed.FS

const (
	layoutFile  = "base.html"
	includesDir = "includes"
	layoutName  = "base"
)

// Engine is a fiber.Views implementation over html/template. Every page is
// parsed together with the base layout and the shared includes.
type Engine struct {
	fsys     fs.FS
	mediaURL string

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// New returns an engine reading the embedded templates, or templates from
// dir when it is not empty. mediaURL prefixes uploaded file paths.
func New(dir, mediaURL string) *Engine {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		fsys, _ = fs.Sub(embedded, "templates")
	}
	if mediaURL == "" {
		mediaURL = "/media/"
	}
	return &Engine{fsys: fsys, mediaURL: mediaURL}
}

// Static returns the embedded static assets.
func Static() fs.FS {
	sub, _ := fs.Sub(embedded, "static")
	return sub
}

// Load parses every page template. Page names are paths relative to the
// template root without the .html extension, e.g. "blog/index".
func (e *Engine) Load() error {
	base, err := template.New(layoutName).Funcs(e.funcs()).ParseFS(e.fsys, layoutFile)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	includes, err := fs.Glob(e.fsys, includesDir+"/*.html")
	if err != nil {
		return err
	}
	if len(includes) > 0 {
		if base, err = base.ParseFS(e.fsys, includes...); err != nil {
			return fmt.Errorf("parse includes: %w", err)
		}
	}

	pages := map[string]*template.Template{}
	err = fs.WalkDir(e.fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(p) != ".html" || p == layoutFile || strings.HasPrefix(p, includesDir+"/") {
			return nil
		}
		t, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(e.fsys, p); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		pages[strings.TrimSuffix(p, ".html")] = t
		return nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.pages = pages
	e.mu.Unlock()
	return nil
}

// Render executes the named page inside the base layout. The page is
// rendered to a buffer first so a template error never leaves half a page.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	e.mu.RLock()
	t, ok := e.pages[strings.TrimSuffix(name, ".html")]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutName, binding); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page was loaded.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pages[name]
	return ok
}

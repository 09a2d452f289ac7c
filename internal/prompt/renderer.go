// Package prompt renders the named prompt templates sent to the language model.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	apperrors "travel-planner/internal/common/errors"
)

const (
	TemplateLocation = "location"
	TemplateGuide    = "guide"
	TemplatePlanner  = "planner"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// Renderer holds parsed templates keyed by id. Rendering is safe for
// concurrent use; a missing placeholder key is an error, never an empty string.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewRenderer returns a Renderer loaded with the built-in location, guide and planner templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}
	if err := r.loadFS(builtin, "templates"); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadDir parses every *.tmpl file in dir, replacing templates with the same id.
func (r *Renderer) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("prompt dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("prompt dir %s is not a directory", dir)
	}
	return r.loadFS(os.DirFS(dir), ".")
}

func (r *Renderer) loadFS(fsys fs.FS, root string) error {
	matches, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(root, "*.tmpl")))
	if err != nil {
		return err
	}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read template %s: %w", name, err)
		}
		id := strings.TrimSuffix(filepath.Base(name), ".tmpl")
		if err := r.WithTemplate(id, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// WithTemplate registers or replaces template id.
func (r *Renderer) WithTemplate(id, text string) error {
	tmpl, err := template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", id, err)
	}
	r.mu.Lock()
	r.templates[id] = tmpl
	r.mu.Unlock()
	return nil
}

// Render substitutes params into template id.
func (r *Renderer) Render(id string, params map[string]interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[id]
	r.mu.RUnlock()
	if !ok {
		return "", apperrors.NewTemplateNotFoundError(id)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", apperrors.NewTemplateRenderFailedError(id, err)
	}
	return buf.String(), nil
}

// IDs lists the registered template ids in sorted order.
func (r *Renderer) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

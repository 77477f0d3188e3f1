package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"home", "about"}

// renderer executes page templates. With reload set, templates are parsed
// again on every render so edits show up without a restart.
type renderer struct {
	fsys   fs.FS
	reload bool

	mu    sync.Mutex
	pages map[string]*template.Template
}

func newRenderer(dir string, reload bool) (*renderer, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	pages, err := parsePages(fsys)
	if err != nil {
		return nil, err
	}
	return &renderer{fsys: fsys, reload: reload, pages: pages}, nil
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(fsys, "layout.html", "header.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("dashboard: parse %s templates: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (r *renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reload {
		pages, err := parsePages(r.fsys)
		if err != nil {
			return nil, err
		}
		r.pages = pages
	}
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown page %q", name)
	}
	return t, nil
}

// render writes the page, or nothing at all if execution fails.
func (r *renderer) render(w http.ResponseWriter, name string, data any) error {
	t, err := r.lookup(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

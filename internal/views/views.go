// Package views renders the HTML pages of the course site.
//
// Every page template is parsed together with layout.html once at
// construction. Render writes into a buffer so a failed render never leaves
// a half-written response, and reports missing pages as ErrTemplateMissing.
package views

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

const layoutFile = "layout.html"

// ErrTemplateMissing is wrapped by RenderError when no page has the requested name.
var ErrTemplateMissing = errors.New("template missing")

// RenderError is returned by Render. Err is ErrTemplateMissing or the
// underlying execution error.
type RenderError struct {
	Name string
	Err  error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %q: %v", e.Name, e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }

// Page is the data handed to every template.
type Page struct {
	Modules        []catalog.Module
	Module         *catalog.Module
	Message        string
	CatalogVersion string
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses layout.html plus every other *.html file in fsys. The page name
// is the file name without extension, e.g. "demo-module-3".
func New(fsys fs.FS) (*Renderer, error) {
	if _, err := fs.Stat(fsys, layoutFile); err != nil {
		return nil, xerrors.Wrapf(err, "views: missing %s", layoutFile)
	}

	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "views: glob templates")
	}

	md := goldmark.New()
	funcs := template.FuncMap{
		"join": strings.Join,
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			// goldmark escapes raw HTML unless html.WithUnsafe is set
			return template.HTML(buf.String())
		},
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(layoutFile).Funcs(funcs).ParseFS(fsys, layoutFile, f)
		if err != nil {
			return nil, xerrors.Wrapf(err, "views: parse %s", f)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Has reports whether a page with the given name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Names returns the parsed page names, sorted.
func (r *Renderer) Names() []string {
	out := make([]string, 0, len(r.pages))
	for n := range r.pages {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render executes the named page inside the layout.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	t, ok := r.pages[name]
	if !ok {
		return nil, &RenderError{Name: name, Err: ErrTemplateMissing}
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutFile, data); err != nil {
		return nil, &RenderError{Name: name, Err: err}
	}
	return buf.Bytes(), nil
}

// DemoPage is the page name of the interactive demo for module id.
func DemoPage(id int) string { return fmt.Sprintf("demo-module-%d", id) }

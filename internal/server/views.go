package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "layout.html"

// views renders pages from the embedded templates. Each page is parsed
// together with the shared layout; it satisfies fiber.Views.
type views struct {
	fs    fs.FS
	pages map[string]*template.Template
}

func newViews() *views {
	return &views{fs: templateFS}
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("January 02, 2006")
	},
	"summary": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "..."
	},
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
}

// Load parses every page template.
func (v *views) Load() error {
	layout, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(v.fs, "templates/"+layoutTemplate)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(v.fs, "templates/*.html")
	if err != nil {
		return err
	}

	v.pages = make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name+".html" == layoutTemplate {
			continue
		}
		page, err := layout.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(v.fs, file); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		v.pages[name] = page
	}
	return nil
}

// Render executes the layout with the named page's blocks.
func (v *views) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	page, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, layoutTemplate, binding)
}

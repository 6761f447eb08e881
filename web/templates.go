package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.tmpl
var files embed.FS

// Templates parses every page template with the shared helpers.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"clock": func(t time.Time) string { return t.Format("15:04") },
		"stamp": func(t time.Time) string { return t.Format("2006.01.02 15:04") },
	}).ParseFS(files, "templates/*.tmpl")
}

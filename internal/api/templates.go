package api

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the embedded HTML templates with helper functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"join":  strings.Join,
		"upper": strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page is a full HTML document made of an optional error panel and place lists
type Page struct {
	Title    string
	Notice   string
	Warning  string
	Error    *ErrorView
	Sections []PlacesView
}

// Render writes the page as HTML
func (p Page) Render(w io.Writer) error {
	return pageTemplate.ExecuteTemplate(w, "page", p)
}

// RenderHTML writes the list as an HTML fragment
func (v PlacesView) RenderHTML(w io.Writer) error {
	return pageTemplate.ExecuteTemplate(w, "places", v)
}

// RenderHTML writes the panel as an HTML fragment
func (e ErrorView) RenderHTML(w io.Writer) error {
	return pageTemplate.ExecuteTemplate(w, "error", e)
}

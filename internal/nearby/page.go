package nearby

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*
var templateFS embed.FS

var pageTemplate = template.Must(template.New("nearby.html.tmpl").Funcs(template.FuncMap{
	"kilometres": func(m float64) float64 { return m / 1000 },
}).ParseFS(templateFS, "templates/nearby.html.tmpl"))

// PageData feeds the nearby page.
type PageData struct {
	Service  string
	Services []string
	Lat, Lng float64
	Places   []Place
	Error    string
}

// RenderPage writes the HTML list of places.
func RenderPage(w io.Writer, data PageData) error {
	if data.Services == nil {
		data.Services = Services()
	}
	return pageTemplate.Execute(w, data)
}

package app

import (
	"embed"
	"html/template"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"levelClass": func(l advisor.Level) string { return "notice notice-" + string(l) },
	"fieldError": func(errs map[string]string, field string) string { return errs[field] },
	// crop names typed by hand match case-insensitively
	"sameCrop": func(c entities.Crop, typed string) bool {
		p, _ := entities.ParseCrop(typed)
		return p == c
	},
	"knownCrop": func(typed string) bool {
		_, ok := entities.ParseCrop(typed)
		return ok
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("anuja").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

package site

import (
	"fmt"
	"html/template"
	"os"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Layout classes for the page's center column.
const (
	IndexCenterClass = "Content3Column"
	PageCenterClass  = "Content2Column"
)

// defaultTemplate is used when no template file is configured.
const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Root}}style.css">
</head>
<body>
<div id="header">
<span class="release">Release {{index .Properties "release"}}</span>
{{- with index .Properties "prerelease"}}<span class="prerelease">Pre-release {{.}}</span>{{end}}
{{- with index .Properties "snapshot"}}<span class="snapshot">Snapshot {{.}}</span>{{end}}
</div>
<div class="{{.CenterClass}}">
{{.Body}}
</div>
</body>
</html>
`

// loadTemplate parses the template file at path, or the default template
// when path is empty.
func loadTemplate(path string) (*template.Template, error) {
	src := defaultTemplate
	name := "default"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ferrors.ConfigError(fmt.Sprintf("cannot read site template %s", path)).
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		src = string(data)
		name = path
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, ferrors.ConfigError("invalid site template").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return tmpl, nil
}

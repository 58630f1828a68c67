package email

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

// Templates renders the text and HTML variants of a named email.
type Templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewTemplates() (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{text: text, html: html}, nil
}

// Render returns the text and HTML bodies of name ("user_verification").
func (t *Templates) Render(name string, data any) (string, string, error) {
	var text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return "", "", err
	}
	if err := t.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(text.String()), html.String(), nil
}

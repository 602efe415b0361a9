// Package views holds the page templates and the view models they render.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"privatetasks/internal/models"
	"privatetasks/internal/session"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// RootTemplate is the name of the page template.
const RootTemplate = "home.html"

// RootData holds data for the root page template.
type RootData struct {
	Title      string
	AppName    string
	LoggedIn   bool
	Connecting bool
	Username   string
	Link       string
	Error      string
	Input      string
	Tasks      []models.Task
}

// NewRootData derives the page model from a session snapshot.
func NewRootData(appName string, st session.State) RootData {
	return RootData{
		Title:      appName,
		AppName:    appName,
		LoggedIn:   st.LoggedIn(),
		Connecting: st.Connecting,
		Username:   st.Username(),
		Link:       st.Link(),
		Error:      st.Err,
		Input:      st.Input,
		Tasks:      st.Tasks.Tasks(),
	}
}

// Parse parses the page and partial templates. Each template is named after
// its file's base name.
func Parse() (*template.Template, error) {
	tmpl := template.New("")

	patterns := []string{
		"templates/*.html",
		"templates/partials/*.html",
	}

	for _, pattern := range patterns {
		matches, err := fs.Glob(templatesFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}

		for _, match := range matches {
			content, err := templatesFS.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read template %s: %w", match, err)
			}

			name := path.Base(match)
			if _, err := tmpl.New(name).Parse(string(content)); err != nil {
				return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
			}
		}
	}

	return tmpl, nil
}

// Static serves the embedded stylesheet and other assets.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

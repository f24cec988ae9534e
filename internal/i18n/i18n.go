// Package i18n renders the bot's user-facing messages from embedded,
// per-locale template files. Templates are addressed by file name, so adding
// a message is adding a file.
package i18n

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

//go:embed templates/*/*.md
var templatesFS embed.FS

// Renderer renders named message templates for one locale.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer loads and parses every template of the given locale.
func NewRenderer(locale string) (*Renderer, error) {
	dir := path.Join("templates", locale)

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, fmt.Errorf("reading templates for locale %q: %w", locale, err)
	}

	templates := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		raw, err := templatesFS.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".md")
		tmpl, err := template.New(name).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}
		templates[name] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// Render renders the named template with the given view.
func (r *Renderer) Render(name string, view any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown message template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Commenter posts a comment on an issue thread. Satisfied by the GitHub
// adapter.
type Commenter interface {
	CreateIssueComment(ctx context.Context, ref model.IssueRef, body string) error
}

// Compile-time interface satisfaction check.
var _ driven.Replier = (*Replier)(nil)

// Replier posts rendered templates as issue comments.
type Replier struct {
	renderer *Renderer
	comments Commenter
}

// NewReplier creates a Replier posting through the given commenter.
func NewReplier(renderer *Renderer, comments Commenter) *Replier {
	return &Replier{renderer: renderer, comments: comments}
}

// Reply renders the named template and posts it on the thread.
func (r *Replier) Reply(ctx context.Context, ref model.IssueRef, name string, view any) error {
	body, err := r.renderer.Render(name, view)
	if err != nil {
		return err
	}
	return r.comments.CreateIssueComment(ctx, ref, body)
}

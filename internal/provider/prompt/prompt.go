// Package prompt loads the instruction templates sent to providers.
//
// A template is a Markdown file whose YAML frontmatter names it and whose
// body is a text/template rendered with Vars.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Template    string `yaml:"template,omitempty" json:"template,omitempty"`
}

// Vars are the values available to a template.
type Vars struct {
	Text   string
	Tokens int
}

// Prompt is a parsed template together with its source.
type Prompt struct {
	Config Config
	Source string
	tmpl   *template.Template
}

// Render executes the template with vars.
func (p *Prompt) Render(vars Vars) (string, error) {
	if p == nil || p.tmpl == nil {
		return "", fmt.Errorf("prompt not loaded")
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.Config.Slug, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

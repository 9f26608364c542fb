package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry stores prompts by slug.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// NewRegistry builds a registry from prompts.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt)}
	for _, prompt := range prompts {
		if prompt == nil {
			continue
		}
		slug := strings.TrimSpace(prompt.Config.Slug)
		if _, ok := reg.prompts[slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		reg.prompts[slug] = prompt
	}
	return reg, nil
}

// Get returns the prompt for the slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	prompt, ok := r.prompts[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return prompt, nil
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.prompts))
	for slug := range r.prompts {
		keys = append(keys, slug)
	}
	sort.Strings(keys)
	result := make([]*Prompt, 0, len(keys))
	for _, slug := range keys {
		result = append(result, r.prompts[slug])
	}
	return result
}

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// BuildRegistry loads the embedded prompts and, when dir is set, the files
// in dir. A file in dir replaces an embedded prompt with the same slug.
func BuildRegistry(dir string) (*InMemoryRegistry, error) {
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]*Prompt, len(defaults))
	for _, p := range defaults {
		bySlug[p.Config.Slug] = p
	}

	if strings.TrimSpace(dir) != "" {
		overrides, err := LoadFromDir(dir)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(overrides))
		for _, p := range overrides {
			if seen[p.Config.Slug] {
				return nil, fmt.Errorf("duplicate prompt slug in %s: %s", dir, p.Config.Slug)
			}
			seen[p.Config.Slug] = true
			bySlug[p.Config.Slug] = p
		}
	}

	merged := make([]*Prompt, 0, len(bySlug))
	for _, p := range bySlug {
		merged = append(merged, p)
	}
	return NewRegistry(merged)
}

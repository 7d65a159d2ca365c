// Package prompt holds the named prompt templates used by the import
// pipeline and renders them with %{tag} placeholders.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

// Names of the prompts the pipeline renders.
const (
	TextSummarization    = "text_summarization"
	ExtractionFirstPass  = "kg_extraction_1st_pass"
	ExtractionSecondPass = "kg_extraction_2nd_pass"
	NodeValidation       = "kg_node_validation"
)

// Prompt status values. Only active prompts can be rendered.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDraft    = "draft"
)

// ErrTemplateNotFound is returned when no active prompt has the requested name.
var ErrTemplateNotFound = errors.New("prompt template not found")

var tagPattern = regexp.MustCompile(`%\{([^}]+)\}`)

//go:embed prompts.yaml
var defaultPrompts []byte

// Renderer turns a named template and its parameters into prompt text.
type Renderer interface {
	Render(name string, params map[string]string) (string, error)
}

// ModelSelector returns the model configured for a prompt, or "" to use the
// client default.
type ModelSelector interface {
	ModelFor(name string) string
}

// Prompt is a named template.
type Prompt struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Status      string `yaml:"status"`
	Model       string `yaml:"model"`
	Content     string `yaml:"content"`
}

// Tags returns the sorted, unique placeholder names used in the content.
func (p Prompt) Tags() []string {
	return ExtractTags(p.Content)
}

// ExtractTags returns the sorted, unique %{tag} names found in content.
func ExtractTags(content string) []string {
	seen := map[string]struct{}{}
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		seen[strings.TrimSpace(m[1])] = struct{}{}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Registry is an in-memory set of prompts keyed by name. It is safe for
// concurrent use and implements Renderer and ModelSelector.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewRegistry returns a registry holding the given prompts.
func NewRegistry(prompts ...Prompt) *Registry {
	r := &Registry{prompts: make(map[string]Prompt, len(prompts))}
	for _, p := range prompts {
		r.Set(p)
	}
	return r
}

// Default returns a registry with the built-in pipeline prompts.
func Default() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadYAML(defaultPrompts); err != nil {
		return nil, fmt.Errorf("failed to load default prompts: %w", err)
	}
	return r, nil
}

// Load returns the default registry, overlaid with the prompts from path
// when path is not empty.
func Load(path string) (*Registry, error) {
	r, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}
	if err := r.LoadYAML(data); err != nil {
		return nil, fmt.Errorf("failed to load prompts file %s: %w", path, err)
	}
	return r, nil
}

type promptFile struct {
	Prompts []Prompt `yaml:"prompts"`
}

// LoadYAML adds or replaces prompts from a YAML document of the form
//
//	prompts:
//	  - name: text_summarization
//	    status: active
//	    content: "Summarize: %{text}"
func (r *Registry) LoadYAML(data []byte) error {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for i, p := range f.Prompts {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("prompt %d has no name", i)
		}
		if strings.TrimSpace(p.Content) == "" {
			return fmt.Errorf("prompt %s has no content", p.Name)
		}
		r.Set(p)
	}
	return nil
}

// Set adds or replaces a prompt. An empty status is treated as active.
func (r *Registry) Set(p Prompt) {
	if p.Status == "" {
		p.Status = StatusActive
	}
	r.mu.Lock()
	r.prompts[p.Name] = p
	r.mu.Unlock()
}

// Get returns the active prompt with the given name.
func (r *Registry) Get(name string) (Prompt, error) {
	r.mu.RLock()
	p, ok := r.prompts[name]
	r.mu.RUnlock()
	if !ok || p.Status != StatusActive {
		return Prompt{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return p, nil
}

// Render substitutes every %{tag} in the named prompt with params[tag].
// Tags without a value render as the empty string.
func (r *Registry) Render(name string, params map[string]string) (string, error) {
	p, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return Fill(p.Content, params), nil
}

// ModelFor returns the model configured for the named prompt.
func (r *Registry) ModelFor(name string) string {
	p, err := r.Get(name)
	if err != nil {
		return ""
	}
	return p.Model
}

// Fill replaces %{tag} placeholders in content with values from params.
func Fill(content string, params map[string]string) string {
	return tagPattern.ReplaceAllStringFunc(content, func(m string) string {
		tag := strings.TrimSpace(m[2 : len(m)-1])
		return params[tag]
	})
}

package timeline

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/wedplan/internal/model"
)

const (
	DefaultTemplate  = "standard"
	FallbackCategory = "Planning"
)

//go:embed templates.yaml
var builtinTemplates []byte

type templateFile struct {
	Categories []model.Category                  `yaml:"categories"`
	Templates  map[string][]model.TemplateEntry `yaml:"templates"`
}

// Registry holds the task categories and named timeline templates. It is
// read-only once built.
type Registry struct {
	categories []model.Category
	byKey      map[string]model.Category
	templates  map[string][]model.TemplateEntry
}

// NewRegistry returns a registry built from the embedded templates.
func NewRegistry() *Registry {
	r, err := ParseRegistry(builtinTemplates)
	if err != nil {
		panic(fmt.Sprintf("timeline: embedded templates: %v", err))
	}
	return r
}

func ParseRegistry(data []byte) (*Registry, error) {
	r := &Registry{
		byKey:     make(map[string]model.Category),
		templates: make(map[string][]model.TemplateEntry),
	}
	if err := r.merge(data); err != nil {
		return nil, err
	}
	if _, ok := r.templates[DefaultTemplate]; !ok {
		return nil, fmt.Errorf("timeline: template %q is required", DefaultTemplate)
	}
	if _, ok := r.byKey[strings.ToLower(FallbackCategory)]; !ok {
		return nil, fmt.Errorf("timeline: category %q is required", FallbackCategory)
	}
	return r, nil
}

// LoadFile adds the categories and templates of a YAML file on top of r.
// Templates with an existing name replace the previous definition.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read templates %s: %w", path, err)
	}
	return r.merge(data)
}

// merge decodes and validates the whole document before touching r, so a
// rejected file leaves the registry unchanged.
func (r *Registry) merge(data []byte) error {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode templates: %w", err)
	}
	for i, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("timeline: category without name")
		}
		if c.ID == "" {
			f.Categories[i].ID = strings.ToLower(c.Name)
		}
	}
	for name, entries := range f.Templates {
		for i, e := range entries {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("template %s entry %d: %w", name, i, err)
			}
		}
	}

	for _, c := range f.Categories {
		r.putCategory(c)
	}
	for name, entries := range f.Templates {
		r.templates[strings.ToLower(name)] = entries
	}
	return nil
}

// putCategory adds c or replaces the category sharing its id or name.
func (r *Registry) putCategory(c model.Category) {
	idx := slices.IndexFunc(r.categories, func(old model.Category) bool {
		return strings.EqualFold(old.ID, c.ID) || strings.EqualFold(old.Name, c.Name)
	})
	if idx < 0 {
		r.categories = append(r.categories, c)
	} else {
		old := r.categories[idx]
		delete(r.byKey, strings.ToLower(old.Name))
		delete(r.byKey, strings.ToLower(old.ID))
		r.categories[idx] = c
	}
	r.byKey[strings.ToLower(c.Name)] = c
	r.byKey[strings.ToLower(c.ID)] = c
}

// Category resolves a category by name or id, ignoring case. Unknown names
// resolve to the Planning category.
func (r *Registry) Category(name string) model.Category {
	if c, ok := r.lookup(name); ok {
		return c
	}
	return r.byKey[strings.ToLower(FallbackCategory)]
}

func (r *Registry) lookup(name string) (model.Category, bool) {
	c, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (r *Registry) Categories() []model.Category {
	return append([]model.Category(nil), r.categories...)
}

// Template returns the entries of the named template and the name actually
// used. Unknown names fall back to the standard template.
func (r *Registry) Template(name string) (string, []model.TemplateEntry) {
	key := strings.ToLower(strings.TrimSpace(name))
	if entries, ok := r.templates[key]; ok {
		return key, entries
	}
	return DefaultTemplate, r.templates[DefaultTemplate]
}

func (r *Registry) TemplateNames() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

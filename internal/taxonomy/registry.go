// Package taxonomy holds the immutable indicator taxonomy shipped with the
// binary. The database copy in the categories table is seeded from it.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"regional-stats/internal/models"
)

//go:embed categories.yaml
var seedYAML []byte

// Registry is a read-only id/name index over the taxonomy.
type Registry struct {
	ordered []models.Category
	byID    map[int64]models.Category
	byName  map[string]models.Category
}

type document struct {
	Categories []models.Category `yaml:"categories"`
}

// Load parses a taxonomy document. Ids and names must be unique.
func Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	r := &Registry{
		byID:   make(map[int64]models.Category, len(doc.Categories)),
		byName: make(map[string]models.Category, len(doc.Categories)),
	}
	for _, c := range doc.Categories {
		c.Name = strings.TrimSpace(c.Name)
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("taxonomy entry %d: id and name are required", c.ID)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate id %d", c.ID)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate name %q", c.Name)
		}
		r.byID[c.ID] = c
		r.byName[c.Name] = c
		r.ordered = append(r.ordered, c)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ID < r.ordered[j].ID })
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded taxonomy.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(seedYAML)
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}

// ByID looks a category up by id.
func (r *Registry) ByID(id int64) (models.Category, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ByName looks a category up by its canonical name.
func (r *Registry) ByName(name string) (models.Category, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// All returns a copy of every category ordered by id.
func (r *Registry) All() []models.Category {
	out := make([]models.Category, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Children lists the categories nested directly under parent in the
// "APBD - Pendapatan Daerah - PAD" naming scheme.
func (r *Registry) Children(parent string) []models.Category {
	prefix := parent + " - "
	var out []models.Category
	for _, c := range r.ordered {
		rest, ok := strings.CutPrefix(c.Name, prefix)
		if ok && !strings.Contains(rest, " - ") {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.ordered) }

package drills

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/drillwire/drillwire/internal/drills/content"
	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
)

// ErrNotFound indicates the catalog has no drill with the requested slug.
var ErrNotFound = apperrors.New(apperrors.CodeDrillNotFound, "drill not found")

// Catalog resolves drill slugs to drill definitions. Implementations must
// return an independent snapshot per call: callers fold drills into durable
// state and later catalog edits must not reach drills already in flight.
type Catalog interface {
	GetDrill(slug string) (Drill, error)
}

// MemoryCatalog is an in-memory catalog keyed by slug.
type MemoryCatalog struct {
	drills map[string]Drill
	order  []string
}

// NewMemoryCatalog builds a catalog from drill definitions.
func NewMemoryCatalog(defs []Drill) (*MemoryCatalog, error) {
	catalog := &MemoryCatalog{drills: make(map[string]Drill, len(defs))}
	for _, def := range defs {
		slug := strings.TrimSpace(def.Slug)
		if slug == "" {
			return nil, fmt.Errorf("drill slug is required")
		}
		if len(def.Prompts) == 0 {
			return nil, apperrors.WithMetadata(apperrors.CodeDrillEmptyPrompts, "drill has no prompts", map[string]string{"slug": slug})
		}
		if _, exists := catalog.drills[slug]; exists {
			return nil, fmt.Errorf("duplicate drill slug %q", slug)
		}
		catalog.drills[slug] = def.Clone()
		catalog.order = append(catalog.order, slug)
	}
	sort.Strings(catalog.order)
	return catalog, nil
}

// GetDrill returns a deep snapshot of the drill with the given slug.
func (c *MemoryCatalog) GetDrill(slug string) (Drill, error) {
	if c == nil {
		return Drill{}, fmt.Errorf("catalog is not configured")
	}
	drill, ok := c.drills[strings.TrimSpace(slug)]
	if !ok {
		return Drill{}, ErrNotFound
	}
	return drill.Clone(), nil
}

// Slugs lists catalog drill slugs in lexical order. Drill content files are
// numbered so lexical order is also curriculum order.
func (c *MemoryCatalog) Slugs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// OpenEmbeddedCatalog loads the compiled-in drill content and its
// translation table.
func OpenEmbeddedCatalog() (*MemoryCatalog, error) {
	raw, err := fs.ReadFile(content.FS, "translations.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded translations: %w", err)
	}
	if err := LoadTranslations(raw); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(content.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded drill content: %w", err)
	}
	var defs []Drill
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "translations.json" || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := fs.ReadFile(content.FS, name)
		if err != nil {
			return nil, fmt.Errorf("read drill %s: %w", name, err)
		}
		var def Drill
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("decode drill %s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return NewMemoryCatalog(defs)
}

// File path: internal/catalog/catalog.go

// Package catalog owns the current schema snapshot. Readers load an
// immutable pointer and never block; regeneration builds a whole new
// snapshot, persists it, and swaps the pointer so concurrent readers see
// either the fully-old or fully-new catalog.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/schema"
)

// Catalog holds the live snapshot and its file-backed structural form.
type Catalog struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[schema.Snapshot]
}

// New creates a catalog persisted at path. The catalog starts empty; call
// Load to pick up a previously persisted file.
func New(path string) *Catalog {
	c := &Catalog{path: path, logger: common.Logger()}
	c.current.Store(&schema.Snapshot{Collections: map[string]schema.CollectionSchema{}})
	return c
}

// Snapshot returns the current immutable snapshot. Callers must not mutate
// it.
func (c *Catalog) Snapshot() *schema.Snapshot {
	return c.current.Load()
}

// Load reads the persisted structural file. A missing file leaves the
// catalog empty without error; relationships are not persisted and start
// empty after a restart.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("catalog: no persisted schemas", "path", c.path)
			return nil
		}
		return fmt.Errorf("catalog: read %s: %w", c.path, err)
	}
	var stored map[string]storedCollection
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", c.path, err)
	}

	snap := &schema.Snapshot{Collections: make(map[string]schema.CollectionSchema, len(stored))}
	if info, err := os.Stat(c.path); err == nil {
		snap.GeneratedAt = info.ModTime().UTC()
	}
	for name, sc := range stored {
		snap.Collections[name] = sc.toSchema(name)
	}
	c.current.Store(snap)
	c.logger.Info("catalog: loaded", "path", c.path, "collections", len(snap.Collections))
	return nil
}

// Replace persists the given schemas and swaps them in as the new snapshot.
// The write happens before the swap, so a persisted catalog never trails the
// live one.
func (c *Catalog) Replace(collections map[string]schema.CollectionSchema, relationships []schema.Relationship) (*schema.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &schema.Snapshot{
		GeneratedAt:   time.Now().UTC(),
		Collections:   collections,
		Relationships: relationships,
	}
	if snap.Collections == nil {
		snap.Collections = map[string]schema.CollectionSchema{}
	}
	if err := c.persist(snap); err != nil {
		return nil, err
	}
	c.current.Store(snap)
	c.logger.Info("catalog: replaced",
		"collections", len(snap.Collections), "relationships", len(snap.Relationships))
	return snap, nil
}

func (c *Catalog) persist(snap *schema.Snapshot) error {
	stored := make(map[string]storedCollection, len(snap.Collections))
	for name, cs := range snap.Collections {
		stored[name] = toStored(cs)
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("catalog: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", c.path, err)
	}
	return nil
}

// storedField is the persisted per-field shape. It carries structure only:
// there is deliberately no slot for example values, enumerations, or
// presence rates, so nothing sampled from the data can reach the file.
type storedField struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Indexed     bool   `json:"indexed,omitempty"`
	Unique      bool   `json:"unique,omitempty"`
}

type storedCollection struct {
	Description string                 `json:"description,omitempty"`
	Fields      map[string]storedField `json:"fields"`
}

func toStored(cs schema.CollectionSchema) storedCollection {
	out := storedCollection{
		Description: cs.Description,
		Fields:      make(map[string]storedField, len(cs.Fields)),
	}
	for path, fs := range cs.Fields {
		out.Fields[path] = storedField{
			Type:        string(fs.Type),
			Description: fs.Description,
			Indexed:     fs.Indexed,
			Unique:      fs.Unique,
		}
	}
	return out
}

func (sc storedCollection) toSchema(name string) schema.CollectionSchema {
	cs := schema.CollectionSchema{
		Name:        name,
		Description: sc.Description,
		Fields:      make(map[string]schema.FieldSchema, len(sc.Fields)),
	}
	for path, sf := range sc.Fields {
		cs.Fields[path] = schema.FieldSchema{
			Type:        schema.FieldType(sf.Type),
			Description: sf.Description,
			Indexed:     sf.Indexed,
			Unique:      sf.Unique,
		}
	}
	return cs
}

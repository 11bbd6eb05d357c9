// File path: internal/catalog/catalog_test.go
package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"nl2mongo/internal/schema"
)

func sampleCollections() map[string]schema.CollectionSchema {
	return map[string]schema.CollectionSchema{
		"customers": {
			Name:        "customers",
			Description: "Collection containing customers data",
			Fields: map[string]schema.FieldSchema{
				"_id":   {Type: schema.TypeString, Indexed: true, Unique: true, Description: "Unique document identifier"},
				"email": {Type: schema.TypeString, PresenceRate: 1.0, Description: "Email"},
				"age":   {Type: schema.TypeInteger, PresenceRate: 0.667},
			},
		},
	}
}

func TestLoadMissingFileLeavesCatalogEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "schemas.json"))
	if err := c.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := c.Snapshot()
	if snap == nil || len(snap.Collections) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestReplacePersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.json")
	c := New(path)
	if _, err := c.Replace(sampleCollections(), []schema.Relationship{{
		FromCollection: "orders", FromField: "customer_id",
		ToCollection: "customers", ToField: "_id",
		Kind: schema.KindReference, Confidence: 0.94,
	}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := reloaded.Snapshot()
	cs, ok := snap.Collection("customers")
	if !ok {
		t.Fatal("customers missing after reload")
	}
	if cs.Fields["email"].Type != schema.TypeString {
		t.Fatalf("email type lost: %+v", cs.Fields["email"])
	}
	if cs.Fields["_id"].Description != "Unique document identifier" {
		t.Fatalf("description lost: %+v", cs.Fields["_id"])
	}
	// Relationships are in-memory only; a restart starts without them.
	if len(snap.Relationships) != 0 {
		t.Fatalf("relationships must not be persisted, got %v", snap.Relationships)
	}
}

func TestPersistedFormatIsStructureOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.json")
	c := New(path)
	if _, err := c.Replace(sampleCollections(), nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	text := string(raw)
	for _, banned := range []string{`"example"`, `"enum"`, `"presence_rate"`} {
		if strings.Contains(text, banned) {
			t.Fatalf("persisted catalog contains banned key %s:\n%s", banned, text)
		}
	}
	for _, required := range []string{`"type"`, `"fields"`} {
		if !strings.Contains(text, required) {
			t.Fatalf("persisted catalog missing %s:\n%s", required, text)
		}
	}
}

func TestReplaceLeavesOldSnapshotIntact(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "schemas.json"))
	if _, err := c.Replace(sampleCollections(), nil); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	old := c.Snapshot()
	if _, err := c.Replace(map[string]schema.CollectionSchema{}, nil); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if len(old.Collections) != 1 {
		t.Fatalf("old snapshot mutated: %+v", old.Collections)
	}
	if len(c.Snapshot().Collections) != 0 {
		t.Fatalf("new snapshot not swapped in")
	}
}

func TestConcurrentReadersDuringReplace(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "schemas.json"))
	if _, err := c.Replace(sampleCollections(), nil); err != nil {
		t.Fatalf("seed replace: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := c.Snapshot()
				// A snapshot is all-or-nothing: either the seeded catalog
				// or the replacement, never a partial view.
				if n := len(snap.Collections); n != 0 && n != 1 {
					t.Errorf("torn snapshot with %d collections", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if _, err := c.Replace(sampleCollections(), nil); err != nil {
			t.Fatalf("replace under readers: %v", err)
		}
		if _, err := c.Replace(map[string]schema.CollectionSchema{}, nil); err != nil {
			t.Fatalf("replace under readers: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

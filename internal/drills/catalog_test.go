package drills

import (
	"errors"
	"testing"

	apperrors "github.com/drillwire/drillwire/internal/platform/errors"
)

func TestOpenEmbeddedCatalog(t *testing.T) {
	catalog, err := OpenEmbeddedCatalog()
	if err != nil {
		t.Fatalf("OpenEmbeddedCatalog: %v", err)
	}

	slugs := catalog.Slugs()
	if len(slugs) < 2 {
		t.Fatalf("embedded catalog has %d drills, want at least 2", len(slugs))
	}
	if slugs[0] != "01-basics" {
		t.Errorf("first slug = %q, want 01-basics", slugs[0])
	}

	drill, err := catalog.GetDrill("01-basics")
	if err != nil {
		t.Fatalf("GetDrill(01-basics): %v", err)
	}
	if len(drill.Prompts) == 0 {
		t.Fatal("drill has no prompts")
	}
	last := drill.Prompts[len(drill.Prompts)-1]
	if len(last.AcceptedResponses) != 0 {
		t.Error("final prompt should not wait for an answer")
	}
}

func TestCatalogReturnsIndependentSnapshots(t *testing.T) {
	catalog, err := NewMemoryCatalog([]Drill{{
		Slug:    "snap",
		Name:    "Snapshot",
		Prompts: []Prompt{{Slug: "q", Messages: []PromptMessage{{Text: "hi"}}}},
	}})
	if err != nil {
		t.Fatalf("NewMemoryCatalog: %v", err)
	}

	first, err := catalog.GetDrill("snap")
	if err != nil {
		t.Fatalf("GetDrill: %v", err)
	}
	first.Prompts[0].Messages[0].Text = "mutated"

	second, err := catalog.GetDrill("snap")
	if err != nil {
		t.Fatalf("GetDrill: %v", err)
	}
	if second.Prompts[0].Messages[0].Text != "hi" {
		t.Error("catalog handed out a shared drill snapshot")
	}
}

func TestCatalogUnknownSlug(t *testing.T) {
	catalog, err := NewMemoryCatalog([]Drill{{
		Slug:    "only",
		Prompts: []Prompt{{Slug: "q"}},
	}})
	if err != nil {
		t.Fatalf("NewMemoryCatalog: %v", err)
	}
	if _, err := catalog.GetDrill("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDrill(missing) error = %v, want ErrNotFound", err)
	}
}

func TestNewMemoryCatalogValidation(t *testing.T) {
	if _, err := NewMemoryCatalog([]Drill{{Slug: "", Prompts: []Prompt{{Slug: "q"}}}}); err == nil {
		t.Error("expected error for blank slug")
	}
	if _, err := NewMemoryCatalog([]Drill{{Slug: "empty"}}); !errors.Is(err, apperrors.New(apperrors.CodeDrillEmptyPrompts, "")) {
		t.Errorf("empty prompts error = %v, want CodeDrillEmptyPrompts", err)
	}
	dup := Drill{Slug: "dup", Prompts: []Prompt{{Slug: "q"}}}
	if _, err := NewMemoryCatalog([]Drill{dup, dup}); err == nil {
		t.Error("expected error for duplicate slug")
	}
}

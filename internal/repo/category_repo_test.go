package repo

import (
	"context"
	"errors"
	"testing"

	"wpimport/internal/domain"
)

func TestGetOrCreateCategory_VariantsCollapse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := GetOrCreateCategory(ctx, db, "Machine  Learning", domain.CategorySourceOriginal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.NormalizedName != "machine learning" || first.Name != "Machine Learning" {
		t.Fatalf("unexpected category: %+v", first)
	}

	for _, variant := range []string{"machine learning", "MACHINE LEARNING", "  Machine\tLearning "} {
		got, err := GetOrCreateCategory(ctx, db, variant, domain.CategorySourceAI)
		if err != nil {
			t.Fatalf("variant %q: %v", variant, err)
		}
		if got.ID != first.ID {
			t.Fatalf("variant %q created a second row", variant)
		}
	}

	var count int64
	if err := db.Model(&domain.Category{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 category row, got %d", count)
	}
}

func TestGetOrCreateCategory_OriginalProvenanceWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ai, err := GetOrCreateCategory(ctx, db, "Python", domain.CategorySourceAI)
	if err != nil {
		t.Fatalf("create ai: %v", err)
	}
	if ai.Source != domain.CategorySourceAI {
		t.Fatalf("expected ai-generated source, got %q", ai.Source)
	}

	// Original proposal of the same normalized name promotes the row.
	promoted, err := GetOrCreateCategory(ctx, db, "python", domain.CategorySourceOriginal)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.ID != ai.ID || promoted.Source != domain.CategorySourceOriginal {
		t.Fatalf("expected same row promoted to original: %+v", promoted)
	}

	// The reverse never demotes.
	again, err := GetOrCreateCategory(ctx, db, "PYTHON", domain.CategorySourceAI)
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if again.Source != domain.CategorySourceOriginal {
		t.Fatalf("ai proposal must not demote original, got %q", again.Source)
	}
}

func TestGetOrCreateCategory_EmptyName(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetOrCreateCategory(context.Background(), db, "   ", domain.CategorySourceOriginal); !errors.Is(err, ErrEmptyCategoryName) {
		t.Fatalf("expected ErrEmptyCategoryName, got %v", err)
	}
}

func TestLinkPostCategory_IdempotentLatestConfidenceWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := seedPost(t, db, &domain.Post{URL: "https://b.com/p1", Title: "t", Status: domain.PostStatusDraft})
	cat, err := GetOrCreateCategory(ctx, db, "Tech", domain.CategorySourceOriginal)
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	if _, err := LinkPostCategory(ctx, db, post.ID, cat.ID, nil); err != nil {
		t.Fatalf("first link: %v", err)
	}

	c1 := 0.4
	if _, err := LinkPostCategory(ctx, db, post.ID, cat.ID, &c1); err != nil {
		t.Fatalf("relink: %v", err)
	}
	c2 := 0.9
	link, err := LinkPostCategory(ctx, db, post.ID, cat.ID, &c2)
	if err != nil {
		t.Fatalf("relink 2: %v", err)
	}
	if link.Confidence == nil || *link.Confidence != 0.9 {
		t.Fatalf("latest confidence must win: %+v", link.Confidence)
	}

	var count int64
	if err := db.Model(&domain.PostCategory{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 association row, got %d", count)
	}
}

func TestOriginalCategoryNames_FiltersProvenance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := seedPost(t, db, &domain.Post{URL: "https://b.com/p1", Title: "t", Status: domain.PostStatusDraft})

	orig, err := GetOrCreateCategory(ctx, db, "Tech", domain.CategorySourceOriginal)
	if err != nil {
		t.Fatalf("orig: %v", err)
	}
	ai, err := GetOrCreateCategory(ctx, db, "Python", domain.CategorySourceAI)
	if err != nil {
		t.Fatalf("ai: %v", err)
	}
	if _, err := LinkPostCategory(ctx, db, post.ID, orig.ID, nil); err != nil {
		t.Fatalf("link orig: %v", err)
	}
	conf := 0.8
	if _, err := LinkPostCategory(ctx, db, post.ID, ai.ID, &conf); err != nil {
		t.Fatalf("link ai: %v", err)
	}

	names, err := OriginalCategoryNames(ctx, db, post.ID)
	if err != nil {
		t.Fatalf("OriginalCategoryNames: %v", err)
	}
	if len(names) != 1 || names[0] != "Tech" {
		t.Fatalf("expected [Tech], got %v", names)
	}
}

func TestListPostCategories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := seedPost(t, db, &domain.Post{URL: "https://b.com/p1", Title: "t", Status: domain.PostStatusDraft})

	for _, name := range []string{"Zebra", "Alpha"} {
		cat, err := GetOrCreateCategory(ctx, db, name, domain.CategorySourceOriginal)
		if err != nil {
			t.Fatalf("category %s: %v", name, err)
		}
		if _, err := LinkPostCategory(ctx, db, post.ID, cat.ID, nil); err != nil {
			t.Fatalf("link %s: %v", name, err)
		}
	}

	cats, links, err := ListPostCategories(ctx, db, post.ID)
	if err != nil {
		t.Fatalf("ListPostCategories: %v", err)
	}
	if len(cats) != 2 || len(links) != 2 {
		t.Fatalf("expected 2 categories and 2 links, got %d/%d", len(cats), len(links))
	}
	if cats[0].Name != "Alpha" || cats[1].Name != "Zebra" {
		t.Fatalf("expected name order, got %s, %s", cats[0].Name, cats[1].Name)
	}
}

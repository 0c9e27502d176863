package repo

import (
	"context"
	"testing"

	"wpimport/internal/domain"
)

func TestRecordAPIUsage_AppendsOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := seedPost(t, db, &domain.Post{URL: "https://b.com/p1", Title: "t", Status: domain.PostStatusDraft})

	if _, err := RecordAPIUsage(ctx, db, post.ID, 120, 30, 0.000036, domain.OutcomeSuccess); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if _, err := RecordAPIUsage(ctx, db, post.ID, 100, 0, 0.000015, domain.OutcomeFailure); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	rows, err := ListAPIUsage(ctx, db, post.ID)
	if err != nil {
		t.Fatalf("ListAPIUsage: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	if rows[0].Outcome != domain.OutcomeSuccess || rows[0].PromptTokens != 120 || rows[0].CompletionTokens != 30 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Outcome != domain.OutcomeFailure {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestRecordImportRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	run, err := RecordImportRun(ctx, db, "export.xml", 10, 2, 1, domain.OutcomeSuccess)
	if err != nil {
		t.Fatalf("RecordImportRun: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("missing run ID")
	}

	var got domain.ImportRun
	if err := db.First(&got, "id = ?", run.ID).Error; err != nil {
		t.Fatalf("load run: %v", err)
	}
	if got.SourceFile != "export.xml" || got.Inserted != 10 || got.Skipped != 2 || got.Failed != 1 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

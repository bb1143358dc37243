package storage

import (
	"context"
	"testing"
	"time"
)

func TestTouchMessageUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := time.Unix(1000, 0)
	if err := store.TouchMessage(ctx, "u1", "shadow", first); err != nil {
		t.Fatalf("touch message: %v", err)
	}
	second := time.Unix(2000, 0)
	if err := store.TouchMessage(ctx, "u1", "shadow2", second); err != nil {
		t.Fatalf("touch message again: %v", err)
	}

	got, err := store.GetMember(ctx, "u1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got.Username != "shadow2" {
		t.Fatalf("expected refreshed username, got %q", got.Username)
	}
	if !got.LastMessageAt.Equal(second) {
		t.Fatalf("expected last message at %v, got %v", second, got.LastMessageAt)
	}
	if !got.IsMember {
		t.Fatalf("expected member record marked as member")
	}
}

func TestUpsertVerificationIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Unix(3000, 0)
	if err := store.UpsertVerification(ctx, "u1", "shadow", "Shadow", "12345", at); err != nil {
		t.Fatalf("upsert verification: %v", err)
	}
	if err := store.UpsertVerification(ctx, "u1", "shadow", "Shadow", "12345", at); err != nil {
		t.Fatalf("repeat upsert verification: %v", err)
	}

	records, err := store.ListMembers(ctx)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single record, got %d", len(records))
	}
	if records[0].ExternalNick != "Shadow" || records[0].ExternalID != "12345" {
		t.Fatalf("unexpected identity fields: %+v", records[0])
	}
}

func TestWarningsAppendAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Unix(4000, 0)
	if err := store.AddWarning(ctx, "u1", "late", now); err != nil {
		t.Fatalf("add warning: %v", err)
	}
	if err := store.AddWarning(ctx, "u1", "late", now.Add(time.Minute)); err != nil {
		t.Fatalf("add second warning: %v", err)
	}

	warnings, err := store.ListWarnings(ctx, "u1")
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected two warnings, got %d", len(warnings))
	}
	if warnings[0].Reason != "late" || warnings[1].Reason != "late" {
		t.Fatalf("unexpected reasons: %+v", warnings)
	}

	if err := store.TouchMessage(ctx, "u1", "shadow", now); err != nil {
		t.Fatalf("touch message: %v", err)
	}
	record, err := store.GetMember(ctx, "u1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if record.WarningCount != 2 {
		t.Fatalf("expected warning count 2, got %d", record.WarningCount)
	}

	if err := store.ClearWarnings(ctx, "u1"); err != nil {
		t.Fatalf("clear warnings: %v", err)
	}
	warnings, err = store.ListWarnings(ctx, "u1")
	if err != nil {
		t.Fatalf("list warnings after clear: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warnings))
	}
}

func TestSetMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.TouchMessage(ctx, "u1", "shadow", time.Unix(1000, 0)); err != nil {
		t.Fatalf("touch message: %v", err)
	}
	if err := store.SetMembership(ctx, "u1", false); err != nil {
		t.Fatalf("set membership: %v", err)
	}

	record, err := store.GetMember(ctx, "u1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if record.IsMember {
		t.Fatalf("expected member flagged as gone")
	}
}

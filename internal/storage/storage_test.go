package storage

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildConfig(t *testing.T) {
	store := newTestStore(t)

	cfg := GuildConfig{
		GuildID:             "g1",
		RoleToRemove:        "novice",
		GrantRole1:          "member1",
		GrantRole2:          "member2",
		AnnouncementChannel: "c1",
		VerificationChannel: "c2",
		AnnouncementText:    "war!",
	}

	if err := store.UpsertGuildConfig(context.Background(), cfg); err != nil {
		t.Fatalf("upsert guild config: %v", err)
	}

	cfg.AnnouncementChannel = "c9"
	cfg.GrantRole2 = ""
	if err := store.UpsertGuildConfig(context.Background(), cfg); err != nil {
		t.Fatalf("update guild config: %v", err)
	}

	got, err := store.GetGuildConfig(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get guild config: %v", err)
	}
	if got.AnnouncementChannel != "c9" {
		t.Fatalf("expected channel c9, got %q", got.AnnouncementChannel)
	}
	if got.GrantRole2 != "" {
		t.Fatalf("expected grant role 2 unset, got %q", got.GrantRole2)
	}
	if roles := got.RolesToGrant(); len(roles) != 1 || roles[0] != "member1" {
		t.Fatalf("unexpected grant roles: %v", roles)
	}
}

func TestGetGuildConfigAbsent(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetGuildConfig(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get guild config: %v", err)
	}
	if got.GuildID != "missing" {
		t.Fatalf("expected guild id filled in, got %q", got.GuildID)
	}
	if got.RoleToRemove != "" || len(got.RolesToGrant()) != 0 || got.AnnouncementChannel != "" {
		t.Fatalf("expected zero config, got %+v", got)
	}
}

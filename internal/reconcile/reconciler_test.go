package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildgate/internal/storage"

	"go.uber.org/zap"
)

type fakeMember struct {
	id       string
	username string

	nickname   string
	roles      map[string]bool
	guildRoles map[string]string // name -> id
	created    int

	nickErr   error
	removeErr error
	addErr    map[string]error
	ensureErr error
}

func newFakeMember(id string, withRoles ...string) *fakeMember {
	m := &fakeMember{
		id:         id,
		username:   "user-" + id,
		roles:      make(map[string]bool),
		guildRoles: make(map[string]string),
		addErr:     make(map[string]error),
	}
	for _, role := range withRoles {
		m.roles[role] = true
	}
	return m
}

func (m *fakeMember) UserID() string   { return m.id }
func (m *fakeMember) Username() string { return m.username }

func (m *fakeMember) SetNickname(ctx context.Context, nick string) error {
	if m.nickErr != nil {
		return m.nickErr
	}
	m.nickname = nick
	return nil
}

func (m *fakeMember) AddRole(ctx context.Context, roleID string) error {
	if err := m.addErr[roleID]; err != nil {
		return err
	}
	m.roles[roleID] = true
	return nil
}

func (m *fakeMember) RemoveRole(ctx context.Context, roleID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.roles, roleID)
	return nil
}

func (m *fakeMember) EnsureRole(ctx context.Context, name string) (string, error) {
	if m.ensureErr != nil {
		return "", m.ensureErr
	}
	if id, ok := m.guildRoles[name]; ok {
		return id, nil
	}
	m.created++
	id := "created-" + name
	m.guildRoles[name] = id
	return id, nil
}

type fakeRecords struct {
	upserts int
	userID  string
	nick    string
	extID   string
	err     error
}

func (r *fakeRecords) UpsertVerification(ctx context.Context, userID, username, nick, externalID string, at time.Time) error {
	r.upserts++
	r.userID = userID
	r.nick = nick
	r.extID = externalID
	return r.err
}

func TestReconcileAppliesConfiguredRoles(t *testing.T) {
	member := newFakeMember("u1", "novice")
	records := &fakeRecords{}
	r := New(records, zap.NewNop())

	cfg := storage.GuildConfig{
		GuildID:      "g1",
		RoleToRemove: "novice",
		GrantRole1:   "member1",
		GrantRole2:   "member2",
	}

	result, err := r.Reconcile(context.Background(), cfg, member, "Shadow", "12345")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Status != StatusVerified {
		t.Fatalf("expected verified status, got %v", result.Status)
	}
	if member.nickname != "Shadow" {
		t.Fatalf("expected nickname set, got %q", member.nickname)
	}
	if member.roles["novice"] {
		t.Fatalf("expected novice role removed")
	}
	if !member.roles["member1"] || !member.roles["member2"] {
		t.Fatalf("expected grant roles added: %v", member.roles)
	}
	uidRoleID := member.guildRoles["UID: 12345"]
	if uidRoleID == "" || !member.roles[uidRoleID] {
		t.Fatalf("expected UID role created and granted: %v / %v", member.guildRoles, member.roles)
	}
	if records.upserts != 1 || records.nick != "Shadow" || records.extID != "12345" {
		t.Fatalf("unexpected record upsert: %+v", records)
	}
}

func TestReconcileIdempotentRoleCreation(t *testing.T) {
	member := newFakeMember("u1")
	r := New(&fakeRecords{}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := r.Reconcile(context.Background(), storage.GuildConfig{}, member, "Shadow", "12345"); err != nil {
			t.Fatalf("reconcile pass %d: %v", i+1, err)
		}
	}

	if member.created != 1 {
		t.Fatalf("expected exactly one role creation, got %d", member.created)
	}
}

func TestReconcilePermissionDenied(t *testing.T) {
	member := newFakeMember("u1")
	member.ensureErr = errors.New("missing manage roles permission")
	records := &fakeRecords{}
	r := New(records, zap.NewNop())

	result, err := r.Reconcile(context.Background(), storage.GuildConfig{}, member, "Shadow", "12345")
	if err == nil {
		t.Fatalf("expected error")
	}
	if result.Status != StatusPermissionDenied {
		t.Fatalf("expected permission denied, got %v", result.Status)
	}
	if records.upserts != 1 {
		t.Fatalf("expected record upsert despite role failure, got %d", records.upserts)
	}
}

func TestReconcileWithoutConfig(t *testing.T) {
	member := newFakeMember("u1", "keepme")
	records := &fakeRecords{}
	r := New(records, zap.NewNop())

	result, err := r.Reconcile(context.Background(), storage.GuildConfig{}, member, "Shadow", "777")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Status != StatusVerified {
		t.Fatalf("expected verified status, got %v", result.Status)
	}
	if !member.roles["keepme"] {
		t.Fatalf("expected unrelated role untouched")
	}
	if member.nickname != "Shadow" {
		t.Fatalf("expected nickname set, got %q", member.nickname)
	}
	if member.guildRoles["UID: 777"] == "" {
		t.Fatalf("expected UID role created")
	}
	if records.upserts != 1 {
		t.Fatalf("expected record upsert, got %d", records.upserts)
	}
}

func TestReconcileSwallowsCosmeticFailures(t *testing.T) {
	member := newFakeMember("u1", "novice")
	member.nickErr = errors.New("hierarchy")
	member.removeErr = errors.New("hierarchy")
	member.addErr["member1"] = errors.New("hierarchy")
	records := &fakeRecords{}
	r := New(records, zap.NewNop())

	cfg := storage.GuildConfig{RoleToRemove: "novice", GrantRole1: "member1"}
	result, err := r.Reconcile(context.Background(), cfg, member, "Shadow", "12345")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Status != StatusVerified {
		t.Fatalf("expected verified despite cosmetic failures, got %v", result.Status)
	}
	if records.nick != "Shadow" || records.extID != "12345" {
		t.Fatalf("expected identity fields recorded: %+v", records)
	}
}

func TestRoleNameIsRaw(t *testing.T) {
	if got := RoleName(" 12345 "); got != "UID:  12345 " {
		t.Fatalf("expected raw concatenation, got %q", got)
	}
}

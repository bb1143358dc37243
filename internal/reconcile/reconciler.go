// Package reconcile applies a verification submission to a guild member:
// nickname, configured role swaps, and the durable UID marker role.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildgate/internal/storage"

	"go.uber.org/zap"
)

// RolePrefix is the exact prefix of the marker role created per verified
// member. The full role name is the idempotency key for role creation, so
// the submitted id is concatenated raw, with no trimming or normalization.
const RolePrefix = "UID: "

func RoleName(externalID string) string {
	return RolePrefix + externalID
}

type Status int

const (
	StatusVerified Status = iota
	StatusPermissionDenied
)

type Result struct {
	Status     Status
	Nick       string
	ExternalID string
	RoleName   string
}

// Member is the slice of guild-member capability the reconciler needs.
// EnsureRole looks up a role by exact name in the enclosing guild and
// creates it when missing, returning its id either way.
type Member interface {
	UserID() string
	Username() string
	SetNickname(ctx context.Context, nick string) error
	AddRole(ctx context.Context, roleID string) error
	RemoveRole(ctx context.Context, roleID string) error
	EnsureRole(ctx context.Context, name string) (string, error)
}

type RecordStore interface {
	UpsertVerification(ctx context.Context, userID, username, nick, externalID string, at time.Time) error
}

type Reconciler struct {
	records RecordStore
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(records RecordStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		records: records,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Reconcile runs the verification sequence for one member. Nickname and
// configured role changes are best-effort: guild admins routinely leave the
// bot below the member in the role hierarchy and those failures must not
// abort the flow. The UID role step is the one hard requirement, because
// that role is the only durable proof the member verified; its failure is
// surfaced as StatusPermissionDenied. The member record is upserted no
// matter which steps failed.
//
// Calls for the same user are serialized so a rapid double-submit cannot
// race the role lookup-or-create.
func (r *Reconciler) Reconcile(ctx context.Context, cfg storage.GuildConfig, member Member, nick, externalID string) (Result, error) {
	userID := member.UserID()
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.cosmetic(userID, "set_nickname", member.SetNickname(ctx, nick))
	if cfg.RoleToRemove != "" {
		r.cosmetic(userID, "remove_role", member.RemoveRole(ctx, cfg.RoleToRemove))
	}
	for _, roleID := range cfg.RolesToGrant() {
		r.cosmetic(userID, "grant_role", member.AddRole(ctx, roleID))
	}

	roleName := RoleName(externalID)
	roleID, roleErr := member.EnsureRole(ctx, roleName)
	if roleErr == nil {
		roleErr = member.AddRole(ctx, roleID)
	}

	if err := r.records.UpsertVerification(ctx, userID, member.Username(), nick, externalID, r.now()); err != nil {
		r.logger.Warn("member record upsert failed", zap.String("user_id", userID), zap.Error(err))
	}

	result := Result{Nick: nick, ExternalID: externalID, RoleName: roleName}
	if roleErr != nil {
		result.Status = StatusPermissionDenied
		return result, fmt.Errorf("uid role grant: %w", roleErr)
	}
	result.Status = StatusVerified
	return result, nil
}

// cosmetic discards a best-effort step's error into the log sink.
func (r *Reconciler) cosmetic(userID, step string, err error) {
	if err == nil {
		return
	}
	r.logger.Debug("cosmetic step failed", zap.String("user_id", userID), zap.String("step", step), zap.Error(err))
}

func (r *Reconciler) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock := r.locks[userID]
	if lock == nil {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultWarAnnouncement is sent when no announcement text is configured.
const DefaultWarAnnouncement = "@everyone ⚔️ A GUERRA DE GUILDA COMEÇOU!"

type Store struct {
	db *sql.DB
}

// GuildConfig holds the per-guild verification settings. The zero value
// (all fields empty) is valid and means no role or channel action is
// configured for that guild.
type GuildConfig struct {
	GuildID             string
	RoleToRemove        string
	GrantRole1          string
	GrantRole2          string
	AnnouncementChannel string
	VerificationChannel string
	AnnouncementText    string
}

// RolesToGrant returns the configured grant roles in order, skipping
// unset slots.
func (c GuildConfig) RolesToGrant() []string {
	var roles []string
	if c.GrantRole1 != "" {
		roles = append(roles, c.GrantRole1)
	}
	if c.GrantRole2 != "" {
		roles = append(roles, c.GrantRole2)
	}
	return roles
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// GetGuildConfig returns the stored config for guildID. A missing row is
// not an error: the zero config (with GuildID filled in) comes back.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (GuildConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT remove_role, grant_role_1, grant_role_2, announce_channel, verify_channel, announce_text
		FROM guild_configs WHERE guild_id = ?`, guildID)

	cfg := GuildConfig{GuildID: guildID}
	err := row.Scan(
		&cfg.RoleToRemove,
		&cfg.GrantRole1,
		&cfg.GrantRole2,
		&cfg.AnnouncementChannel,
		&cfg.VerificationChannel,
		&cfg.AnnouncementText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, nil
		}
		return GuildConfig{}, err
	}
	return cfg, nil
}

func (s *Store) UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (
			guild_id, remove_role, grant_role_1, grant_role_2,
			announce_channel, verify_channel, announce_text
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			remove_role = excluded.remove_role,
			grant_role_1 = excluded.grant_role_1,
			grant_role_2 = excluded.grant_role_2,
			announce_channel = excluded.announce_channel,
			verify_channel = excluded.verify_channel,
			announce_text = excluded.announce_text
	`,
		cfg.GuildID,
		cfg.RoleToRemove,
		cfg.GrantRole1,
		cfg.GrantRole2,
		cfg.AnnouncementChannel,
		cfg.VerificationChannel,
		cfg.AnnouncementText,
	)
	return err
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}

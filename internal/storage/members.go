package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MemberRecord is the durable per-user record. It is keyed by the Discord
// user id and owned entirely by this store; the live guild member is a
// separate entity correlated by the same id.
type MemberRecord struct {
	UserID        string
	Username      string
	ExternalNick  string
	ExternalID    string
	LastMessageAt time.Time
	LastSeenAt    time.Time
	IsMember      bool
	WarningCount  int
}

type Warning struct {
	ID       int64
	UserID   string
	Reason   string
	IssuedAt time.Time
}

// TouchMessage upserts the record on an observed message, refreshing the
// activity timestamp and last known username.
func (s *Store) TouchMessage(ctx context.Context, userID, username string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_records (user_id, username, last_message_at, last_seen_at, is_member)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			last_message_at = excluded.last_message_at,
			last_seen_at = excluded.last_seen_at,
			is_member = 1
	`, userID, username, at.Unix(), at.Unix())
	return err
}

// TouchPresence upserts the record on a presence update.
func (s *Store) TouchPresence(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_records (user_id, last_seen_at)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_seen_at = excluded.last_seen_at
	`, userID, at.Unix())
	return err
}

// UpsertVerification stores the submitted nickname and external id after a
// reconciliation pass. It replaces the identity fields in place so repeated
// verification never duplicates them.
func (s *Store) UpsertVerification(ctx context.Context, userID, username, nick, externalID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_records (user_id, username, external_nick, external_id, last_seen_at, is_member)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			external_nick = excluded.external_nick,
			external_id = excluded.external_id,
			last_seen_at = excluded.last_seen_at,
			is_member = 1
	`, userID, username, nick, externalID, at.Unix())
	return err
}

func (s *Store) SetMembership(ctx context.Context, userID string, isMember bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE member_records SET is_member = ? WHERE user_id = ?
	`, boolToInt(isMember), userID)
	return err
}

func (s *Store) GetMember(ctx context.Context, userID string) (MemberRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.user_id, m.username, m.external_nick, m.external_id,
			m.last_message_at, m.last_seen_at, m.is_member,
			(SELECT COUNT(*) FROM member_warnings w WHERE w.user_id = m.user_id)
		FROM member_records m WHERE m.user_id = ?`, userID)

	record, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemberRecord{}, nil
		}
		return MemberRecord{}, err
	}
	return record, nil
}

func (s *Store) ListMembers(ctx context.Context) ([]MemberRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.user_id, m.username, m.external_nick, m.external_id,
			m.last_message_at, m.last_seen_at, m.is_member,
			(SELECT COUNT(*) FROM member_warnings w WHERE w.user_id = m.user_id)
		FROM member_records m
		ORDER BY m.last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MemberRecord
	for rows.Next() {
		record, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) AddWarning(ctx context.Context, userID, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_warnings (user_id, reason, issued_at) VALUES (?, ?, ?)
	`, userID, reason, at.Unix())
	return err
}

func (s *Store) ClearWarnings(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM member_warnings WHERE user_id = ?`, userID)
	return err
}

func (s *Store) ListWarnings(ctx context.Context, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, reason, issued_at
		FROM member_warnings WHERE user_id = ? ORDER BY issued_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var warning Warning
		var issued int64
		if err := rows.Scan(&warning.ID, &warning.UserID, &warning.Reason, &issued); err != nil {
			return nil, err
		}
		warning.IssuedAt = time.Unix(issued, 0)
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (MemberRecord, error) {
	var record MemberRecord
	var lastMessage, lastSeen int64
	var isMember int
	err := row.Scan(
		&record.UserID,
		&record.Username,
		&record.ExternalNick,
		&record.ExternalID,
		&lastMessage,
		&lastSeen,
		&isMember,
		&record.WarningCount,
	)
	if err != nil {
		return MemberRecord{}, err
	}
	if lastMessage > 0 {
		record.LastMessageAt = time.Unix(lastMessage, 0)
	}
	if lastSeen > 0 {
		record.LastSeenAt = time.Unix(lastSeen, 0)
	}
	record.IsMember = isMember == 1
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTime keeps a fixed width so stored timestamps sort as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteDB struct {
	Path string
	db   *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pending_deletions (
	channel_id  TEXT PRIMARY KEY,
	guild_id    TEXT NOT NULL,
	due_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS closures (
	id             TEXT PRIMARY KEY,
	guild_id       TEXT NOT NULL,
	channel_id     TEXT NOT NULL,
	channel_name   TEXT NOT NULL,
	owner_id       TEXT NOT NULL DEFAULT '',
	owner_tag      TEXT NOT NULL DEFAULT '',
	closer_id      TEXT NOT NULL,
	closer_tag     TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	message_count  INTEGER NOT NULL DEFAULT 0,
	closed_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closures_guild_owner ON closures(guild_id, owner_id);
`

func (s *SQLiteDB) Init(ctx context.Context) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Close(context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDB) AddPendingDeletion(ctx context.Context, p PendingDeletion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_deletions (channel_id, guild_id, due_at) VALUES (?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET guild_id = excluded.guild_id, due_at = excluded.due_at`,
		p.ChannelID, p.GuildID, p.DueAt.UTC().Format(sqliteTime),
	)
	return err
}

func (s *SQLiteDB) RemovePendingDeletion(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM pending_deletions WHERE channel_id = ?", channelID)
	return err
}

func (s *SQLiteDB) PendingDeletions(ctx context.Context) ([]PendingDeletion, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT channel_id, guild_id, due_at FROM pending_deletions ORDER BY due_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingDeletion
	for rows.Next() {
		var p PendingDeletion
		var due string
		if err := rows.Scan(&p.ChannelID, &p.GuildID, &due); err != nil {
			return nil, err
		}
		p.DueAt, err = time.Parse(sqliteTime, due)
		if err != nil {
			return nil, fmt.Errorf("pending deletion %s: %w", p.ChannelID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) AddClosure(ctx context.Context, c ClosureRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO closures (id, guild_id, channel_id, channel_name, owner_id, owner_tag, closer_id, closer_tag, reason, message_count, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GuildID, c.ChannelID, c.ChannelName, c.OwnerID, c.OwnerTag,
		c.CloserID, c.CloserTag, c.Reason, c.MessageCount, c.ClosedAt.UTC().Format(sqliteTime),
	)
	return err
}

// Closures returns the newest records first. An empty ownerID matches every
// owner in the guild.
func (s *SQLiteDB) Closures(ctx context.Context, guildID, ownerID string, limit int) ([]ClosureRecord, error) {
	query := `SELECT id, guild_id, channel_id, channel_name, owner_id, owner_tag, closer_id, closer_tag, reason, message_count, closed_at
		FROM closures WHERE guild_id = ?`
	args := []interface{}{guildID}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY closed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClosureRecord
	for rows.Next() {
		var c ClosureRecord
		var closedAt string
		if err := rows.Scan(&c.ID, &c.GuildID, &c.ChannelID, &c.ChannelName, &c.OwnerID, &c.OwnerTag,
			&c.CloserID, &c.CloserTag, &c.Reason, &c.MessageCount, &closedAt); err != nil {
			return nil, err
		}
		c.ClosedAt, err = time.Parse(sqliteTime, closedAt)
		if err != nil {
			return nil, fmt.Errorf("closure %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

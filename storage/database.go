package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/JulianoPassing/scc-ticket-hp/config"
)

// Database persists what must survive a restart: channel deletions that
// were scheduled but not yet carried out, and the history of closed
// tickets.
type Database interface {
	Init(ctx context.Context) error
	Close(ctx context.Context) error

	AddPendingDeletion(ctx context.Context, p PendingDeletion) error
	RemovePendingDeletion(ctx context.Context, channelID string) error
	PendingDeletions(ctx context.Context) ([]PendingDeletion, error)

	AddClosure(ctx context.Context, c ClosureRecord) error
	Closures(ctx context.Context, guildID, ownerID string, limit int) ([]ClosureRecord, error)
}

type PendingDeletion struct {
	ChannelID string    `json:"channel_id" bson:"channel_id"`
	GuildID   string    `json:"guild_id"   bson:"guild_id"`
	DueAt     time.Time `json:"due_at"     bson:"due_at"`
}

type ClosureRecord struct {
	ID           string    `json:"id"            bson:"_id"`
	GuildID      string    `json:"guild_id"      bson:"guild_id"`
	ChannelID    string    `json:"channel_id"    bson:"channel_id"`
	ChannelName  string    `json:"channel_name"  bson:"channel_name"`
	OwnerID      string    `json:"owner_id"      bson:"owner_id"`
	OwnerTag     string    `json:"owner_tag"     bson:"owner_tag"`
	CloserID     string    `json:"closer_id"     bson:"closer_id"`
	CloserTag    string    `json:"closer_tag"    bson:"closer_tag"`
	Reason       string    `json:"reason"        bson:"reason"`
	MessageCount int       `json:"message_count" bson:"message_count"`
	ClosedAt     time.Time `json:"closed_at"     bson:"closed_at"`
}

// Open builds and initialises the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Database, error) {
	var db Database
	switch cfg.Driver {
	case "sqlite":
		db = &SQLiteDB{Path: cfg.SQLite.Path}
	case "mongodb":
		db = &MongoDB{URI: cfg.MongoDB.URI, DBName: cfg.MongoDB.Database}
	case "memory":
		db = NewMemoryDB()
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (use \"sqlite\", \"mongodb\" or \"memory\")", cfg.Driver)
	}
	if err := db.Init(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoDB struct {
	URI    string
	DBName string

	client   *mongo.Client
	pending  *mongo.Collection
	closures *mongo.Collection
}

// Init connects and prepares the collections. On any failure the client is
// disconnected and the store stays unopened.
func (m *MongoDB) Init(ctx context.Context) (err error) {
	if m.URI == "" || m.DBName == "" {
		return fmt.Errorf("database.mongodb.uri and database.mongodb.database must be set to use driver=mongodb")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(m.URI))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err != nil {
			_ = client.Disconnect(ctx)
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	mdb := client.Database(m.DBName)
	pending := mdb.Collection("pending_deletions")
	closures := mdb.Collection("ticket_closures")

	if _, err := pending.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "channel_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("pending index: %w", err)
	}
	if _, err := closures.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "owner_id", Value: 1}, {Key: "closed_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("closures index: %w", err)
	}

	m.client = client
	m.pending = pending
	m.closures = closures
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) AddPendingDeletion(ctx context.Context, p PendingDeletion) error {
	_, err := m.pending.ReplaceOne(
		ctx,
		bson.M{"channel_id": p.ChannelID},
		p,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *MongoDB) RemovePendingDeletion(ctx context.Context, channelID string) error {
	_, err := m.pending.DeleteOne(ctx, bson.M{"channel_id": channelID})
	return err
}

func (m *MongoDB) PendingDeletions(ctx context.Context) ([]PendingDeletion, error) {
	cursor, err := m.pending.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "due_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []PendingDeletion
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoDB) AddClosure(ctx context.Context, c ClosureRecord) error {
	_, err := m.closures.InsertOne(ctx, c)
	return err
}

func (m *MongoDB) Closures(ctx context.Context, guildID, ownerID string, limit int) ([]ClosureRecord, error) {
	filter := bson.M{"guild_id": guildID}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "closed_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.closures.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ClosureRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

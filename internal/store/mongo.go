package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tatianab/dungeon-master/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	savesCollection   = "saves"
	playersCollection = "players"
	defaultDatabase   = "dungeon"
)

type saveDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PlayerID  string             `bson:"playerId"`
	SaveSlot  int                `bson:"saveSlot"`
	SaveName  string             `bson:"saveName"`
	GameState bson.M             `bson:"gameState,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`
	IsActive  bool               `bson:"isActive"`
	CreatedAt time.Time          `bson:"createdAt,omitempty"`
}

// Mongo stores saves in a MongoDB "saves" collection, one document per key.
type Mongo struct {
	client  *mongo.Client
	saves   *mongo.Collection
	players *mongo.Collection
}

// NewMongo connects to uri, verifies the connection and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = defaultDatabase
	}
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, unavailable(fmt.Errorf("connect mongo: %w", err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable(fmt.Errorf("ping mongo: %w", err))
	}

	db := client.Database(database)
	m := &Mongo{
		client:  client,
		saves:   db.Collection(savesCollection),
		players: db.Collection(playersCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.saves.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "playerId", Value: 1}, {Key: "saveSlot", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("player_slot_unique"),
		},
		{
			Keys:    bson.D{{Key: "playerId", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("player_timestamp"),
		},
	})
	if err != nil {
		return fmt.Errorf("create save indexes: %w", err)
	}
	_, err = m.players.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "playerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create player index: %w", err)
	}
	return nil
}

func (m *Mongo) Upsert(ctx context.Context, rec *models.SaveRecord) (models.UpsertResult, error) {
	filter := bson.M{"playerId": rec.PlayerID, "saveSlot": rec.SaveSlot}
	update := bson.M{
		"$set": bson.M{
			"saveName":  rec.SaveName,
			"gameState": rec.GameState,
			"timestamp": rec.Timestamp,
			"isActive":  true,
		},
		"$setOnInsert": bson.M{"createdAt": rec.Timestamp},
	}
	upsert := options.Update().SetUpsert(true)

	res, err := m.saves.UpdateOne(ctx, filter, update, upsert)
	if mongo.IsDuplicateKeyError(err) {
		// Two upserts raced to insert the key; the loser now finds the document and updates it.
		res, err = m.saves.UpdateOne(ctx, filter, update, upsert)
	}
	if err != nil {
		return models.UpsertResult{}, mongoErr("upsert save", err)
	}

	var out models.UpsertResult
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		out = models.UpsertResult{SaveID: oid.Hex(), Created: true}
	} else {
		var doc saveDoc
		err := m.saves.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&doc)
		if err != nil {
			return models.UpsertResult{}, mongoErr("find saved id", err)
		}
		out = models.UpsertResult{SaveID: doc.ID.Hex()}
	}

	_, err = m.players.UpdateOne(ctx,
		bson.M{"playerId": rec.PlayerID},
		bson.M{
			"$set":         bson.M{"lastPlayed": rec.Timestamp},
			"$setOnInsert": bson.M{"createdAt": rec.Timestamp},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return models.UpsertResult{}, mongoErr("touch player", err)
	}
	return out, nil
}

func (m *Mongo) ListByPlayer(ctx context.Context, playerID string, limit int64) ([]models.SaveSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetProjection(bson.M{"gameState": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := m.saves.Find(ctx, bson.M{"playerId": playerID, "isActive": true}, opts)
	if err != nil {
		return nil, mongoErr("list saves", err)
	}
	var docs []saveDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode saves", err)
	}

	out := make([]models.SaveSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.SaveSummary{
			SaveID:    d.ID.Hex(),
			SaveName:  d.SaveName,
			SaveSlot:  d.SaveSlot,
			Timestamp: d.Timestamp,
		})
	}
	return out, nil
}

func (m *Mongo) LoadByID(ctx context.Context, id string) (models.GameState, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidKey
	}
	var doc saveDoc
	err = m.saves.FindOne(ctx, bson.M{"_id": oid, "isActive": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mongoErr("load save", err)
	}
	if doc.GameState == nil {
		return nil, ErrNotFound
	}
	return plainMap(doc.GameState), nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidKey
	}
	res, err := m.saves.UpdateOne(ctx,
		bson.M{"_id": oid, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return mongoErr("delete save", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// plainMap converts decoded BSON containers to plain maps and slices so the
// state looks the same as it did when it was saved.
func plainMap(m bson.M) models.GameState {
	out := make(models.GameState, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(plainMap(t))
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return map[string]any(plainMap(m))
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	}
	return v
}

func mongoErr(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return unavailable(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

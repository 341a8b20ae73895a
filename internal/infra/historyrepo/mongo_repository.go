package historyrepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

const collectionName = "summaries"

type summaryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Prompt    string             `bson:"prompt"`
	Summary   string             `bson:"summary"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d summaryDocument) record() summarizer.Record {
	return summarizer.Record{
		ID:        d.ID.Hex(),
		Prompt:    d.Prompt,
		Summary:   d.Summary,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// MongoRepository stores summaries in a MongoDB collection.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoRepository wraps the summaries collection of database.
func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}
}

// EnsureIndexes creates the createdAt index used by Recent.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	return err
}

// Append inserts a new summary document.
func (r *MongoRepository) Append(ctx context.Context, rec summarizer.Record) (summarizer.Record, error) {
	doc := summaryDocument{
		ID:        primitive.NewObjectID(),
		Prompt:    rec.Prompt,
		Summary:   rec.Summary,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return summarizer.Record{}, err
	}
	return doc.record(), nil
}

// Recent returns the newest documents first. ObjectIDs grow monotonically,
// so _id breaks ties between equal timestamps.
func (r *MongoRepository) Recent(ctx context.Context, limit int) ([]summarizer.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	records := make([]summarizer.Record, 0, limit)
	for cur.Next(ctx) {
		var doc summaryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, doc.record())
	}
	return records, cur.Err()
}

// Close disconnects the client.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

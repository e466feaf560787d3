package dataset

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rrens/invest-agent/internal/domain"
)

// MongoSampler draws documents with the $sample aggregation stage
type MongoSampler struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoSampler, error) {
	if database == "" {
		return nil, fmt.Errorf("dataset.database is required for driver mongo")
	}

	clientOpts := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &MongoSampler{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoSampler) Name() string {
	return "mongo"
}

// SamplePipeline returns the aggregation used to draw n documents without _id
func SamplePipeline(n int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}}}},
	}
}

func (s *MongoSampler) Sample(ctx context.Context, n int) ([]domain.DatasetRow, error) {
	cursor, err := s.collection.Aggregate(ctx, SamplePipeline(n))
	if err != nil {
		return nil, fmt.Errorf("sample aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}

	sample := make([]domain.DatasetRow, len(docs))
	for i, doc := range docs {
		sample[i] = domain.DatasetRow(doc)
	}
	return sample, nil
}

func (s *MongoSampler) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoSampler) Close() error {
	return s.client.Disconnect(context.Background())
}

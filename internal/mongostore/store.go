// Package mongostore keeps per-post aggregate documents in MongoDB, one
// document per post keyed by post id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/rating"
)

// CollectionName is the collection holding aggregate documents.
const CollectionName = "postRatings"

// Store implements rating.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
}

var _ rating.Store = (*Store)(nil)

// Connect dials uri, pings the primary and returns a Store on database db.
func Connect(ctx context.Context, uri, db string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: client, col: client.Database(db).Collection(CollectionName)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// HealthCheck pings the primary.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Get(ctx context.Context, postID string) (domain.PostRating, error) {
	var doc domain.PostRating
	err := s.col.FindOne(ctx, bson.D{{Key: "_id", Value: postID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PostRating{}, rating.ErrNotFound
	}
	if err != nil {
		return domain.PostRating{}, err
	}
	return normalize(doc), nil
}

func (s *Store) Insert(ctx context.Context, doc domain.PostRating) (domain.PostRating, error) {
	doc = normalize(doc)
	doc.Version = 1
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.PostRating{}, rating.ErrConflict
		}
		return domain.PostRating{}, err
	}
	return s.Get(ctx, doc.PostID)
}

func (s *Store) Replace(ctx context.Context, doc domain.PostRating, expectedVersion int64) (domain.PostRating, error) {
	doc = normalize(doc)
	doc.Version = expectedVersion + 1

	filter := bson.D{{Key: "_id", Value: doc.PostID}, {Key: "version", Value: expectedVersion}}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var saved domain.PostRating
	err := s.col.FindOneAndReplace(ctx, filter, doc, opts).Decode(&saved)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PostRating{}, rating.ErrConflict
	}
	if err != nil {
		return domain.PostRating{}, err
	}
	return normalize(saved), nil
}

func (s *Store) Delete(ctx context.Context, postID string) error {
	res, err := s.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: postID}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return rating.ErrNotFound
	}
	return nil
}

// normalize gives decoded documents non-nil slices and UTC timestamps.
func normalize(doc domain.PostRating) domain.PostRating {
	if doc.Ratings == nil {
		doc.Ratings = []domain.RatingRecord{}
	}
	if doc.Likes == nil {
		doc.Likes = []string{}
	}
	doc.LastUpdated = doc.LastUpdated.UTC()
	return doc
}

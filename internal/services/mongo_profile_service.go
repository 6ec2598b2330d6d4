package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

type MongoProfileService struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
}

type mongoProfileDoc struct {
	UserID             string `bson:"user_id"`
	DisplayName        string `bson:"display_name"`
	Bio                string `bson:"bio,omitempty"`
	Location           string `bson:"location"`
	DonationsCount     int    `bson:"donations_count"`
	RequestsCount      int    `bson:"requests_count"`
	CompletedDonations int    `bson:"completed_donations"`
	CompletedRequests  int    `bson:"completed_requests"`
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
	client, err := mongoClientFor(ctx, mongoURI)
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	col := db.Collection("profiles")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoProfileService{
		client:      client,
		db:          db,
		profilesCol: col,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) GetByUserID(userID string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc mongoProfileDoc
	if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profileDocToModel(doc), nil
}

func profileDocToModel(d mongoProfileDoc) *models.UserProfile {
	return &models.UserProfile{
		UserID:             d.UserID,
		DisplayName:        d.DisplayName,
		Bio:                d.Bio,
		Location:           d.Location,
		DonationsCount:     d.DonationsCount,
		RequestsCount:      d.RequestsCount,
		CompletedDonations: d.CompletedDonations,
		CompletedRequests:  d.CompletedRequests,
	}
}

func (s *MongoProfileService) RecordListing(userID, displayName, location string, field CounterField) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// $inc on an existing profile; the seed fields only apply when the
	// upsert inserts, so an existing profile is never re-seeded.
	_, err := s.profilesCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{string(field): 1},
			"$setOnInsert": bson.M{
				"user_id":      userID,
				"display_name": displayName,
				"location":     location,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoProfileService) IncrementCompleted(userID string, field CounterField) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// No upsert: a user with no profile silently keeps none.
	_, err := s.profilesCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{string(field): 1}},
	)
	return err
}

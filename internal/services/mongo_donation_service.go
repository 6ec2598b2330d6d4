package services

import (
	"context"
	"crypto/tls"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

type MongoDonationService struct {
	client       *mongo.Client
	db           *mongo.Database
	donationsCol *mongo.Collection
	users        UserDirectory
	profiles     ProfileService
}

type mongoDonationDoc struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Category    string     `bson:"category"`
	Condition   string     `bson:"condition"`
	Location    string     `bson:"location"`
	Tags        []string   `bson:"tags"`
	DonorID     string     `bson:"donor_id"`
	DonorName   string     `bson:"donor_name"`
	DonorEmail  string     `bson:"donor_email"`
	Status      string     `bson:"status"`
	ImageURL    string     `bson:"image_url,omitempty"`
	ReservedBy  string     `bson:"reserved_by,omitempty"`
	ReservedAt  *time.Time `bson:"reserved_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func mongoClientFor(ctx context.Context, mongoURI string) (*mongo.Client, error) {
	// Atlas occasionally fails TLS negotiation in some environments unless we force TLS 1.2.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func NewMongoDonationService(ctx context.Context, mongoURI, dbName string, users UserDirectory, profiles ProfileService) (*MongoDonationService, error) {
	client, err := mongoClientFor(ctx, mongoURI)
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	donations := db.Collection("donations")

	svc := &MongoDonationService{
		client:       client,
		db:           db,
		donationsCol: donations,
		users:        users,
		profiles:     profiles,
	}

	// Best-effort indexes.
	_, _ = donations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "donor_id", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}}},
	})

	log.Printf("MongoDB connected (donations): db=%s", dbName)
	return svc, nil
}

func (s *MongoDonationService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func donationDocToModel(d mongoDonationDoc) *models.Donation {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Donation{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Condition:   d.Condition,
		Location:    d.Location,
		Tags:        tags,
		DonorID:     d.DonorID,
		DonorName:   d.DonorName,
		DonorEmail:  d.DonorEmail,
		Status:      d.Status,
		ImageURL:    d.ImageURL,
		ReservedBy:  d.ReservedBy,
		ReservedAt:  d.ReservedAt,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *MongoDonationService) Create(actorID string, req *models.CreateDonationRequest) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(actorID)
	if err != nil {
		return nil, ErrActorNotFound
	}
	name := displayNameFor(user)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	doc := mongoDonationDoc{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
		Tags:        tags,
		DonorID:     actorID,
		DonorName:   name,
		DonorEmail:  user.Email,
		Status:      models.DonationAvailable,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.donationsCol.InsertOne(ctx, doc); err != nil {
		return nil, err
	}

	// Separate write from the insert: if it fails, the donation stays
	// persisted and the error surfaces to the caller.
	if err := s.profiles.RecordListing(actorID, name, req.Location, CounterDonations); err != nil {
		return nil, err
	}
	return donationDocToModel(doc), nil
}

func (s *MongoDonationService) Reserve(actorID, donationID string) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var current mongoDonationDoc
	if err := s.donationsCol.FindOne(ctx, bson.M{"_id": donationID}).Decode(&current); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	if current.Status != models.DonationAvailable {
		return nil, ErrInvalidState
	}
	if current.DonorID == actorID {
		return nil, ErrSelfAction
	}

	// The status precondition lives inside the filter, so of two
	// concurrent reserves only one matches; the loser sees no document
	// and reports the state conflict.
	now := time.Now().UTC()
	res := s.donationsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": donationID, "status": models.DonationAvailable},
		bson.M{"$set": bson.M{
			"status":      models.DonationReserved,
			"reserved_by": actorID,
			"reserved_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated mongoDonationDoc
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	return donationDocToModel(updated), nil
}

func (s *MongoDonationService) Complete(actorID, donationID string) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res := s.donationsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": donationID, "donor_id": actorID},
		bson.M{"$set": bson.M{"status": models.DonationCompleted}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated mongoDonationDoc
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish not found vs not the donor.
			var exists mongoDonationDoc
			if err2 := s.donationsCol.FindOne(ctx, bson.M{"_id": donationID}).Decode(&exists); err2 == mongo.ErrNoDocuments {
				return nil, ErrDonationNotFound
			}
			return nil, ErrForbidden
		}
		return nil, err
	}

	if err := s.profiles.IncrementCompleted(actorID, CounterCompletedDonations); err != nil {
		return nil, err
	}
	return donationDocToModel(updated), nil
}

func (s *MongoDonationService) GetByID(id string) (*models.Donation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc mongoDonationDoc
	if err := s.donationsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return donationDocToModel(doc), nil
}

func (s *MongoDonationService) List(category, search string) ([]*models.Donation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	search = strings.TrimSpace(search)
	filter := bson.M{"status": models.DonationAvailable}
	if category != "" && category != "all" {
		filter["category"] = category
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if search != "" {
		filter["$text"] = bson.M{"$search": search}
		// Relevance order for searches.
		findOpts = options.Find().
			SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	}

	cur, err := s.donationsCol.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return decodeDonations(ctx, cur)
}

func (s *MongoDonationService) ListByDonor(actorID string) ([]*models.Donation, error) {
	if actorID == "" {
		return []*models.Donation{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cur, err := s.donationsCol.Find(
		ctx,
		bson.M{"donor_id": actorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return decodeDonations(ctx, cur)
}

func decodeDonations(ctx context.Context, cur *mongo.Cursor) ([]*models.Donation, error) {
	out := make([]*models.Donation, 0)
	for cur.Next(ctx) {
		var doc mongoDonationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, donationDocToModel(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

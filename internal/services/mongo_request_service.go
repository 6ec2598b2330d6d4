package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/givehub/backend/internal/models"
)

type MongoRequestService struct {
	client      *mongo.Client
	db          *mongo.Database
	requestsCol *mongo.Collection
	users       UserDirectory
	profiles    ProfileService
}

type mongoRequestDoc struct {
	ID             string     `bson:"_id"`
	Title          string     `bson:"title"`
	Description    string     `bson:"description"`
	Category       string     `bson:"category"`
	Urgency        string     `bson:"urgency"`
	Location       string     `bson:"location"`
	Tags           []string   `bson:"tags"`
	RequesterID    string     `bson:"requester_id"`
	RequesterName  string     `bson:"requester_name"`
	RequesterEmail string     `bson:"requester_email"`
	Status         string     `bson:"status"`
	FulfilledBy    string     `bson:"fulfilled_by,omitempty"`
	FulfilledAt    *time.Time `bson:"fulfilled_at,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
}

func NewMongoRequestService(ctx context.Context, mongoURI, dbName string, users UserDirectory, profiles ProfileService) (*MongoRequestService, error) {
	client, err := mongoClientFor(ctx, mongoURI)
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	requests := db.Collection("requests")

	svc := &MongoRequestService{
		client:      client,
		db:          db,
		requestsCol: requests,
		users:       users,
		profiles:    profiles,
	}

	// Best-effort indexes.
	_, _ = requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "urgency", Value: 1}}},
		{Keys: bson.D{{Key: "requester_id", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}}},
	})

	log.Printf("MongoDB connected (requests): db=%s", dbName)
	return svc, nil
}

func (s *MongoRequestService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func requestDocToModel(d mongoRequestDoc) *models.Request {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Request{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Category:       d.Category,
		Urgency:        d.Urgency,
		Location:       d.Location,
		Tags:           tags,
		RequesterID:    d.RequesterID,
		RequesterName:  d.RequesterName,
		RequesterEmail: d.RequesterEmail,
		Status:         d.Status,
		FulfilledBy:    d.FulfilledBy,
		FulfilledAt:    d.FulfilledAt,
		CreatedAt:      d.CreatedAt,
	}
}

func (s *MongoRequestService) Create(actorID string, req *models.CreateRequestRequest) (*models.Request, error) {
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

	doc := mongoRequestDoc{
		ID:             uuid.New().String(),
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Urgency:        req.Urgency,
		Location:       req.Location,
		Tags:           tags,
		RequesterID:    actorID,
		RequesterName:  name,
		RequesterEmail: user.Email,
		Status:         models.RequestOpen,
		CreatedAt:      time.Now().UTC(),
	}

	if _, err := s.requestsCol.InsertOne(ctx, doc); err != nil {
		return nil, err
	}

	// Separate write from the insert: if it fails, the request stays
	// persisted and the error surfaces to the caller.
	if err := s.profiles.RecordListing(actorID, name, req.Location, CounterRequests); err != nil {
		return nil, err
	}
	return requestDocToModel(doc), nil
}

func (s *MongoRequestService) Fulfill(actorID, requestID string) (*models.Request, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var current mongoRequestDoc
	if err := s.requestsCol.FindOne(ctx, bson.M{"_id": requestID}).Decode(&current); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if current.Status != models.RequestOpen {
		return nil, ErrInvalidState
	}
	if current.RequesterID == actorID {
		return nil, ErrSelfAction
	}

	// Status precondition in the filter: a racing fulfill loses and
	// reports the state conflict.
	now := time.Now().UTC()
	res := s.requestsCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": requestID, "status": models.RequestOpen},
		bson.M{"$set": bson.M{
			"status":       models.RequestFulfilled,
			"fulfilled_by": actorID,
			"fulfilled_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated mongoRequestDoc
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	// Credit the requester, not the fulfiller.
	if err := s.profiles.IncrementCompleted(updated.RequesterID, CounterCompletedRequests); err != nil {
		return nil, err
	}
	return requestDocToModel(updated), nil
}

func (s *MongoRequestService) GetByID(id string) (*models.Request, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc mongoRequestDoc
	if err := s.requestsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return requestDocToModel(doc), nil
}

func (s *MongoRequestService) List(category, urgency, search string) ([]*models.Request, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	search = strings.TrimSpace(search)
	filter := bson.M{"status": models.RequestOpen}
	if category != "" && category != "all" {
		filter["category"] = category
	}
	if urgency != "" && urgency != "all" {
		filter["urgency"] = urgency
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if search != "" {
		filter["$text"] = bson.M{"$search": search}
		findOpts = options.Find().
			SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	}

	cur, err := s.requestsCol.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out, err := decodeRequests(ctx, cur)
	if err != nil {
		return nil, err
	}
	sortByUrgency(out)
	return out, nil
}

func (s *MongoRequestService) ListByRequester(actorID string) ([]*models.Request, error) {
	if actorID == "" {
		return []*models.Request{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cur, err := s.requestsCol.Find(
		ctx,
		bson.M{"requester_id": actorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return decodeRequests(ctx, cur)
}

func decodeRequests(ctx context.Context, cur *mongo.Cursor) ([]*models.Request, error) {
	out := make([]*models.Request, 0)
	for cur.Next(ctx) {
		var doc mongoRequestDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, requestDocToModel(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

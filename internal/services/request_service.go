package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/storage"
)

// RequestService drives the request lifecycle: open -> fulfilled. The
// "closed" status exists in the data model but nothing transitions into
// it.
type RequestService interface {
	Create(actorID string, req *models.CreateRequestRequest) (*models.Request, error)
	Fulfill(actorID, requestID string) (*models.Request, error)
	GetByID(id string) (*models.Request, error)

	// List returns open requests filtered like DonationService.List, with
	// an extra urgency equality filter ("all" bypasses), re-sorted by
	// urgency descending. The re-sort is stable: requests of equal
	// urgency keep their newest-first (or relevance) order.
	List(category, urgency, search string) ([]*models.Request, error)

	ListByRequester(actorID string) ([]*models.Request, error)
}

type requestRecord struct {
	Request models.Request `json:"request"`
	Seq     uint64         `json:"seq"`
}

type JSONRequestService struct {
	mu       sync.RWMutex
	store    *storage.JSONStore
	users    UserDirectory
	profiles ProfileService
	requests map[string]*requestRecord
	nextSeq  uint64
}

func NewJSONRequestService(store *storage.JSONStore, users UserDirectory, profiles ProfileService) (*JSONRequestService, error) {
	s := &JSONRequestService{
		store:    store,
		users:    users,
		profiles: profiles,
		requests: make(map[string]*requestRecord),
		nextSeq:  1,
	}

	var loaded []*requestRecord
	if err := store.Load("requests", &loaded); err != nil {
		return nil, err
	}
	for _, rec := range loaded {
		s.requests[rec.Request.ID] = rec
		if rec.Seq >= s.nextSeq {
			s.nextSeq = rec.Seq + 1
		}
	}
	return s, nil
}

func (s *JSONRequestService) Create(actorID string, req *models.CreateRequestRequest) (*models.Request, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(actorID)
	if err != nil {
		return nil, ErrActorNotFound
	}
	name := displayNameFor(user)

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	s.mu.Lock()
	r := models.Request{
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
	rec := &requestRecord{Request: r, Seq: s.nextSeq}
	s.nextSeq++
	s.requests[r.ID] = rec
	if err := s.persistLocked(); err != nil {
		delete(s.requests, r.ID)
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	// The counter is a second commit: if it fails, the request stays
	// persisted and the error surfaces to the caller.
	if err := s.profiles.RecordListing(actorID, name, req.Location, CounterRequests); err != nil {
		return nil, err
	}
	return cloneRequest(r), nil
}

func (s *JSONRequestService) Fulfill(actorID, requestID string) (*models.Request, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	s.mu.Lock()
	rec, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrRequestNotFound
	}
	if rec.Request.Status != models.RequestOpen {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	if rec.Request.RequesterID == actorID {
		s.mu.Unlock()
		return nil, ErrSelfAction
	}

	now := time.Now().UTC()
	rec.Request.Status = models.RequestFulfilled
	rec.Request.FulfilledBy = actorID
	rec.Request.FulfilledAt = &now
	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	r := rec.Request
	s.mu.Unlock()

	// The completed counter belongs to the requester, not the fulfiller.
	if err := s.profiles.IncrementCompleted(r.RequesterID, CounterCompletedRequests); err != nil {
		return nil, err
	}
	return cloneRequest(r), nil
}

func (s *JSONRequestService) GetByID(id string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return cloneRequest(rec.Request), nil
}

func (s *JSONRequestService) List(category, urgency, search string) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.TrimSpace(search)
	filterCategory := category != "" && category != "all"
	filterUrgency := urgency != "" && urgency != "all"

	recs := make([]*requestRecord, 0)
	for _, rec := range s.requests {
		if rec.Request.Status != models.RequestOpen {
			continue
		}
		if filterCategory && rec.Request.Category != category {
			continue
		}
		if filterUrgency && rec.Request.Urgency != urgency {
			continue
		}
		if search != "" && !titleMatches(rec.Request.Title, search) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq > recs[j].Seq })

	out := make([]*models.Request, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneRequest(rec.Request))
	}
	sortByUrgency(out)
	return out, nil
}

func (s *JSONRequestService) ListByRequester(actorID string) ([]*models.Request, error) {
	out := make([]*models.Request, 0)
	if actorID == "" {
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*requestRecord, 0)
	for _, rec := range s.requests {
		if rec.Request.RequesterID == actorID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq > recs[j].Seq })

	for _, rec := range recs {
		out = append(out, cloneRequest(rec.Request))
	}
	return out, nil
}

func (s *JSONRequestService) persistLocked() error {
	out := make([]*requestRecord, 0, len(s.requests))
	for _, rec := range s.requests {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return s.store.Save("requests", out)
}

// sortByUrgency orders urgent first. Stable so ties keep the order the
// caller already established.
func sortByUrgency(requests []*models.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		return models.UrgencyRank(requests[i].Urgency) > models.UrgencyRank(requests[j].Urgency)
	})
}

func cloneRequest(r models.Request) *models.Request {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	r.Tags = tags
	if r.FulfilledAt != nil {
		t := *r.FulfilledAt
		r.FulfilledAt = &t
	}
	return &r
}

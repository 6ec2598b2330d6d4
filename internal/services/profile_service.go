package services

import (
	"sort"
	"sync"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/storage"
)

// CounterField names a UserProfile counter. Values double as the
// persisted field names.
type CounterField string

const (
	CounterDonations          CounterField = "donations_count"
	CounterRequests           CounterField = "requests_count"
	CounterCompletedDonations CounterField = "completed_donations"
	CounterCompletedRequests  CounterField = "completed_requests"
)

// ProfileService maintains per-user activity counters.
//
// Only RecordListing ever creates a profile: a user who never posts a
// listing has none, and IncrementCompleted silently drops the increment
// for them. That asymmetry is deliberate and matched by the callers.
type ProfileService interface {
	GetByUserID(userID string) (*models.UserProfile, error)

	// RecordListing increments field on the user's profile, creating the
	// profile first (seeded from displayName and location) if needed.
	RecordListing(userID, displayName, location string, field CounterField) error

	// IncrementCompleted increments field if the user has a profile and
	// is a no-op otherwise.
	IncrementCompleted(userID string, field CounterField) error
}

// JSONProfileService keeps profiles in memory and persists them through
// the JSON store. Its mutex serializes counter updates so concurrent
// activity by the same user never loses an increment.
type JSONProfileService struct {
	mu       sync.RWMutex
	store    *storage.JSONStore
	profiles map[string]*models.UserProfile // userID -> profile
}

func NewJSONProfileService(store *storage.JSONStore) (*JSONProfileService, error) {
	s := &JSONProfileService{
		store:    store,
		profiles: make(map[string]*models.UserProfile),
	}

	var loaded []*models.UserProfile
	if err := store.Load("profiles", &loaded); err != nil {
		return nil, err
	}
	for _, p := range loaded {
		s.profiles[p.UserID] = p
	}
	return s, nil
}

func (s *JSONProfileService) GetByUserID(userID string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

func (s *JSONProfileService) RecordListing(userID, displayName, location string, field CounterField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		// Seed from the listing; later listings never re-seed.
		p = &models.UserProfile{
			UserID:      userID,
			DisplayName: displayName,
			Location:    location,
		}
		s.profiles[userID] = p
	}
	bumpCounter(p, field)
	return s.persistLocked()
}

func (s *JSONProfileService) IncrementCompleted(userID string, field CounterField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	bumpCounter(p, field)
	return s.persistLocked()
}

func bumpCounter(p *models.UserProfile, field CounterField) {
	switch field {
	case CounterDonations:
		p.DonationsCount++
	case CounterRequests:
		p.RequestsCount++
	case CounterCompletedDonations:
		p.CompletedDonations++
	case CounterCompletedRequests:
		p.CompletedRequests++
	}
}

func (s *JSONProfileService) persistLocked() error {
	out := make([]*models.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return s.store.Save("profiles", out)
}

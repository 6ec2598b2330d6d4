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

// DonationService drives the donation lifecycle:
// available -> reserved -> completed.
type DonationService interface {
	Create(actorID string, req *models.CreateDonationRequest) (*models.Donation, error)
	Reserve(actorID, donationID string) (*models.Donation, error)
	Complete(actorID, donationID string) (*models.Donation, error)
	GetByID(id string) (*models.Donation, error)

	// List returns available donations. With a search term it matches the
	// title (optionally narrowed by category); without one it returns all
	// available donations newest first, filtered by category. The "all"
	// sentinel disables the category filter.
	List(category, search string) ([]*models.Donation, error)

	// ListByDonor returns the actor's own donations, any status, newest
	// first. An empty actor id yields an empty list, not an error.
	ListByDonor(actorID string) ([]*models.Donation, error)
}

// donationRecord wraps a donation with its insertion sequence, which
// doubles as the creation-order sort key.
type donationRecord struct {
	Donation models.Donation `json:"donation"`
	Seq      uint64          `json:"seq"`
}

// JSONDonationService is the file-backed implementation. Every mutation
// runs under one write lock, so the read-check-write of a transition is
// serialized: of two concurrent reserves on the same donation, exactly
// one observes "available".
type JSONDonationService struct {
	mu        sync.RWMutex
	store     *storage.JSONStore
	users     UserDirectory
	profiles  ProfileService
	donations map[string]*donationRecord
	nextSeq   uint64
}

func NewJSONDonationService(store *storage.JSONStore, users UserDirectory, profiles ProfileService) (*JSONDonationService, error) {
	s := &JSONDonationService{
		store:     store,
		users:     users,
		profiles:  profiles,
		donations: make(map[string]*donationRecord),
		nextSeq:   1,
	}

	var loaded []*donationRecord
	if err := store.Load("donations", &loaded); err != nil {
		return nil, err
	}
	for _, rec := range loaded {
		s.donations[rec.Donation.ID] = rec
		if rec.Seq >= s.nextSeq {
			s.nextSeq = rec.Seq + 1
		}
	}
	return s, nil
}

func (s *JSONDonationService) Create(actorID string, req *models.CreateDonationRequest) (*models.Donation, error) {
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
	d := models.Donation{
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
	rec := &donationRecord{Donation: d, Seq: s.nextSeq}
	s.nextSeq++
	s.donations[d.ID] = rec
	if err := s.persistLocked(); err != nil {
		delete(s.donations, d.ID)
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	// The counter is a second commit: if it fails, the donation stays
	// persisted and the error surfaces to the caller.
	if err := s.profiles.RecordListing(actorID, name, req.Location, CounterDonations); err != nil {
		return nil, err
	}
	return cloneDonation(d), nil
}

func (s *JSONDonationService) Reserve(actorID, donationID string) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.donations[donationID]
	if !ok {
		return nil, ErrDonationNotFound
	}
	if rec.Donation.Status != models.DonationAvailable {
		return nil, ErrInvalidState
	}
	if rec.Donation.DonorID == actorID {
		return nil, ErrSelfAction
	}

	now := time.Now().UTC()
	rec.Donation.Status = models.DonationReserved
	rec.Donation.ReservedBy = actorID
	rec.Donation.ReservedAt = &now
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return cloneDonation(rec.Donation), nil
}

func (s *JSONDonationService) Complete(actorID, donationID string) (*models.Donation, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}

	s.mu.Lock()
	rec, ok := s.donations[donationID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDonationNotFound
	}
	if rec.Donation.DonorID != actorID {
		s.mu.Unlock()
		return nil, ErrForbidden
	}

	// The donor may complete directly from "available"; a prior reserve
	// is not required.
	rec.Donation.Status = models.DonationCompleted
	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d := rec.Donation
	s.mu.Unlock()

	if err := s.profiles.IncrementCompleted(actorID, CounterCompletedDonations); err != nil {
		return nil, err
	}
	return cloneDonation(d), nil
}

func (s *JSONDonationService) GetByID(id string) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.donations[id]
	if !ok {
		return nil, ErrDonationNotFound
	}
	return cloneDonation(rec.Donation), nil
}

func (s *JSONDonationService) List(category, search string) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.TrimSpace(search)
	filterCategory := category != "" && category != "all"

	recs := make([]*donationRecord, 0)
	for _, rec := range s.donations {
		if rec.Donation.Status != models.DonationAvailable {
			continue
		}
		if filterCategory && rec.Donation.Category != category {
			continue
		}
		if search != "" && !titleMatches(rec.Donation.Title, search) {
			continue
		}
		recs = append(recs, rec)
	}
	sortBySeqDesc(recs)

	out := make([]*models.Donation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneDonation(rec.Donation))
	}
	return out, nil
}

func (s *JSONDonationService) ListByDonor(actorID string) ([]*models.Donation, error) {
	out := make([]*models.Donation, 0)
	if actorID == "" {
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*donationRecord, 0)
	for _, rec := range s.donations {
		if rec.Donation.DonorID == actorID {
			recs = append(recs, rec)
		}
	}
	sortBySeqDesc(recs)

	for _, rec := range recs {
		out = append(out, cloneDonation(rec.Donation))
	}
	return out, nil
}

func (s *JSONDonationService) persistLocked() error {
	out := make([]*donationRecord, 0, len(s.donations))
	for _, rec := range s.donations {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return s.store.Save("donations", out)
}

func sortBySeqDesc(recs []*donationRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq > recs[j].Seq })
}

func cloneDonation(d models.Donation) *models.Donation {
	// make keeps an empty tags slice non-nil so it serializes as [].
	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)
	d.Tags = tags
	if d.ReservedAt != nil {
		t := *d.ReservedAt
		d.ReservedAt = &t
	}
	return &d
}

// titleMatches is the JSON-store stand-in for the text index: a
// case-insensitive substring match on the title.
func titleMatches(title, search string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(search))
}

func displayNameFor(user *models.User) string {
	if user.Name != "" {
		return user.Name
	}
	if user.Email != "" {
		return user.Email
	}
	return "Anonymous"
}

package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/storage"
)

// UserDirectory resolves an authenticated actor id to its user record.
// Lifecycle services use it to snapshot donor/requester identity at
// creation time.
type UserDirectory interface {
	GetByID(id string) (*models.User, error)
}

// UserService is a bcrypt-backed user registry persisted through the
// JSON store.
type UserService struct {
	mu      sync.RWMutex
	store   *storage.JSONStore
	users   map[string]*models.User // userID -> user
	byEmail map[string]string       // email -> userID
}

func NewUserService(store *storage.JSONStore) (*UserService, error) {
	s := &UserService{
		store:   store,
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}

	var stored []models.StoredUser
	if err := store.Load("users", &stored); err != nil {
		return nil, err
	}
	for _, su := range stored {
		u := su.User()
		s.users[u.ID] = u
		s.byEmail[u.Email] = u.ID
	}
	return s, nil
}

func (s *UserService) Register(req *models.RegisterRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[req.Email]; exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Name:         req.Name,
		CreatedAt:    time.Now().UTC(),
	}

	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(req *models.LoginRequest) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[req.Email]
	if !exists {
		return nil, ErrUserNotFound
	}

	user := s.users[userID]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return user, nil
}

func (s *UserService) GetByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (s *UserService) persistLocked() error {
	stored := make([]models.StoredUser, 0, len(s.users))
	for _, u := range s.users {
		stored = append(stored, models.NewStoredUser(u))
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].CreatedAt.Before(stored[j].CreatedAt) })
	return s.store.Save("users", stored)
}

package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/storage"
)

// ImageService stores donation photos on disk. Upload records persist
// through the JSON store so ownership checks survive restarts.
type ImageService struct {
	mu        sync.RWMutex
	uploadDir string
	store     *storage.JSONStore
	images    map[string]*ImageRecord // imageID -> image info
}

type ImageRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	UserID   string `json:"user_id"`
}

func NewImageService(uploadDir string, store *storage.JSONStore) (*ImageService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, err
	}

	s := &ImageService{
		uploadDir: uploadDir,
		store:     store,
		images:    make(map[string]*ImageRecord),
	}

	var loaded []*ImageRecord
	if err := store.Load("images", &loaded); err != nil {
		return nil, err
	}
	for _, rec := range loaded {
		s.images[rec.ID] = rec
	}
	return s, nil
}

func (s *ImageService) Upload(userID string, filename string, file io.Reader) (*models.ImageUploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imageID := uuid.New().String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}

	newFilename := imageID + ext
	filePath := filepath.Join(s.uploadDir, newFilename)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	record := &ImageRecord{
		ID:       imageID,
		Filename: newFilename,
		Path:     filePath,
		UserID:   userID,
	}
	s.images[imageID] = record
	if err := s.persistLocked(); err != nil {
		return nil, err
	}

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      "/uploads/" + newFilename,
		Filename: newFilename,
	}, nil
}

func (s *ImageService) Delete(userID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.images[imageID]
	if !exists {
		return ErrImageNotFound
	}

	// Only the uploader may delete.
	if record.UserID != userID {
		return ErrForbidden
	}

	if err := os.Remove(record.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	delete(s.images, imageID)
	return s.persistLocked()
}

func (s *ImageService) persistLocked() error {
	out := make([]*ImageRecord, 0, len(s.images))
	for _, rec := range s.images {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return s.store.Save("images", out)
}

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore persists named collections as JSON files under a data
// directory. Writes go through a temp file + rename so a crash never
// leaves a half-written collection behind.
type JSONStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &JSONStore{dataDir: dataDir}, nil
}

// Load reads the named collection into data. A missing file is not an
// error; data is left untouched.
func (s *JSONStore) Load(name string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(data)
}

// Save writes the named collection atomically.
func (s *JSONStore) Save(name string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(name)
	tempFile := target + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, target)
}

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dataDir, name+".json")
}

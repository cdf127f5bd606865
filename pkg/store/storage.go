package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultStorageFileName = ".coin-swap.json"
	DefaultBoltFileName    = ".coin-swap.db"
)

// CodePersister keeps the set of charge codes seen across sessions
type CodePersister interface {
	Load() ([]string, error)
	Save(codes []string) error
}

// FileStorage persists charge codes as a JSON document
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
}

// codeDocument represents the JSON structure for storage
type codeDocument struct {
	CoinSwapCodes []string `json:"coin_swap_codes"`
}

// NewFileStorage creates a new file storage instance
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		path, err := defaultPath(DefaultStorageFileName)
		if err != nil {
			return nil, err
		}
		filePath = path
	}

	return &FileStorage{filePath: filePath}, nil
}

// Load reads the persisted codes. A missing file yields an empty set.
func (s *FileStorage) Load() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read charge codes: %w", err)
	}

	var doc codeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal charge codes: %w", err)
	}
	if doc.CoinSwapCodes == nil {
		doc.CoinSwapCodes = []string{}
	}

	return doc.CoinSwapCodes, nil
}

// Save writes the codes to the storage file
func (s *FileStorage) Save(codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(codeDocument{CoinSwapCodes: codes}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal charge codes: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write charge codes: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func defaultPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, name), nil
}

package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"voting-crypto/models"
)

// JSONStore keeps one JSON file per scope under a base directory.
// Writes go through a temp file and an atomic rename so a crash mid-save
// never leaves a truncated ceremony file behind.
type JSONStore struct {
	basePath string
	mu       sync.RWMutex
	logger   zerolog.Logger
}

func NewJSONStore(basePath string, logger zerolog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &JSONStore{
		basePath: basePath,
		logger:   logger.With().Str("component", "ceremony-store").Logger(),
	}, nil
}

func (s *JSONStore) Load(scope string) (map[string]*models.CeremonyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.scopePath(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*models.CeremonyRecord), nil
		}
		return nil, fmt.Errorf("failed to read ceremony file: %w", err)
	}

	var ceremonies map[string]*models.CeremonyRecord
	if err := json.Unmarshal(data, &ceremonies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ceremonies for scope %s: %w", scope, err)
	}
	if ceremonies == nil {
		ceremonies = make(map[string]*models.CeremonyRecord)
	}

	s.logger.Debug().Str("scope", scope).Int("ceremonies", len(ceremonies)).Msg("loaded ceremony state")
	return ceremonies, nil
}

func (s *JSONStore) Save(scope string, ceremonies map[string]*models.CeremonyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(ceremonies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ceremonies: %w", err)
	}

	path := s.scopePath(scope)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write ceremony file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save ceremony file: %w", err)
	}

	s.logger.Debug().Str("scope", scope).Int("ceremonies", len(ceremonies)).Msg("saved ceremony state")
	return nil
}

// scopePath maps a scope id to a file name. Scopes are caller-supplied
// opaque strings (contract addresses), so they are hex-encoded rather
// than trusted as path components.
func (s *JSONStore) scopePath(scope string) string {
	name := fmt.Sprintf("ceremonies_%s.json", hex.EncodeToString([]byte(scope)))
	return filepath.Join(s.basePath, name)
}

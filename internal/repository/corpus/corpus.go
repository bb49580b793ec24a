// Package corpus reads and writes entity records as JSON files under a
// directory, one file per entity.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
)

// Store persists entity records under a directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a file-backed record store rooted at dir.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes each record to <dir>/<name>.json, creating the directory when
// absent.
func (s *Store) Save(records []domain.EntityRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", s.dir, err)
	}

	for _, r := range records {
		if r.Name == "" {
			return fmt.Errorf("record %d: %w: empty name", r.ID, domain.ErrInvalidRecord)
		}
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", r.Name, err)
		}
		path := filepath.Join(s.dir, r.Name+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	s.logger.Debug("records saved", zap.Int("count", len(records)), zap.String("dir", s.dir))
	return nil
}

// Load reads every .json file under the directory, sorted by file name so
// downstream indexing is deterministic.
func (s *Store) Load() ([]domain.EntityRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("corpus dir %s: %w", s.dir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]domain.EntityRecord, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var r domain.EntityRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse %s: %w: %v", path, domain.ErrInvalidRecord, err)
		}
		records = append(records, r)
	}

	s.logger.Info("corpus loaded", zap.Int("records", len(records)), zap.String("dir", s.dir))
	return records, nil
}

package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/rs/zerolog/log"
)

const snapshotFile = "latest_forecast.json"

// SnapshotStore keeps the latest snapshot as a JSON file. Writes go to a
// temp file that is renamed over the previous one.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	return &SnapshotStore{path: filepath.Join(dir, snapshotFile)}, nil
}

func (s *SnapshotStore) ReplaceSnapshot(ctx context.Context, snapshot *domain.ForecastSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := json.NewEncoder(writer).Encode(snapshot); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	log.Debug().Str("run_id", snapshot.RunID).Int("count", len(snapshot.Results)).Msg("snapshot saved")
	return nil
}

func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*domain.ForecastSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot domain.ForecastSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/andresuchdata/autopo-forecast/internal/export"
)

// SnapshotExporter archives every persisted snapshot as JSON and CSV, and
// keeps a latest.json pointer next to the archive.
type SnapshotExporter struct {
	store  ObjectStorage
	prefix string
}

func NewSnapshotExporter(store ObjectStorage, prefix string) *SnapshotExporter {
	return &SnapshotExporter{store: store, prefix: prefix}
}

// Export uploads the snapshot and returns the archived JSON key
func (e *SnapshotExporter) Export(ctx context.Context, snapshot *domain.ForecastSnapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	var csvBuf bytes.Buffer
	if err := export.WriteCSV(&csvBuf, snapshot.Results); err != nil {
		return "", fmt.Errorf("encode snapshot csv: %w", err)
	}

	dir := path.Join(e.prefix, snapshot.GeneratedAt.UTC().Format("2006/01/02"))
	jsonKey := path.Join(dir, snapshot.RunID+".json")
	csvKey := path.Join(dir, snapshot.RunID+".csv")

	if err := e.store.UploadObject(ctx, jsonKey, payload, "application/json"); err != nil {
		return "", err
	}
	if err := e.store.UploadObject(ctx, csvKey, csvBuf.Bytes(), "text/csv"); err != nil {
		return "", err
	}
	if err := e.store.UploadObject(ctx, path.Join(e.prefix, "latest.json"), payload, "application/json"); err != nil {
		return "", err
	}

	return jsonKey, nil
}

// Archived lists exported snapshot objects
func (e *SnapshotExporter) Archived(ctx context.Context) ([]ObjectInfo, error) {
	return e.store.ListObjects(ctx, e.prefix)
}

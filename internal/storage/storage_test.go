package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if m.failOn != "" && strings.HasSuffix(key, m.failOn) {
		return errors.New("upload refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func TestSnapshotExporter(t *testing.T) {
	store := newMemoryStorage()
	exporter := NewSnapshotExporter(store, "snapshots")

	key, err := exporter.Export(context.Background(), &domain.ForecastSnapshot{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Results:     []domain.SKUForecast{{ProductCode: "AMX500"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2024/06/01/run-1.json", key)

	assert.Contains(t, store.objects, "snapshots/2024/06/01/run-1.csv")
	assert.Contains(t, store.objects, "snapshots/latest.json")
	assert.Equal(t, "text/csv", store.types["snapshots/2024/06/01/run-1.csv"])
	assert.Contains(t, string(store.objects[key]), `"product_code":"AMX500"`)

	objects, err := exporter.Archived(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, 3)
}

func TestSnapshotExporterUploadFailure(t *testing.T) {
	store := newMemoryStorage()
	store.failOn = ".csv"

	_, err := NewSnapshotExporter(store, "snapshots").Export(context.Background(), &domain.ForecastSnapshot{RunID: "run-1"})
	assert.Error(t, err)
	assert.NotContains(t, store.objects, "snapshots/latest.json")
}

func TestNewMinioClientValidation(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{})
	assert.Error(t, err)

	_, err = NewMinioClient(MinioConfig{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)

	c, err := NewMinioClient(MinioConfig{
		Endpoint:  "https://storage.example.com/",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "forecasts",
	})
	require.NoError(t, err)
	assert.Equal(t, "forecasts", c.bucket)
	assert.Equal(t, "storage.example.com", c.client.EndpointURL().Host)
	assert.Equal(t, "https", c.client.EndpointURL().Scheme)
}

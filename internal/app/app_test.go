package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/autopo-forecast/internal/config"
	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfig(t *testing.T) {
	ec := EngineConfig(config.ForecastConfig{
		ServiceLevel:    0.99,
		HorizonDays:     45,
		DefaultMaxStock: 500,
	})

	assert.Equal(t, 0.99, ec.ServiceLevel)
	assert.Equal(t, 45, ec.HorizonDays)
	assert.Equal(t, 500, ec.DefaultMaxStock)
	assert.Equal(t, 7, ec.LeadTimeDays, "unset values keep engine defaults")

	ec = EngineConfig(config.ForecastConfig{ServiceLevel: 1.5})
	assert.Equal(t, 0.95, ec.ServiceLevel)
}

func TestNewFileBackedApp(t *testing.T) {
	dir := t.TempDir()
	sales := filepath.Join(dir, "sales.csv")
	catalog := filepath.Join(dir, "inventory.csv")
	require.NoError(t, os.WriteFile(sales, []byte("date,product_code,product_name,quantity,unit_price\n2024-01-01,A,Alpha,3,2\n2024-01-02,A,Alpha,5,2\n"), 0644))
	require.NoError(t, os.WriteFile(catalog, []byte("product_code,name,current_stock,purchase_price,selling_price\nA,Alpha,4,1,2\n"), 0644))

	cfg := &config.Config{
		App: config.AppConfig{
			DataSource:  config.SourceFile,
			SalesFile:   sales,
			CatalogFile: catalog,
			DataDir:     filepath.Join(dir, "out"),
		},
	}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Service.Run(context.Background(), domain.ForecastRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "A", resp.Results[0].ProductCode)

	_, err = os.Stat(filepath.Join(dir, "out", "latest_forecast.json"))
	assert.NoError(t, err)
}

func TestNewUnknownSource(t *testing.T) {
	_, err := New(context.Background(), &config.Config{App: config.AppConfig{DataSource: "ftp"}})
	assert.Error(t, err)
}

func TestNewExporterValidatesStorage(t *testing.T) {
	_, err := NewExporter(config.StorageConfig{Bucket: "snapshots"})
	assert.Error(t, err)

	exporter, err := NewExporter(config.StorageConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "snapshots",
		Prefix:    "forecast",
	})
	require.NoError(t, err)
	assert.NotNil(t, exporter)
}

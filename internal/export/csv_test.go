package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	expiry := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	maxStock := 600
	forecasts := []domain.SKUForecast{
		{
			ProductCode:         "AMX500",
			ProductName:         "Amoxicillin, 500mg",
			MaxStock:            &maxStock,
			SafetyStock:         13.1,
			RecommendedOrderQty: 364,
			ABCClass:            domain.ClassA,
			Status:              domain.StatusCritical,
			ExpiryDate:          &expiry,
		},
		{ProductCode: "PCT500"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, forecasts))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvColumns, records[0])

	row := map[string]string{}
	for i, col := range records[0] {
		row[col] = records[1][i]
	}
	assert.Equal(t, "Amoxicillin, 500mg", row["product_name"])
	assert.Equal(t, "600", row["max_stock"])
	assert.Equal(t, "13.1", row["safety_stock"])
	assert.Equal(t, "364", row["recommended_order_qty"])
	assert.Equal(t, "A", row["abc_class"])
	assert.Equal(t, "CRITICAL", row["status"])
	assert.Equal(t, "2025-03-01", row["expiry_date"])

	assert.Equal(t, "", records[2][6], "unset max stock stays empty")
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	require.NoError(t, WriteCSVFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "product_code,product_name")
}

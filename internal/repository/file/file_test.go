package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSalesCSV(t *testing.T) {
	sales := writeFile(t, "sales.csv", `Tanggal,Kode Produk,Nama Produk,Qty,Harga
2024-01-05,AMX500,Amoxicillin,"1,200",4.5
05/01/2024,PCT500,Paracetamol,3,1.2
not-a-date,PCT500,Paracetamol,3,1.2
2024-01-06,PCT500,Paracetamol,three,1.2
2024-01-07,,Unknown,1,1
`)

	ledger, err := NewSource(sales, "").LoadSales(context.Background())
	require.NoError(t, err)

	require.Len(t, ledger.Records, 2)
	assert.Equal(t, 3, ledger.Malformed)

	assert.Equal(t, "AMX500", ledger.Records[0].ProductCode)
	assert.Equal(t, 1200.0, ledger.Records[0].Quantity)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), ledger.Records[0].Date)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), ledger.Records[1].Date, "day-first dates")
}

func TestLoadSalesMissingColumns(t *testing.T) {
	sales := writeFile(t, "sales.csv", "product_code,quantity\nA,1\n")

	_, err := NewSource(sales, "").LoadSales(context.Background())
	assert.Error(t, err)
}

func TestLoadInventoryCSV(t *testing.T) {
	catalog := writeFile(t, "inventory.csv", `product_code,name,generic_name,supplier,stock,min_stock,max_stock,hpp,harga,lead_time,expiry_date
AMX500,Amoxicillin 500mg,Amoxicillin,Kimia Farma,40,10,600,3000,4500,5,2025-03-01
PCT500,Paracetamol 500mg,,Sanbe,900,,,800,1200,,
,Orphan,,,1,,,1,1,,
BAD,Broken,,,lots,,,1,1,,
`)

	items, err := NewSource("", catalog).LoadInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	amx := items[0]
	assert.Equal(t, "AMX500", amx.ProductCode)
	assert.Equal(t, 40, amx.CurrentStock)
	require.NotNil(t, amx.MinStock)
	assert.Equal(t, 10, *amx.MinStock)
	require.NotNil(t, amx.MaxStock)
	assert.Equal(t, 600, *amx.MaxStock)
	require.NotNil(t, amx.LeadTimeDays)
	assert.Equal(t, 5, *amx.LeadTimeDays)
	assert.Equal(t, 3000.0, amx.PurchasePrice)
	assert.Equal(t, 4500.0, amx.SellingPrice)
	require.NotNil(t, amx.ExpiryDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *amx.ExpiryDate)

	pct := items[1]
	assert.Nil(t, pct.MinStock)
	assert.Nil(t, pct.MaxStock)
	assert.Nil(t, pct.LeadTimeDays)
	assert.Nil(t, pct.ExpiryDate)
}

func TestLoadSalesXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"date", "product_code", "product_name", "quantity", "unit_price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2024-02-01", "AMX500", "Amoxicillin", 7, 4.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"2024-02-02", "AMX500", "Amoxicillin", 2, 4.5}))

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ledger, err := NewSource(path, "").LoadSales(context.Background())
	require.NoError(t, err)
	require.Len(t, ledger.Records, 2)
	assert.Equal(t, 0, ledger.Malformed)
	assert.Equal(t, 7.0, ledger.Records[0].Quantity)
	assert.Equal(t, 4.5, ledger.Records[0].UnitPrice)
}

func TestParseDateIsDayFirst(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
	}{
		{"ISO", "2024-03-05"},
		{"SlashFullYear", "05/03/2024"},
		{"DashFullYear", "05-03-2024"},
		{"SlashShortYear", "05/03/24"},
		{"DashShortYear", "05-03-24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDate(tt.value)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	_, ok := parseDate("03-25-24")
	assert.False(t, ok, "month-first dates are rejected, not reinterpreted")
}

func TestParseDateSerial(t *testing.T) {
	d, ok := parseDate("45292")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.LatestSnapshot(ctx)
	assert.True(t, errors.Is(err, domain.ErrSnapshotNotFound))

	snap := &domain.ForecastSnapshot{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Results:     []domain.SKUForecast{{ProductCode: "A", ABCClass: domain.ClassA}},
	}
	require.NoError(t, store.ReplaceSnapshot(ctx, snap))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, latest.RunID)
	assert.Equal(t, snap.Results, latest.Results)

	_, err = os.Stat(filepath.Join(dir, snapshotFile+".tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestSnapshotStoreConcurrentWriters(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results := make([]domain.SKUForecast, n+1)
			for j := range results {
				results[j] = domain.SKUForecast{ProductCode: "P", ActiveDays: n}
			}
			assert.NoError(t, store.ReplaceSnapshot(ctx, &domain.ForecastSnapshot{RunID: "run", Results: results}))
		}(i)
	}
	wg.Wait()

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	// every row must come from the same writer
	for _, f := range latest.Results {
		assert.Equal(t, len(latest.Results)-1, f.ActiveDays)
	}
}

package forecast

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyABC(t *testing.T) {
	revenues := []ProductRevenue{
		{ProductCode: "D", Revenue: 50},
		{ProductCode: "A", Revenue: 700},
		{ProductCode: "C", Revenue: 100},
		{ProductCode: "B", Revenue: 100},
		{ProductCode: "E", Revenue: 50},
	}

	classes := ClassifyABC(revenues)

	assert.Equal(t, map[string]domain.ABCClass{
		"A": domain.ClassA, // nothing ranked ahead
		"B": domain.ClassB, // 70% ahead, ties broken by code
		"C": domain.ClassB, // 80% ahead
		"D": domain.ClassC, // 90% ahead
		"E": domain.ClassC,
	}, classes)
}

func TestClassifyABCDominantProduct(t *testing.T) {
	tests := []struct {
		name     string
		revenues []ProductRevenue
		expected map[string]domain.ABCClass
	}{
		{
			name: "TopSellerAboveBothCutoffs",
			revenues: []ProductRevenue{
				{ProductCode: "X", Revenue: 30},
				{ProductCode: "TOP", Revenue: 950},
				{ProductCode: "Y", Revenue: 20},
			},
			expected: map[string]domain.ABCClass{
				"TOP": domain.ClassA,
				"X":   domain.ClassC,
				"Y":   domain.ClassC,
			},
		},
		{
			name:     "SingleProduct",
			revenues: []ProductRevenue{{ProductCode: "ONLY", Revenue: 12.5}},
			expected: map[string]domain.ABCClass{"ONLY": domain.ClassA},
		},
		{
			name: "SecondCrossesIntoB",
			revenues: []ProductRevenue{
				{ProductCode: "P1", Revenue: 80},
				{ProductCode: "P2", Revenue: 15},
				{ProductCode: "P3", Revenue: 5},
			},
			expected: map[string]domain.ABCClass{
				"P1": domain.ClassA,
				"P2": domain.ClassB,
				"P3": domain.ClassC,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyABC(tt.revenues))
		})
	}
}

func TestClassifyABCZeroRevenue(t *testing.T) {
	classes := ClassifyABC([]ProductRevenue{
		{ProductCode: "X"},
		{ProductCode: "Y"},
	})

	assert.Equal(t, domain.ClassC, classes["X"])
	assert.Equal(t, domain.ClassC, classes["Y"])
}

func TestClassifyABCPartitionsEveryProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		revenues := make([]ProductRevenue, n)
		for i := range revenues {
			revenues[i] = ProductRevenue{
				ProductCode: fmt.Sprintf("P%03d", i),
				Revenue:     float64(rng.Intn(5)) * rng.Float64() * 1000,
			}
		}

		classes := ClassifyABC(revenues)
		require.Len(t, classes, n)

		counts := map[domain.ABCClass]int{}
		for _, c := range classes {
			counts[c]++
		}
		assert.Equal(t, n, counts[domain.ClassA]+counts[domain.ClassB]+counts[domain.ClassC])
	}
}

func TestClassifyVelocity(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		avg      float64
		stock    int
		expected domain.StockSpeed
	}{
		{"Dead", 0.005, 10, domain.SpeedDead},
		{"NoDemand", 0, 0, domain.SpeedDead},
		{"FastAtTwelveTurns", 1, 30, domain.SpeedFast},
		{"SlowAtFourTurns", 1, 100, domain.SpeedSlow},
		{"EmptyShelfCountsAsOneUnit", 0.02, 0, domain.SpeedFast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyVelocity(tt.avg, tt.stock, cfg))
		})
	}
}

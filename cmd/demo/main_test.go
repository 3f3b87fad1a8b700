package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regional-stats/internal/models"
)

func TestLoadSeries_Sample(t *testing.T) {
	src, n, err := loadSeries(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	points, err := src.FindSeries(context.Background(), "Indeks Pembangunan Manusia", models.Region{City: "Sleman"}, nil)
	require.NoError(t, err)
	require.Len(t, points, 6)
	assert.InDelta(t, 83.42, points[0].Amount, 1e-9)
}

func TestLoadSeries_Errors(t *testing.T) {
	tests := map[string]string{
		"bad year":       "Indeks Gini,Sleman,twenty,0.4\n",
		"bad amount":     "Indeks Gini,Sleman,2020,abc\n",
		"missing column": "Indeks Gini,Sleman,2020\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := loadSeries(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

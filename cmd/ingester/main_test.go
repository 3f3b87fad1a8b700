package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regional-stats/internal/config"
)

func TestSelectJobs(t *testing.T) {
	jobs := config.Default().Ingestion.Jobs

	all, err := selectJobs(jobs, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(jobs))

	one, err := selectJobs(jobs, []string{"tpak"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(7), one[0].CategoryID)

	_, err = selectJobs(jobs, []string{"tpak", "inflasi"})
	assert.ErrorContains(t, err, "inflasi")
}

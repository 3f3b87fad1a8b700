package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheLookup_UpdatesRatio(t *testing.T) {
	c := NewCollectorWithRegistry("test", prometheus.NewRegistry())

	c.RecordCacheLookup("miss")
	c.RecordCacheLookup("hit")
	c.RecordCacheLookup("hit")
	c.RecordCacheLookup("error")

	assert.InDelta(t, 0.5, testutil.ToFloat64(c.CacheHitRatio), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheRequests.WithLabelValues("miss")))
}

func TestRecordAnalysis(t *testing.T) {
	c := NewCollectorWithRegistry("test", prometheus.NewRegistry())

	c.RecordAnalysis("single_region", "linear", "ok")
	c.RecordAnalysis("single_region", "linear", "ok")
	c.RecordAnalysis("multi_region", "non_linear", "not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.AnalysisTotal.WithLabelValues("single_region", "linear", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AnalysisTotal.WithLabelValues("multi_region", "non_linear", "not_found")))
}

func TestUpdateDBConnectionPool(t *testing.T) {
	c := NewCollectorWithRegistry("test", prometheus.NewRegistry())

	c.UpdateDBConnectionPool(3, 7, 10)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("in_use")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("idle")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("total")))
}

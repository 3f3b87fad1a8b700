package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

func testDeps() (*logging.StructuredLogger, *metrics.Collector) {
	logger := logging.NewStructuredLogger("test", "test", logging.FatalLevel)
	return logger, metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

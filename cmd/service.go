package main

import (
	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/metrics"
)

// initService builds the analysis service from the loaded config. The
// metrics manager is only needed by serve; pass nil elsewhere.
func initService(m *metrics.Manager) (*analysis.Service, error) {
	return analysis.New(cfg, nil, m)
}

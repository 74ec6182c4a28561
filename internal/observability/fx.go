package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/smallbiznis/dairyos/internal/logger"
	"github.com/smallbiznis/dairyos/internal/observability/metrics"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	return reg
}

func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(newRegistry),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(newMetrics),
)

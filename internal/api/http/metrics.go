package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus exposition handler for GET
// /metrics. All broker metrics are registered via promauto against the
// default registry in internal/infrastructure/monitoring, so this needs
// no reference to a specific *Metrics instance.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package middleware

import (
	"strconv"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestsByRoute counts handled requests by matched route and status class.
var RequestsByRoute = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "blogicum_http_route_requests_total",
	Help: "Total number of HTTP requests by route pattern and status class",
}, []string{"method", "route", "status"})

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide fiberprometheus collector. Collectors
// can only be registered once, so every server shares the same instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, serviceName, "blogicum", "http", nil)
	})
	return prom
}

// MetricsMiddleware combines the fiberprometheus request metrics with a
// counter keyed by route pattern, so post ids and slugs stay out of labels.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := p.Middleware(c)
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		RequestsByRoute.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status/100)+"xx").Inc()
		return err
	}
}

// Package httpapi wires the ops/webhook HTTP transport (Gin) to the
// conversation engine and the cross-cutting middleware: tracing, correlation
// IDs, logging, panic recovery, CORS, metrics, and health probes.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/warrantyhub/warranty-bot/internal/config"
	"github.com/warrantyhub/warranty-bot/internal/engine"
	"github.com/warrantyhub/warranty-bot/internal/http/handlers"
	"github.com/warrantyhub/warranty-bot/internal/http/middleware"
)

// RegisterRoutes attaches middleware and endpoints to the Gin engine.
//
// Middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after the logger
//  5. Body size limit
//  6. CORS
func RegisterRoutes(r *gin.Engine, eng *engine.Engine, reg *prometheus.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(cors.Default())

	r.GET("/healthz", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.POST("/webhook", handlers.Webhook(eng))
}

// limitBody caps the request body so an oversized update cannot exhaust
// memory.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

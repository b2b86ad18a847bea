// Package server wires the HTTP API: router, middleware, and route registration.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	deployhandler "watchpost/internal/deploy/handler"
	grouphandler "watchpost/internal/group/handler"
	healthhandler "watchpost/internal/health/handler"
	ingesthandler "watchpost/internal/ingest/handler"
	spikehandler "watchpost/internal/spike/handler"
	statushandler "watchpost/internal/status/handler"
)

// serviceName is the instrumentation name reported on HTTP spans.
const serviceName = "watchpost"

// Deps carries the handlers the router mounts.
type Deps struct {
	Ingest  *ingesthandler.Handler
	Groups  *grouphandler.Handler
	Status  *statushandler.Handler
	Spikes  *spikehandler.Handler
	Deploys *deployhandler.Handler
	Health  *healthhandler.Handler
}

// New builds the gin engine with all routes mounted under /v1.
// env "production" switches gin to release mode.
func New(env string, deps Deps) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(RequestLog("/v1/health"))

	v1 := r.Group("/v1")
	deps.Ingest.Register(v1)
	deps.Groups.Register(v1)
	deps.Status.Register(v1)
	deps.Spikes.Register(v1)
	deps.Deploys.Register(v1)
	deps.Health.Register(v1)
	return r
}

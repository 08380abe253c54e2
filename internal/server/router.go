package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/config"
	"realtime-hub/internal/handler"
	"realtime-hub/internal/hub"
	"realtime-hub/internal/middleware"
	"realtime-hub/internal/socketio"
)

type Deps struct {
	Hub      *hub.Hub
	Verifier *auth.Verifier
	Config   config.Config
	Logger   zerolog.Logger
}

// NewRouter wires the HTTP surface. ctx bounds background work owned by the
// router, such as rate limiter eviction.
func NewRouter(ctx context.Context, deps Deps) *gin.Engine {
	log := deps.Logger.With().Str("module", "http").Logger()
	if deps.Config.GinMode != "" {
		gin.SetMode(deps.Config.GinMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	health := &handler.HealthHandler{Hub: deps.Hub}
	r.GET("/health", health.Check)

	var upgradeLimiter *middleware.RateLimiter
	if deps.Config.HandshakeRateLimit > 0 {
		upgradeLimiter = middleware.NewRateLimiter(deps.Config.HandshakeRateLimit, time.Minute)
		go upgradeLimiter.Run(ctx)
	}

	gateway := socketio.NewServer(socketio.Deps{
		Hub:      deps.Hub,
		Verifier: deps.Verifier,
		Options: socketio.Options{
			PingInterval:   deps.Config.PingInterval,
			PingTimeout:    deps.Config.PingTimeout,
			MaxPayload:     deps.Config.MaxPayload,
			SendQueueSize:  deps.Config.SendQueueSize,
			AllowedOrigins: deps.Config.AllowedOrigins,
		},
		Logger: deps.Logger,
	})
	sio := r.Group("/socket.io")
	sio.Use(middleware.RateLimit(upgradeLimiter, log))
	sio.GET("/", gin.WrapH(gateway))

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.Verifier))

	presence := &handler.PresenceHandler{Hub: deps.Hub}
	protected.GET("/presence/:userId", presence.Get)

	stats := &handler.StatsHandler{Hub: deps.Hub}
	protected.GET("/stats", stats.Get)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	log.Info().Int("rateLimit", deps.Config.HandshakeRateLimit).Msg("router setup")
	return r
}

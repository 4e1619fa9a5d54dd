// Package http wires the REST API, the static SPA assets and the signaling
// WebSocket endpoint into one gin engine.
package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeet/backend/internal/adapters/signal"
	"github.com/cloudmeet/backend/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, meetings *MeetingHandlers, sig *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CloudMeetSessions", store))

	r.Static("/assets", cfg.StaticPath+"/assets")
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	// SPA fallback: unknown paths are client-side routes.
	r.NoRoute(func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.POST("/meetings", meetings.Create)
	api.GET("/meetings/:meetingNo", meetings.Lookup)
	api.POST("/meetings/:id/join", meetings.Join)
	api.GET("/health", meetings.Health)

	api.GET("/ws/signal", func(c *gin.Context) {
		sig.HandleSignal(ctx, c)
	})

	return r
}

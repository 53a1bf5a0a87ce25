package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/adapters/peer"
	"github.com/zonecast/synchub/internal/adapters/signal"
	"github.com/zonecast/synchub/internal/app/hub"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/config"
	"github.com/zonecast/synchub/internal/metrics"
)

// Deps is everything the router hands requests to.
type Deps struct {
	Handle  hub.Handle
	Orch    *orch.Orchestrator
	Signal  *signal.SignalWSController
	Peer    *peer.Receiver
	Metrics *metrics.Metrics
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Debug() {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SyncHubSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	r.GET("/healthz", func(c *gin.Context) {
		stats, err := deps.Handle.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{handle: deps.Handle, orch: deps.Orch}
	api := r.Group("/api")

	api.GET("/rooms", h.listRooms)
	api.GET("/sessions", h.listSessions)
	api.PATCH("/sessions/:id", h.updateSession)
	api.GET("/connections", h.listConnections)
	api.GET("/audio-zones", h.listAudioZones)
	api.POST("/audio-zones", h.createAudioZone)
	api.PATCH("/audio-zones/:id", h.updateAudioZone)
	api.DELETE("/audio-zones/:id", h.deleteAudioZone)
	api.POST("/events/:kind", h.postEvent)

	if deps.Signal != nil {
		api.GET("/ws/signal", func(c *gin.Context) {
			log.Debug().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
			deps.Signal.HandleSignal(ctx, c)
		})
	}
	if deps.Peer != nil {
		api.GET("/ws/peer", func(c *gin.Context) {
			deps.Peer.Handle(ctx, c)
		})
	}

	return r
}

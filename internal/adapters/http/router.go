package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/adapters/push"
	"github.com/wonkchat/wonk/internal/config"
)

// SetupRouter wires the HTTP surface: auth, the REST gateway under
// /api, the websocket push endpoint and static/attachment serving.
func SetupRouter(ctx context.Context, cfg *config.Config, api *API, pushCtl *push.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("wonk_session", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.POST("/auth", api.login)
	r.GET("/logout", api.logout)
	r.GET("/attachments/:id/:name", api.serveAttachment)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	apiGroup := r.Group("/api")
	apiGroup.Use(Authenticate(api.Auth, api.Users))

	apiGroup.POST("/rooms/:name/create", api.createRoom)
	apiGroup.POST("/rooms/:name/join", api.joinRoom)
	apiGroup.POST("/rooms/:name/leave", api.leaveRoom)
	apiGroup.GET("/rooms/:name/members", api.listMembers)
	apiGroup.POST("/rooms/:name/message", api.sendMessage)
	apiGroup.POST("/rooms/:name/typing", api.setTyping)
	apiGroup.GET("/users", api.lookupUsers)
	apiGroup.GET("/sync/client", api.syncClient)
	apiGroup.POST("/attachments", api.uploadAttachment)

	apiGroup.GET("/gateway", func(c *gin.Context) {
		pushCtl.HandleGateway(ctx, c, currentUser(c))
	})

	return r
}

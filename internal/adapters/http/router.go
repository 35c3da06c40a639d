package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/adapters/signal"
	"github.com/vkuzmin/chatrelay/internal/config"
	"github.com/vkuzmin/chatrelay/internal/store"
)

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// RequireIdentity resolves the bearer token through the identity provider
// and puts the verified user on the context. The signaling socket does not
// pass through here; its trust boundary is the setup event.
func RequireIdentity(idp store.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		user, err := idp.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ChatRelaySessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/uploads", cfg.UploadDir)

	log.Info().Str("module", "adapters.http").Msg("router setup")

	group := r.Group("/api")

	group.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	authed := group.Group("", RequireIdentity(api.Identity))
	authed.POST("/chats", api.CreateChat)
	authed.GET("/chats", api.ListChats)
	authed.GET("/chats/:id/messages", api.ListMessages)
	authed.POST("/chats/:id/messages", api.PostMessage)
	authed.POST("/upload", api.Upload)
	authed.GET("/calls", api.ListCalls)
	authed.GET("/stats", api.RegistryStats)

	return r
}

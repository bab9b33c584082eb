// Package httpapi exposes the daemon's local control surface: REST
// endpoints for directory and conversation operations, websocket watch
// endpoints for live snapshots, plus health and metrics.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/bus"
	"github.com/kshitizb/talk/internal/directory"
	"github.com/kshitizb/talk/internal/engine"
	"github.com/kshitizb/talk/internal/identity"
	"github.com/kshitizb/talk/internal/observability"
	"github.com/kshitizb/talk/internal/status"
)

// Handler bundles the collaborators the route handlers need.
type Handler struct {
	engine    *engine.Engine
	directory *directory.Directory
	ident     identity.Provider
	machine   *status.Machine
	events    *bus.Bus
	logger    *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(e *engine.Engine, d *directory.Directory, ident identity.Provider, m *status.Machine, events *bus.Bus, logger *zap.Logger) *Handler {
	return &Handler{engine: e, directory: d, ident: ident, machine: m, events: events, logger: logger}
}

// Router builds the gin engine with all routes mounted.
func Router(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), observability.HTTPMetricsMiddleware())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/status", h.Status)
		v1.GET("/me", h.Me)

		v1.GET("/users", h.ListUsers)
		v1.POST("/users", h.InsertUser)
		v1.GET("/users/search", h.SearchUsers)
		v1.GET("/users/:uid/exists", h.UserExists)
		v1.GET("/users/:uid/avatar", h.AvatarURL)
		v1.PUT("/me/avatar", h.SetAvatar)

		v1.GET("/conversations", h.ListConversations)
		v1.POST("/conversations", h.CreateConversation)
		v1.GET("/conversations/exists", h.ConversationExists)
		v1.DELETE("/conversations/:id", h.DeleteConversation)
		v1.GET("/conversations/:id/messages", h.ListMessages)
		v1.POST("/conversations/:id/messages", h.SendMessage)

		v1.GET("/conversations/watch", h.WatchConversations)
		v1.GET("/conversations/:id/messages/watch", h.WatchMessages)
		v1.GET("/events", h.WatchEvents)
	}

	return r
}

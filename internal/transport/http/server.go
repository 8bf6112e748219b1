package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/metrics"
	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/ticket"
)

// NewServer builds the HTTP server: REST room endpoints, websockets, health and metrics.
func NewServer(
	coord *core.Coordinator,
	rooms store.RoomStore,
	tickets *ticket.Issuer,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	roomHandlers := NewRoomHandlers(coord, rooms, tickets, logger)
	api := router.Group("/api")
	{
		api.GET("/rooms", roomHandlers.ListRooms)
		api.POST("/rooms", roomHandlers.CreateRoom)
		api.GET("/rooms/:id", roomHandlers.GetRoom)
		api.POST("/rooms/:id/join", roomHandlers.JoinRoom)
		api.POST("/rooms/:id/leave", roomHandlers.LeaveRoom)
	}

	ws := NewWSHandler(coord, tickets, cfg, logger)
	router.GET("/ws", ws.Serve)
	router.GET("/rooms/:id", ws.ServeRoom)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

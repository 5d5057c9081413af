package game

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type GameHandler struct {
	registry    *Registry
	dispatcher  *Dispatcher
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	sendTimeout time.Duration
}

func NewGameHandler(registry *Registry, dispatcher *Dispatcher, logger *slog.Logger, sendTimeout time.Duration) *GameHandler {
	return &GameHandler{
		registry:    registry,
		dispatcher:  dispatcher,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin is enforced by the router middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendTimeout: sendTimeout,
	}
}

// QuizHandler upgrades an authenticated request to a websocket and hands the
// connection to the dispatcher.
func (h *GameHandler) QuizHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	sock, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	wsConn := NewWebsocketConnection(sock, h.sendTimeout)
	conn, err := h.registry.Register(wsConn)
	if err != nil {
		if errors.Is(err, ErrServerFull) {
			wsConn.Close(errCodeServerFull)
			return
		}
		wsConn.Close(errCodeUnknown)
		return
	}

	h.logger.Info("client connected", "conn_id", conn.Id(), "player_id", id)
	go h.dispatcher.ServeConn(conn, id)
}

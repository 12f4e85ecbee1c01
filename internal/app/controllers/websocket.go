package controllers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/roackb2/rollout/internal/pkg/ws"
)

type WebsocketController struct {
	upgrader websocket.Upgrader
	hub      *ws.Hub
	stats    ws.StatsSource
}

func NewWebsocketController(hub *ws.Hub, stats ws.StatsSource) *WebsocketController {
	return &WebsocketController{upgrader: websocket.Upgrader{}, hub: hub, stats: stats}
}

func (wc *WebsocketController) SocketHandler(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("upgrade:", "error", err)
		return
	}
	defer conn.Close()

	handler := ws.NewWsHandler(conn, wc.hub, wc.stats)
	if err := handler.HandleConnection(c.Request.Context()); err != nil {
		slog.Debug("WebsocketController: connection ended", "error", err)
	}
}

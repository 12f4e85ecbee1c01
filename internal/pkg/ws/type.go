package ws

import (
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/reporting"
)

type WsEventType string

const (
	WsEventTypePing   WsEventType = "ping"
	WsEventTypePong   WsEventType = "pong"
	WsEventTypeReport WsEventType = "report"
	WsEventTypeStats  WsEventType = "stats"
	WsEventTypeError  WsEventType = "error"
)

type WsData struct {
	Report *reporting.Report `json:"report,omitempty"`
	Stats  *manager.Stats    `json:"stats,omitempty"`
	Pong   string            `json:"pong,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// WsMessage is one message on the websocket connection, in either direction.
// Clients send ping and stats events; the server answers them and pushes a
// report event after every collection call.
type WsMessage struct {
	Event WsEventType `json:"event"`
	Data  WsData      `json:"data"`
}

type WsConnection interface {
	ReadJSON(v interface{}) error
	WriteJSON(message interface{}) error
	Close() error
}

// StatsSource is implemented by manager.BatchedAgentManager.
type StatsSource interface {
	Stats() manager.Stats
}

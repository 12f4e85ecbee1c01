package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type WsHandlerImpl struct {
	conn    WsConnection
	hub     *Hub
	stats   StatsSource
	writeMu sync.Mutex
}

func NewWsHandler(conn WsConnection, hub *Hub, stats StatsSource) *WsHandlerImpl {
	return &WsHandlerImpl{conn: conn, hub: hub, stats: stats}
}

// HandleConnection serves one client until it disconnects or ctx ends.
func (h *WsHandlerImpl) HandleConnection(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports, unregister := h.hub.Register()
	defer unregister()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-reports:
				if err := h.write(WsMessage{Event: WsEventTypeReport, Data: WsData{Report: &r}}); err != nil {
					slog.Error("WsHandler: failed to push report", "error", err)
					// Unblocks the read loop.
					h.conn.Close()
					return
				}
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		var msg WsMessage
		if err := h.conn.ReadJSON(&msg); err != nil {
			slog.Info("WsHandler: connection closed", "error", err)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("WsHandler: received message", "event", msg.Event)
		if err := h.handleMessage(msg); err != nil {
			slog.Warn("WsHandler: handleMessage", "error", err)
			if err := h.write(WsMessage{Event: WsEventTypeError, Data: WsData{Error: err.Error()}}); err != nil {
				return err
			}
		}
	}
}

func (h *WsHandlerImpl) handleMessage(msg WsMessage) error {
	switch msg.Event {
	case WsEventTypePing:
		return h.write(WsMessage{Event: WsEventTypePong, Data: WsData{Pong: "pong"}})
	case WsEventTypeStats:
		if h.stats == nil {
			return fmt.Errorf("no collection running")
		}
		stats := h.stats.Stats()
		return h.write(WsMessage{Event: WsEventTypeStats, Data: WsData{Stats: &stats}})
	default:
		return fmt.Errorf("unknown event: %s", msg.Event)
	}
}

func (h *WsHandlerImpl) write(msg WsMessage) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return h.conn.WriteJSON(msg)
}

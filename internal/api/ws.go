package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pumpcore/internal/contract"
	"pumpcore/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleLiveToken streams the token's TokenInfo: once on connect and again
// whenever a fresh tokens() read completes for it, whether triggered by
// ingestion, another request or a write invalidation. Pushed results are
// used as delivered so the feed never triggers tokens() reads itself.
func (s *Server) handleLiveToken(w http.ResponseWriter, r *http.Request) {
	addr, err := tokenAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Reject unknown tokens before upgrading so the client gets a status code.
	info, err := s.catalog.Get(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.SetWebsocketClients(int(s.clients.Add(1)))
	defer func() { observability.SetWebsocketClients(int(s.clients.Add(-1))) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the latest result matters; a slow client skips intermediate ones.
	updates := make(chan []any, 1)
	unsubscribe := s.session.Subscribe(contract.TokensCall(addr), func(out []any) {
		for {
			select {
			case updates <- out:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	// Reader: handles pongs and notices the client going away.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Debug("live feed write failed", zap.String("token", addr.Hex()), zap.Error(err))
			return false
		}
		return true
	}

	if !send(newTokenResponse(info)) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case out := <-updates:
			info, err := s.catalog.FromTokensResult(ctx, addr, out)
			if err != nil {
				s.logger.Warn("live feed read failed", zap.String("token", addr.Hex()), zap.Error(err))
				continue
			}
			if !send(newTokenResponse(info)) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

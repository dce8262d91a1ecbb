package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	liveWriteWait       = 10 * time.Second
	defaultLiveInterval = 15 * time.Second
)

// handleLive upgrades to a WebSocket and pushes a dashboard snapshot right
// away and then on every tick of ?interval=. Each tick is a fresh fetch.
func (s *Server) handleLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interval := s.liveInterval(r.URL.Query().Get("interval"))

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		s.metrics.LiveConnected(1)
		defer s.metrics.LiveConnected(-1)
		s.logger.Info("Live client connected", "remote", r.RemoteAddr, "interval", interval)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Client messages are ignored; a read error means the peer is gone.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := s.push(ctx, conn, interval); err != nil && ctx.Err() == nil {
			s.logger.Warn("Live push failed", "remote", r.RemoteAddr, "error", err)
		}

		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.logger.Info("Live client disconnected", "remote", r.RemoteAddr)
	}
}

// push writes snapshots until ctx ends or a write fails.
func (s *Server) push(ctx context.Context, conn *websocket.Conn, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		d := s.service.Dashboard(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(d); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// liveInterval parses a Go duration or whole seconds, bounded below by the
// configured minimum. Missing or invalid values give the default.
func (s *Server) liveInterval(raw string) time.Duration {
	interval := s.config.Server.LiveInterval
	if raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			interval = d
		} else if n, err := strconv.Atoi(raw); err == nil {
			interval = time.Duration(n) * time.Second
		}
	}
	if interval < s.config.Server.MinInterval {
		interval = s.config.Server.MinInterval
	}
	if interval <= 0 {
		interval = defaultLiveInterval
	}
	return interval
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/service"
)

const (
	liveWriteWait   = 5 * time.Second
	liveMaxFrameLen = 4096
)

// liveMessage is one interaction sent by a client over the live socket.
type liveMessage struct {
	LocationID string  `json:"location_id" validate:"required"`
	Action     string  `json:"action" validate:"required,oneof=click skip dwell"`
	Minutes    float64 `json:"minutes" validate:"gte=0"`
}

// liveReply answers every client frame: the updated aggregate or an error.
type liveReply struct {
	Status string                    `json:"status"`
	Data   *models.LocationAggregate `json:"data,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

var errRateLimited = errors.New("rate limit exceeded, slow down")

// handleLive upgrades to a websocket and records one interaction per text
// frame until the client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	siteID := siteParam(r)
	if _, err := s.svc.Site(siteID); err != nil {
		s.respondError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveMaxFrameLen)

	limiter := s.newLimiter()
	logger := s.logger.With("site", siteID, "remote", r.RemoteAddr)
	logger.Debug("live connection opened")

	pongWait := s.opts.LivePongWait
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Error("failed to set read deadline", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.livePing(conn, pongWait*9/10, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("live connection dropped", "error", err)
			}
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Error("failed to set read deadline", "error", err)
			return
		}

		reply := s.liveRecord(r, siteID, data, limiter.Allow())
		if reply.Error != "" {
			logger.Debug("live interaction rejected", "error", reply.Error)
		}

		out, err := json.Marshal(reply)
		if err != nil {
			logger.Error("failed to marshal live reply", "error", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Debug("live write failed", "error", err)
			return
		}
	}
}

// livePing pings conn every period until done is closed or a ping fails.
func (s *Server) livePing(conn *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) liveRecord(r *http.Request, siteID string, data []byte, allowed bool) liveReply {
	if !allowed {
		return liveReply{Status: "error", Error: errRateLimited.Error()}
	}

	var msg liveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return liveReply{Status: "error", Error: "malformed message: " + err.Error()}
	}
	if err := s.check(&msg); err != nil {
		return liveReply{Status: "error", Error: err.Error()}
	}

	agg, err := s.svc.Track(r.Context(), siteID, msg.LocationID, service.Action(msg.Action), msg.Minutes)
	if err != nil {
		return liveReply{Status: "error", Error: err.Error()}
	}
	return liveReply{Status: "success", Data: &agg}
}

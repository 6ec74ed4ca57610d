package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/jackpot"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	EventTypeConnected = "connected"
	EventTypeUpdated   = "updated"
	EventTypeHeartbeat = "heartbeat"
)

// JackpotHandler bridges jackpot.Service to HTTP routes (SSE + WebSocket).
// There is a single shared pool, so every listener gets every update.
type JackpotHandler struct {
	svc             *jackpot.Service
	app             *App
	logger          zerolog.Logger
	heartbeatPeriod time.Duration
	upgrader        websocket.Upgrader
}

// NewJackpotHandler creates a jackpot handler.
func NewJackpotHandler(app *App, svc *jackpot.Service) *JackpotHandler {
	return &JackpotHandler{
		svc:             svc,
		app:             app,
		logger:          app.logger.With().Str("handler", "jackpot").Logger(),
		heartbeatPeriod: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// StreamResponse is one stream frame
type StreamResponse struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Pool      *PoolUpdate `json:"pool,omitempty"`
}

// PoolUpdate is the pool value carried in a frame
type PoolUpdate struct {
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

func poolFrame(upd jackpot.Update) *StreamResponse {
	return &StreamResponse{
		Type:      EventTypeUpdated,
		Timestamp: time.Now().Unix(),
		Pool: &PoolUpdate{
			Amount:    upd.Pool.InexactFloat64(),
			Timestamp: upd.Timestamp.Unix(),
		},
	}
}

// Current godoc
// @Summary      Get the current jackpot pool
// @Description  Returns the freshest known pool value in whole tokens
// @Tags         jackpot
// @Produce      json
// @Success      200  {object}  BaseResponse{data=jackpot.Update}
// @Security     BearerAuth
// @Router       /jackpot [get]
func (h *JackpotHandler) Current(c *gin.Context) {
	OK(c, h.svc.Current())
}

// StreamUpdates opens an SSE connection and streams pool updates.
// Route: GET /api/jackpot/updates
func (h *JackpotHandler) StreamUpdates(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.streamUpdates(c.Request.Context(), sender, nil)
}

// StreamUpdatesWebSocket opens a WebSocket connection and streams pool
// updates. Route: GET /api/jackpot/updates/ws
func (h *JackpotHandler) StreamUpdatesWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Send ping to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.streamUpdates(c.Request.Context(), sender, done)
}

// streamUpdates handles the common streaming logic for both SSE and WebSocket.
func (h *JackpotHandler) streamUpdates(ctx context.Context, sender messageSender, done <-chan struct{}) {
	updates, cancel := h.svc.Listen(ctx)
	defer cancel()

	if err := sender.Send(&StreamResponse{
		Type:      EventTypeConnected,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send connected event, stopping stream")
		return
	}

	// Initial pool value so clients render immediately
	if err := sender.Send(poolFrame(h.svc.Current())); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send initial pool, stopping stream")
		return
	}

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			h.logger.Debug().Msg("Connection closed, stopping stream")
			return
		case <-heartbeat.C:
			if err := sender.Send(&StreamResponse{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send heartbeat, stopping stream")
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := sender.Send(poolFrame(update)); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send pool update, stopping stream")
				return
			}
		}
	}
}

// messageSender interface for sending messages (SSE or WebSocket).
type messageSender interface {
	Send(*StreamResponse) error
}

// sseSender sends messages via SSE.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(resp *StreamResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("data: " + string(payload) + "\n\n"))
	if err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends messages via WebSocket.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(resp *StreamResponse) error {
	// Check if connection is already closed
	select {
	case <-s.done:
		s.logger.Debug().Str("event_type", resp.Type).Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	// Set write deadline before each write
	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", resp.Type).Msg("Failed to marshal response")
		return err
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().
				Err(err).
				Str("event_type", resp.Type).
				Msg("WebSocket WriteMessage failed: connection closed (EOF)")
		} else {
			s.logger.Warn().
				Err(err).
				Str("event_type", resp.Type).
				Msg("WebSocket WriteMessage failed")
		}
		return err
	}

	return nil
}

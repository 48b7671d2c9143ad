package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/gesture"
	"github.com/ent0n29/amora/internal/protocol"
	"github.com/ent0n29/amora/internal/session"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.CanvasWidth < 0 || req.CanvasHeight < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "canvas dimensions must be positive")
		return
	}

	sess := s.sessions.Create(strings.TrimSpace(req.ClientID), req.CanvasWidth, req.CanvasHeight)
	s.observeSessions("created")

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		ClientID:        sess.ClientID,
		Status:          sess.Status,
		CanvasWidth:     sess.CanvasWidth,
		CanvasHeight:    sess.CanvasHeight,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.sessions.InactivityTimeout().Milliseconds(),
		WebSocketPath:   "/v1/gesture/session/ws?session_id=" + sess.ID,
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.observeSessions("ended")
	respondJSON(w, http.StatusOK, sess)
}

// handleSessionWS runs one gesture loop per connection. Hand frames come in,
// overlay frames go out in the same order.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if sess.Status != session.StatusActive {
		respondError(w, http.StatusConflict, "session_ended", "session has ended; create a new one")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.observeSessions("ws_connected")
	logger := s.logger.With(zap.String("session_id", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	camera := newSocketCamera()
	outbound := make(chan any, 64)

	loop := gesture.NewLoop(gesture.WithInset(s.cfg.GestureInsetPX))
	runner := gesture.NewRunner(camera, loop, func(ctx context.Context, o gesture.Overlay) error {
		_ = s.sessions.RecordFrame(sessionID, o.Width, o.Height, o.Signal.Detected)
		if s.metrics != nil {
			s.metrics.GestureFrames.WithLabelValues(string(o.State)).Inc()
		}
		msg := protocol.OverlayFrame{
			Type:      protocol.TypeOverlayFrame,
			SessionID: sessionID,
			Seq:       camera.lastSeq,
			Overlay:   o,
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case outbound <- msg:
			return nil
		}
	}, logger)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		defer cancel()
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("gesture runner stopped", zap.Error(err))
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(s.wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					logger.Debug("gesture ws write failed", zap.Error(err))
					cancel()
					// Unblocks the read loop.
					_ = conn.Close()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.observeWS("outbound", t)
				}
			}
		}
	}()

	outbound <- protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: "gesture_ready"}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			select {
			case outbound <- protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Detail:    err.Error(),
			}:
			default:
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.observeWS("inbound", t)
		}

		var next socketFrame
		switch msg := parsed.(type) {
		case protocol.HandFrame:
			next = socketFrame{seq: msg.Seq, frame: gesture.Frame{
				Hands:  msg.Hands,
				Width:  msg.Width,
				Height: msg.Height,
				At:     frameTime(msg.TSMs),
			}}
		case protocol.ClientControl:
			if msg.Action == protocol.ActionStop {
				break readLoop
			}
			if msg.Action != protocol.ActionReset {
				continue
			}
			// A handless frame drops the loop back to idle.
			next = socketFrame{seq: -1, frame: gesture.Frame{At: time.Now()}}
		}
		select {
		case <-ctx.Done():
			break readLoop
		case camera.frames <- next:
		}
	}

	close(camera.frames)
	<-runDone
	cancel()
	<-writerDone
	_ = s.sessions.Touch(sessionID)
	s.observeSessions("ws_disconnected")
}

type socketFrame struct {
	seq   int64
	frame gesture.Frame
}

// socketCamera feeds frames read off the websocket to a gesture.Runner.
// lastSeq is only touched by the runner goroutine.
type socketCamera struct {
	frames  chan socketFrame
	lastSeq int64
}

func newSocketCamera() *socketCamera {
	return &socketCamera{frames: make(chan socketFrame)}
}

func (c *socketCamera) Open(context.Context) (gesture.Stream, error) { return c, nil }

func (c *socketCamera) Next(ctx context.Context) (gesture.Frame, error) {
	select {
	case <-ctx.Done():
		return gesture.Frame{}, ctx.Err()
	case f, ok := <-c.frames:
		if !ok {
			return gesture.Frame{}, io.EOF
		}
		c.lastSeq = f.seq
		return f.frame, nil
	}
}

func (c *socketCamera) Close() error { return nil }

func frameTime(tsMS int64) time.Time {
	if tsMS <= 0 {
		return time.Now()
	}
	return time.UnixMilli(tsMS)
}

func (s *Server) observeSessions(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues(event).Inc()
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.HandFrame:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.OverlayFrame:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"intervu/interview/internal/metrics"
	"intervu/interview/internal/models"
	"intervu/interview/internal/session"
	"intervu/interview/internal/utils"
)

// playbackTimeout bounds how long an utterance waits for the client's
// playback acknowledgment before the session moves on without it.
const playbackTimeout = 2 * time.Minute

// LiveHandler serves the candidate's websocket for a running session. One
// connection carries everything: microphone audio upstream as binary frames,
// proctoring signals and playback acks upstream as JSON, and interviewer
// utterances downstream.
type LiveHandler struct {
	registry *session.Registry
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewLiveHandler(registry *session.Registry, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		registry: registry,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

type clientMessage struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
}

type serverMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// LiveWS upgrades the connection and bridges it to the live controller.
func (h *LiveHandler) LiveWS(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewId")

	claims, err := utils.ValidateSessionToken(r.URL.Query().Get("token"))
	if err != nil || claims.InterviewID != interviewID {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	live, ok := h.registry.Get(interviewID)
	if !ok {
		http.Error(w, "no live session for this interview", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	link := &liveConn{conn: conn, acks: make(chan struct{}, 1)}
	live.Speaker.Attach(link)
	defer live.Speaker.Detach(link)

	h.logger.Info("live connection attached", zap.String("interview_id", interviewID))

	// unblock the read loop when the session ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-live.Controller.Done():
			link.send(serverMessage{Type: "terminated", Reason: string(live.Controller.Reason())})
			conn.Close()
		case <-stop:
		}
	}()

	h.readLoop(conn, link, live, interviewID)
}

func (h *LiveHandler) readLoop(conn *websocket.Conn, link *liveConn, live *session.Live, interviewID string) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if live.Controller.State() != session.StateTerminated {
				h.logger.Warn("live connection dropped", zap.String("interview_id", interviewID), zap.Error(err))
				live.Controller.Monitor.Report(models.ViolationForcedDrop)
				metrics.ViolationRecorded(string(models.ViolationForcedDrop))
			}
			conn.Close()
			return
		}

		if messageType == websocket.BinaryMessage {
			live.Controller.ForwardAudio(data)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("unparseable client message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "violation":
			kind, ok := violationKind(msg.Kind)
			if !ok {
				h.logger.Debug("unknown violation kind", zap.String("kind", msg.Kind))
				continue
			}
			live.Controller.Monitor.Report(kind)
			metrics.ViolationRecorded(string(kind))
		case "fullscreen_restored":
			live.Controller.Monitor.FullscreenRestored()
		case "playback_done":
			link.ack()
		case "end":
			live.Controller.Terminate(session.ReasonCandidateEnded)
		default:
			h.logger.Debug("unknown message type", zap.String("type", msg.Type))
		}
	}
}

func violationKind(kind string) (models.ViolationKind, bool) {
	switch models.ViolationKind(kind) {
	case models.ViolationTabSwitch, models.ViolationFullscreenExit,
		models.ViolationKeyCombo, models.ViolationRightClick:
		return models.ViolationKind(kind), true
	default:
		return "", false
	}
}

// liveConn is one websocket connection acting as the session's Speaker.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	acks chan struct{}
}

// Speak sends the utterance and waits for the client's playback_done ack so
// capture does not reopen while audio is still playing.
func (l *liveConn) Speak(ctx context.Context, text string) error {
	// drain any stale ack from a prior utterance
	select {
	case <-l.acks:
	default:
	}

	if err := l.send(serverMessage{Type: "utterance", Text: text}); err != nil {
		return err
	}

	timer := time.NewTimer(playbackTimeout)
	defer timer.Stop()

	select {
	case <-l.acks:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *liveConn) send(msg serverMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteJSON(msg)
}

func (l *liveConn) ack() {
	select {
	case l.acks <- struct{}{}:
	default:
	}
}

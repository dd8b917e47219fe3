package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/go-realtime-tts/internal/tts"
	"github.com/gorilla/websocket"
)

// Keepalive must be generous: a long utterance can take well over the
// usual defaults to produce its first chunk.
const (
	wsWriteWait    = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	// The REST surface is already open to any origin; the socket follows.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	SpeakerWAV string `json:"speaker_wav"`
}

type wsStatus struct {
	Status     string `json:"status,omitempty"`
	ChunksSent int    `json:"chunks_sent,omitempty"`
	Error      string `json:"error,omitempty"`
}

// wsSession serializes writes to one connection: the keepalive pinger and
// the streaming loop both write.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

func (s *wsSession) writeBinary(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *wsSession) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *wsSession) keepalive(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.ping() != nil {
				return
			}
		}
	}
}

// handleWS runs the bidirectional surface. The session loops: each JSON
// request is answered with a "processing" status, the binary chunk stream,
// and a terminal "complete" status, then the next request is read. Empty
// text yields an error status without entering the streaming state; a
// synthesis failure yields an error status and ends the session.
func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	h.log.InfoContext(r.Context(), "websocket connection established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &wsSession{conn: conn}
	go sess.keepalive(ctx)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WarnContext(r.Context(), "websocket read failed", slog.String("error", err.Error()))
			} else {
				h.log.InfoContext(r.Context(), "websocket disconnected")
			}
			return
		}

		if strings.TrimSpace(req.Text) == "" {
			if sess.writeJSON(wsStatus{Error: "no text provided"}) != nil {
				return
			}
			continue
		}

		if req.Language != "" && !tts.LanguageSupported(req.Language) {
			if sess.writeJSON(wsStatus{Error: "language " + req.Language + " is not supported"}) != nil {
				return
			}
			continue
		}

		if err := h.streamOverSocket(ctx, sess, req); err != nil {
			return
		}
	}
}

// streamOverSocket serves one request on an established session. A non-nil
// return ends the session.
func (h *handler) streamOverSocket(ctx context.Context, sess *wsSession, req wsRequest) error {
	h.log.Info("websocket synthesis request",
		slog.Int("text_len", len(req.Text)),
		slog.String("language", req.Language),
	)

	if err := sess.writeJSON(wsStatus{Status: "processing"}); err != nil {
		return err
	}

	streamCtx, stop := context.WithCancel(ctx)
	defer stop()

	out := make(chan tts.Chunk, 8)
	errCh := make(chan error, 1)

	go func() {
		errCh <- h.svc.SynthesizeStream(streamCtx, tts.Request{
			Text:       req.Text,
			Language:   req.Language,
			SpeakerWAV: req.SpeakerWAV,
		}, h.opts.chunkSize, out)
	}()

	sent := 0
	var writeErr error
	for chunk := range out {
		if writeErr != nil {
			continue // drain so the producer can finish
		}
		if writeErr = sess.writeBinary(chunk.Bytes); writeErr != nil {
			stop()
			continue
		}
		sent++
	}

	synthErr := <-errCh

	if writeErr != nil {
		h.log.Warn("websocket client went away mid-stream",
			slog.Int("chunks_sent", sent),
			slog.String("error", writeErr.Error()),
		)
		return writeErr
	}

	if synthErr != nil {
		h.log.Error("websocket synthesis failed",
			slog.Int("text_len", len(req.Text)),
			slog.String("error", synthErr.Error()),
		)
		_ = sess.writeJSON(wsStatus{Error: synthErr.Error()})
		return synthErr
	}

	h.log.Info("websocket synthesis complete", slog.Int("chunks_sent", sent))

	return sess.writeJSON(wsStatus{Status: "complete", ChunksSent: sent})
}

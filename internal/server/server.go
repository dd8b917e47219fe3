package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-realtime-tts/internal/audio"
	"github.com/example/go-realtime-tts/internal/config"
	"github.com/example/go-realtime-tts/internal/store"
	"github.com/example/go-realtime-tts/internal/tts"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// SpeechService is the synthesis pipeline consumed by the transports.
type SpeechService interface {
	Synthesize(ctx context.Context, req tts.Request) ([]float32, int, tts.Metrics, error)
	SynthesizeStream(ctx context.Context, req tts.Request, chunkSize int, out chan<- tts.Chunk) error
}

// ArtifactStore persists finalized audio and serves it back by name.
type ArtifactStore interface {
	Save(data []byte, prefix string) (string, error)
	Open(name string) (*os.File, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	chunkSize      int
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   5000,
		workers:        1,
		requestTimeout: 120 * time.Second,
		chunkSize:      tts.DefaultChunkSize,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrently admitted synthesis
// requests. The synthesis handle itself is serialized further down.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request synthesis deadline for the
// non-streaming REST endpoint.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithChunkSize sets the streaming chunk size used when a request does not
// specify one.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	svc       SpeechService
	artifacts ArtifactStore
	opts      options
	sem       chan struct{} // admission semaphore
	log       *slog.Logger
}

// NewHandler returns an http.Handler serving the REST, streaming, and
// WebSocket TTS surfaces plus artifact retrieval and health reporting.
func NewHandler(svc SpeechService, artifacts ArtifactStore, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		svc:       svc,
		artifacts: artifacts,
		opts:      opts,
		log:       opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/tts", h.handleTTS)
	mux.HandleFunc("/api/tts/stream", h.handleTTSStream)
	mux.HandleFunc("/api/voice-clone", h.handleVoiceClone)
	mux.HandleFunc("/audio/", h.handleAudio)
	mux.HandleFunc("/ws/tts", h.handleWS)

	return withCORS(mux)
}

// withCORS mirrors the permissive policy of the upstream service: any
// origin may call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"model_loaded":        h.svc != nil,
		"supported_languages": tts.SupportedLanguages,
		"version":             buildVersion(),
	})
}

// acquire claims an admission slot, honouring cancellation while waiting.
// It reports whether the slot was acquired; release with h.release().
func (h *handler) acquire(ctx context.Context) bool {
	if h.sem == nil {
		return true
	}

	select {
	case h.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *handler) release() {
	if h.sem != nil {
		<-h.sem
	}
}

type ttsRequest struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	SpeakerWAV string  `json:"speaker_wav"`
	Speed      float64 `json:"speed"`
}

type ttsStreamRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	SpeakerWAV string `json:"speaker_wav"`
	ChunkSize  int    `json:"chunk_size"`
}

type voiceCloneRequest struct {
	Text             string `json:"text"`
	SpeakerAudioPath string `json:"speaker_audio_path"`
	Language         string `json:"language"`
}

type ttsResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	AudioURL        string  `json:"audio_url"`
	Duration        float64 `json:"duration"`
	SampleRate      int     `json:"sample_rate"`
	SynthesisTimeMS float64 `json:"synthesis_time_ms"`
	TotalTimeMS     float64 `json:"total_time_ms"`
	AudioDurationS  float64 `json:"audio_duration_s"`
	RealTimeFactor  float64 `json:"real_time_factor"`
	TextLength      int     `json:"text_length"`
}

// validateText checks the text and language common to all surfaces and
// writes the rejection itself. It reports whether the request may proceed.
func (h *handler) validateText(w http.ResponseWriter, text, language string) bool {
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return false
	}

	if len(text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return false
	}

	if language != "" && !tts.LanguageSupported(language) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("language %q is not supported", language))
		return false
	}

	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}

	return true
}

func (h *handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.validateText(w, req.Text, req.Language) {
		return
	}

	if req.Speed != 0 && (req.Speed < 0.5 || req.Speed > 2.0) {
		writeError(w, http.StatusBadRequest, "speed must be between 0.5 and 2.0")
		return
	}

	h.synthesizeToArtifact(w, r, tts.Request{
		Text:       req.Text,
		Language:   req.Language,
		SpeakerWAV: req.SpeakerWAV,
		Speed:      req.Speed,
	}, "tts", "Text-to-speech conversion successful")
}

func (h *handler) handleVoiceClone(w http.ResponseWriter, r *http.Request) {
	var req voiceCloneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.validateText(w, req.Text, req.Language) {
		return
	}

	if strings.TrimSpace(req.SpeakerAudioPath) == "" {
		writeError(w, http.StatusBadRequest, "speaker_audio_path field is required")
		return
	}

	if _, err := os.Stat(req.SpeakerAudioPath); err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("speaker audio file not found: %s", req.SpeakerAudioPath))
		return
	}

	h.synthesizeToArtifact(w, r, tts.Request{
		Text:       req.Text,
		Language:   req.Language,
		SpeakerWAV: req.SpeakerAudioPath,
	}, "cloned", "Voice cloning successful")
}

// synthesizeToArtifact runs the whole-text synthesis path: synthesize,
// encode, store, and answer with the artifact URL plus timing metrics.
func (h *handler) synthesizeToArtifact(w http.ResponseWriter, r *http.Request, req tts.Request, prefix, message string) {
	if !h.acquire(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer h.release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	samples, rate, metrics, err := h.svc.Synthesize(ctx, req)
	if err != nil {
		h.logSynthFailure(r, req, err, time.Since(start))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	wavBytes, err := audio.EncodeWAV(samples, rate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name, err := h.artifacts.Save(wavBytes, prefix)
	if err != nil {
		h.log.ErrorContext(r.Context(), "artifact save failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ttsResponse{
		Success:         true,
		Message:         message,
		AudioURL:        "/audio/" + name,
		Duration:        metrics.AudioDurationS,
		SampleRate:      rate,
		SynthesisTimeMS: metrics.SynthesisTimeMS,
		TotalTimeMS:     metrics.TotalTimeMS,
		AudioDurationS:  metrics.AudioDurationS,
		RealTimeFactor:  metrics.RealTimeFactor,
		TextLength:      metrics.TextLength,
	})
}

func (h *handler) logSynthFailure(r *http.Request, req tts.Request, err error, elapsed time.Duration) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		h.log.WarnContext(r.Context(), "synthesis timed out",
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()),
		)
		return
	}

	h.log.ErrorContext(r.Context(), "synthesis failed",
		slog.Int("text_len", len(req.Text)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.String("error", err.Error()),
	)
}

func (h *handler) handleTTSStream(w http.ResponseWriter, r *http.Request) {
	var req ttsStreamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.validateText(w, req.Text, req.Language) {
		return
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = h.opts.chunkSize
	}
	if chunkSize < tts.MinChunkSize || chunkSize > tts.MaxChunkSize {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("chunk_size must be between %d and %d", tts.MinChunkSize, tts.MaxChunkSize))
		return
	}

	if !h.acquire(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer h.release()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan tts.Chunk, 8)
	errCh := make(chan error, 1)

	go func() {
		errCh <- h.svc.SynthesizeStream(ctx, tts.Request{
			Text:       req.Text,
			Language:   req.Language,
			SpeakerWAV: req.SpeakerWAV,
		}, chunkSize, out)
	}()

	flusher, _ := w.(http.Flusher)
	wroteAny := false

	for chunk := range out {
		if !wroteAny {
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Content-Disposition", `inline; filename=speech.wav`)
			wroteAny = true
		}

		if _, err := w.Write(chunk.Bytes); err != nil {
			// Peer went away; let the producer wind down and discard
			// the rest of the stream.
			cancel()
			for range out {
			}
			<-errCh
			h.log.WarnContext(r.Context(), "stream client disconnected",
				slog.Int("text_len", len(req.Text)),
				slog.String("error", err.Error()),
			)
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := <-errCh; err != nil {
		if !wroteAny {
			h.logSynthFailure(r, tts.Request{Text: req.Text}, err, 0)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Headers are already out; all we can do is log and close.
		h.log.ErrorContext(r.Context(), "streaming synthesis failed mid-stream",
			slog.Int("text_len", len(req.Text)),
			slog.String("error", err.Error()),
		)
	}
}

func (h *handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/audio/")

	f, err := h.artifacts.Open(name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "audio file not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// ProbeHTTP checks a running server's health endpoint.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	svc             SpeechService
	artifacts       ArtifactStore
	shutdownTimeout time.Duration
}

func New(cfg config.Config, svc SpeechService, artifacts ArtifactStore) *Server {
	return &Server{
		cfg:             cfg,
		svc:             svc,
		artifacts:       artifacts,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	h := NewHandler(s.svc, s.artifacts,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithChunkSize(s.cfg.TTS.ChunkSize),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/go-realtime-tts/internal/audio"
	"github.com/example/go-realtime-tts/internal/server"
	"github.com/example/go-realtime-tts/internal/testutil"
	"github.com/example/go-realtime-tts/internal/tts"
)

func TestTTSStream_EmptyTextReturns400(t *testing.T) {
	h := newTestHandler(t, &tts.Mock{})

	rec := postJSON(h, "/api/tts/stream", map[string]any{"text": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", rec.Code)
	}
}

func TestTTSStream_ChunkSizeBounds(t *testing.T) {
	h := newTestHandler(t, &tts.Mock{})

	for _, size := range []int{512, 1023, 8193, 100000} {
		rec := postJSON(h, "/api/tts/stream", map[string]any{"text": "Hello.", "chunk_size": size})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("chunk_size %d: status = %d; want 400", size, rec.Code)
		}
	}
}

func TestTTSStream_ProducesFramedWAV(t *testing.T) {
	h := newTestHandler(t, &tts.Mock{SampleRate: 24000})

	rec := postJSON(h, "/api/tts/stream", map[string]any{
		"text":       "Hello world. This is a test.",
		"chunk_size": 4096,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (body %s)", rec.Code, rec.Body.String())
	}

	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q; want audio/wav", ct)
	}

	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q; want no-cache", cc)
	}

	body := rec.Body.Bytes()
	if len(body) <= audio.HeaderSize {
		t.Fatalf("stream body too short: %d bytes", len(body))
	}

	if string(body[0:4]) != "RIFF" {
		t.Error("stream does not begin with a WAV header")
	}

	// The stream's provisional header is sized for the first batch only;
	// after receiver-side finalization it must be a valid WAV.
	var r audio.Reassembler
	r.Consume(body)
	out := r.Finalize()

	if r.SampleRate() != 24000 {
		t.Errorf("parsed sample rate = %d; want 24000", r.SampleRate())
	}

	testutil.AssertValidWAV(t, out, 24000)
}

func TestTTSStream_DefaultChunkSize(t *testing.T) {
	h := newTestHandler(t, &tts.Mock{})

	rec := postJSON(h, "/api/tts/stream", map[string]any{"text": "Hello."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
}

func TestTTSStream_SynthFailureBeforeFirstChunk(t *testing.T) {
	h := newTestHandler(t, &tts.Mock{Err: errors.New("no voice today")})

	rec := postJSON(h, "/api/tts/stream", map[string]any{"text": "Hello."})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", rec.Code)
	}
}

func TestTTSStream_ConcurrentRequestsSerialized(t *testing.T) {
	// Two streaming requests against a single admission slot: both must
	// complete, the second waiting for the first.
	h := newTestHandler(t, &tts.Mock{}, server.WithWorkers(1))

	results := make(chan int, 2)
	for range 2 {
		go func() {
			rec := postJSON(h, "/api/tts/stream", map[string]any{"text": "Hello there."})
			results <- rec.Code
		}()
	}

	for range 2 {
		select {
		case code := <-results:
			if code != http.StatusOK {
				t.Errorf("status = %d; want 200", code)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("request did not complete")
		}
	}
}

func TestTTSStream_ClientDisconnectTearsDownSession(t *testing.T) {
	// A real server so the client can abandon the connection mid-stream.
	synth := &tts.Mock{PerRune: 100 * time.Millisecond}
	h := newTestHandler(t, synth)
	srv := httptest.NewServer(h)
	defer srv.Close()

	body, err := json.Marshal(map[string]any{"text": "One. Two. Three. Four. Five. Six."})
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tts/stream", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1024)
	_, _ = resp.Body.Read(buf) // take the first chunk, then walk away
	_ = resp.Body.Close()

	// The server must remain healthy for other sessions.
	resp2, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health check after disconnect: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d; want 200", resp2.StatusCode)
	}
}

package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/go-realtime-tts/internal/config"
	"github.com/example/go-realtime-tts/internal/text"
)

// Service drives the synthesis collaborator. The collaborator handle is a
// shared, non-reentrant resource: a mutex serializes every request
// end-to-end, even though the transports accept many connections.
type Service struct {
	synth             Synthesizer
	maxUnitLen        int
	defaultLanguage   string
	defaultSpeakerWAV string
	log               *slog.Logger

	mu sync.Mutex // guards synth across concurrent sessions
}

func NewService(synth Synthesizer, cfg config.TTSConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		synth:             synth,
		maxUnitLen:        cfg.MaxUnitLength,
		defaultLanguage:   cfg.DefaultLanguage,
		defaultSpeakerWAV: cfg.DefaultSpeakerWAV,
		log:               log,
	}
}

func (s *Service) applyDefaults(req Request) Request {
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}
	if req.SpeakerWAV == "" {
		req.SpeakerWAV = s.defaultSpeakerWAV
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	return req
}

// Synthesize converts the whole request text in one collaborator call and
// returns the samples, their sample rate, and timing metrics.
func (s *Service) Synthesize(ctx context.Context, req Request) ([]float32, int, Metrics, error) {
	req = s.applyDefaults(req)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	synthStart := time.Now()
	samples, rate, err := s.synth.Synthesize(ctx, UnitRequest{
		Text:       req.Text,
		Language:   req.Language,
		SpeakerWAV: req.SpeakerWAV,
		Speed:      req.Speed,
	})
	synthesisTime := time.Since(synthStart)

	if err != nil {
		return nil, 0, Metrics{}, err
	}
	if rate < 1 {
		return nil, 0, Metrics{}, fmt.Errorf("synthesizer returned invalid sample rate %d", rate)
	}

	audioDuration := float64(len(samples)) / float64(rate)
	rtf := 0.0
	if synthesisTime > 0 {
		rtf = audioDuration / synthesisTime.Seconds()
	}

	m := Metrics{
		SynthesisTimeMS: float64(synthesisTime.Milliseconds()),
		TotalTimeMS:     float64(time.Since(start).Milliseconds()),
		AudioDurationS:  audioDuration,
		RealTimeFactor:  rtf,
		TextLength:      len(req.Text),
	}

	s.log.Info("synthesis complete",
		slog.Int("samples", len(samples)),
		slog.Int("sample_rate", rate),
		slog.Float64("audio_duration_s", m.AudioDurationS),
		slog.Float64("real_time_factor", m.RealTimeFactor),
	)

	return samples, rate, m, nil
}

// SynthesizeStream segments the request text into speakable units, drives
// the collaborator strictly one unit at a time, and sends framed chunks on
// out in production order. The channel is closed when the stream ends, on
// success or failure. A collaborator failure aborts the remaining units
// and is returned as a *UnitError.
//
// Cancellation is honoured between chunk sends and between units; an
// in-flight collaborator call runs to completion and its result is
// discarded.
func (s *Service) SynthesizeStream(ctx context.Context, req Request, chunkSize int, out chan<- Chunk) error {
	defer close(out)

	req = s.applyDefaults(req)
	units := text.Segment(req.Text, s.maxUnitLen)
	f := newFramer(chunkSize)

	// The collaborator call itself is never force-cancelled; a unit that
	// is already synthesizing finishes and its output is dropped.
	synthCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	streamRate := 0
	for i, unit := range units {
		if strings.TrimSpace(unit) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.log.Debug("synthesizing unit",
			slog.Int("unit", i+1),
			slog.Int("total", len(units)),
			slog.Int("text_len", len(unit)),
		)

		samples, rate, err := s.synth.Synthesize(synthCtx, UnitRequest{
			Text:       unit,
			Language:   req.Language,
			SpeakerWAV: req.SpeakerWAV,
			Speed:      req.Speed,
		})
		if err != nil {
			return &UnitError{Index: i, Text: unit, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if rate < 1 {
			return fmt.Errorf("synthesizer returned invalid sample rate %d", rate)
		}

		switch {
		case streamRate == 0:
			streamRate = rate
		case rate != streamRate:
			// One fixed sample rate per session; the header already
			// declared streamRate and raw chunks cannot change it.
			return fmt.Errorf("sample rate changed mid-stream: %d then %d", streamRate, rate)
		}

		for _, chunk := range f.frame(samples, rate) {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

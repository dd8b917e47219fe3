package tts

import (
	"context"
	"math"
	"time"
)

// Mock is a deterministic Synthesizer for tests and local development
// without a real synthesis backend. It produces a quiet 440 Hz sine burst
// whose length scales with the input text.
type Mock struct {
	SampleRate int           // defaults to 24000
	PerRune    time.Duration // audio produced per input rune, defaults to 20ms
	Err        error         // returned instead of audio when set
}

func (m *Mock) Synthesize(ctx context.Context, req UnitRequest) ([]float32, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if m.Err != nil {
		return nil, 0, m.Err
	}

	rate := m.SampleRate
	if rate == 0 {
		rate = 24000
	}

	perRune := m.PerRune
	if perRune == 0 {
		perRune = 20 * time.Millisecond
	}

	n := int(float64(rate) * (time.Duration(len([]rune(req.Text))) * perRune).Seconds())
	if n == 0 {
		n = 1
	}

	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}

	return samples, rate, nil
}

package tts

import "context"

// UnitRequest carries one speakable unit of text to the synthesis backend.
type UnitRequest struct {
	Text       string
	Language   string
	SpeakerWAV string // optional reference audio path for voice cloning
	Speed      float64
}

// Synthesizer is the external synthesis collaborator. Implementations
// return float32 samples in [-1, 1] and the stream's sample rate. The
// handle may wrap exclusive model state and must be treated as
// non-reentrant; the Service serializes access to it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req UnitRequest) ([]float32, int, error)
}

// Request is one end-to-end synthesis request.
type Request struct {
	Text       string
	Language   string
	SpeakerWAV string
	Speed      float64
}

// Chunk is one framed piece of the outgoing byte stream. Exactly one chunk
// per stream has First set, and it is the first chunk emitted: it begins
// with the provisional WAV header.
type Chunk struct {
	Bytes []byte
	First bool
}

// Metrics describes the timing of one synthesis request.
type Metrics struct {
	SynthesisTimeMS float64
	TotalTimeMS     float64
	AudioDurationS  float64
	RealTimeFactor  float64
	TextLength      int
}

// SupportedLanguages lists the language codes accepted by the service.
var SupportedLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "pl", "tr",
	"ru", "nl", "cs", "ar", "zh-cn", "ja", "hu", "ko", "hi",
}

// LanguageSupported reports whether code is in SupportedLanguages.
func LanguageSupported(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}

	return false
}

package tts

import "github.com/example/go-realtime-tts/internal/audio"

// Chunk size bounds for the framed stream. Callers of the streaming
// surfaces validate requested sizes against these.
const (
	MinChunkSize     = 1024
	MaxChunkSize     = 8192
	DefaultChunkSize = 4096
)

// framer turns a sequence of PCM sample batches into framed byte chunks.
// The first non-empty batch is prefixed with a WAV header whose size
// fields describe that batch alone; later batches are raw little-endian
// sample bytes. Every batch is sliced into pieces of at most chunkSize
// bytes. Empty batches produce no chunks and do not consume the header.
type framer struct {
	chunkSize  int
	headerSent bool
}

func newFramer(chunkSize int) *framer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &framer{chunkSize: chunkSize}
}

func (f *framer) frame(samples []float32, sampleRate int) []Chunk {
	if len(samples) == 0 {
		return nil
	}

	pcm := audio.PCM16Bytes(samples)

	payload := pcm
	first := false
	if !f.headerSent {
		payload = append(audio.WAVHeader(sampleRate, len(pcm)), pcm...)
		f.headerSent = true
		first = true
	}

	var chunks []Chunk
	for start := 0; start < len(payload); start += f.chunkSize {
		end := min(start+f.chunkSize, len(payload))
		chunks = append(chunks, Chunk{
			Bytes: payload[start:end],
			First: first && start == 0,
		})
	}

	return chunks
}

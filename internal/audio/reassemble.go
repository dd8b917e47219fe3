package audio

import (
	"bytes"
	"encoding/binary"
)

// Reassembler accumulates framed WAV chunks from a stream into a single
// file. The first chunk of a stream carries a provisional header whose
// size fields describe only the first sample batch; Finalize rewrites the
// RIFF and data size fields from the true accumulated length.
//
// A Reassembler serves exactly one stream. Finalize must be called exactly
// once, after the last chunk has been consumed.
type Reassembler struct {
	buf          bytes.Buffer
	started      bool
	headerParsed bool
	sampleRate   int
}

// Consume appends one framed chunk. If the first chunk is longer than the
// fixed header size, the sample-rate field is parsed from it; everything
// past the header in that chunk, and all later chunks, is payload.
func (r *Reassembler) Consume(chunk []byte) {
	if !r.started {
		r.started = true
		if len(chunk) > HeaderSize {
			r.sampleRate = int(binary.LittleEndian.Uint32(chunk[SampleRateOffset : SampleRateOffset+4]))
			r.headerParsed = true
		}
	}

	r.buf.Write(chunk)
}

// SampleRate returns the rate parsed from the stream header, or 0 when no
// header has been seen yet.
func (r *Reassembler) SampleRate() int { return r.sampleRate }

// HeaderParsed reports whether the stream header has been seen.
func (r *Reassembler) HeaderParsed() bool { return r.headerParsed }

// Len returns the number of bytes accumulated so far.
func (r *Reassembler) Len() int { return r.buf.Len() }

// Finalize patches the provisional size fields (RIFF size to total-8,
// data size to total-44) and returns the completed file. The header
// emitted by the sender was sized for the first batch alone and is never
// trusted for the total length.
func (r *Reassembler) Finalize() []byte {
	data := r.buf.Bytes()
	if len(data) >= HeaderSize {
		binary.LittleEndian.PutUint32(data[RiffSizeOffset:RiffSizeOffset+4], uint32(len(data)-8))
		binary.LittleEndian.PutUint32(data[DataSizeOffset:DataSizeOffset+4], uint32(len(data)-HeaderSize))
	}

	return data
}

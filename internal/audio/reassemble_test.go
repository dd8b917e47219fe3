package audio

import (
	"encoding/binary"
	"testing"
)

func TestReassembler_ParsesSampleRateFromFirstChunk(t *testing.T) {
	pcm := PCM16Bytes([]float32{0.1, 0.2, 0.3})
	first := append(WAVHeader(22050, len(pcm)), pcm...)

	var r Reassembler
	r.Consume(first)

	if !r.HeaderParsed() {
		t.Fatal("header not parsed from first chunk")
	}

	if r.SampleRate() != 22050 {
		t.Errorf("SampleRate() = %d; want 22050", r.SampleRate())
	}
}

func TestReassembler_ShortFirstChunkSkipsHeaderParse(t *testing.T) {
	var r Reassembler
	r.Consume(make([]byte, HeaderSize)) // not longer than the header

	if r.HeaderParsed() {
		t.Error("header parsed from chunk not longer than header size")
	}

	if r.SampleRate() != 0 {
		t.Errorf("SampleRate() = %d; want 0", r.SampleRate())
	}
}

func TestReassembler_LaterChunksAreAppendedVerbatim(t *testing.T) {
	pcm := PCM16Bytes([]float32{0.5})
	first := append(WAVHeader(24000, len(pcm)), pcm...)

	var r Reassembler
	r.Consume(first)
	r.Consume([]byte{1, 2, 3, 4})

	if r.Len() != len(first)+4 {
		t.Errorf("Len() = %d; want %d", r.Len(), len(first)+4)
	}

	// A raw chunk after the first must not be mistaken for a header.
	if r.SampleRate() != 24000 {
		t.Errorf("SampleRate() = %d; want 24000", r.SampleRate())
	}
}

func TestReassembler_FinalizePatchesSizes(t *testing.T) {
	// Provisional header describes only the first batch; two more raw
	// batches follow, so the emitted size fields are wrong until Finalize.
	batch1 := PCM16Bytes([]float32{0.1, 0.2, 0.3})
	batch2 := PCM16Bytes([]float32{0.4, 0.5})
	batch3 := PCM16Bytes([]float32{0.6})

	var r Reassembler
	r.Consume(append(WAVHeader(24000, len(batch1)), batch1...))
	r.Consume(batch2)
	r.Consume(batch3)

	out := r.Finalize()

	total := HeaderSize + len(batch1) + len(batch2) + len(batch3)
	if len(out) != total {
		t.Fatalf("finalized length = %d; want %d", len(out), total)
	}

	riffSize := binary.LittleEndian.Uint32(out[RiffSizeOffset:])
	if riffSize != uint32(total-8) {
		t.Errorf("RIFF size = %d; want %d", riffSize, total-8)
	}

	dataSize := binary.LittleEndian.Uint32(out[DataSizeOffset:])
	if dataSize != uint32(total-HeaderSize) {
		t.Errorf("data size = %d; want %d", dataSize, total-HeaderSize)
	}
}

func TestReassembler_FinalizeSingleBatch(t *testing.T) {
	batch := PCM16Bytes(make([]float32, 100))

	var r Reassembler
	r.Consume(append(WAVHeader(16000, len(batch)), batch...))

	out := r.Finalize()

	riffSize := binary.LittleEndian.Uint32(out[RiffSizeOffset:])
	if riffSize != uint32(len(out)-8) {
		t.Errorf("RIFF size = %d; want %d", riffSize, len(out)-8)
	}

	dataSize := binary.LittleEndian.Uint32(out[DataSizeOffset:])
	if dataSize != uint32(len(out)-HeaderSize) {
		t.Errorf("data size = %d; want %d", dataSize, len(out)-HeaderSize)
	}
}

func TestReassembler_RoundTripDecodes(t *testing.T) {
	batch1 := PCM16Bytes([]float32{0.1, -0.1, 0.2})
	batch2 := PCM16Bytes([]float32{0.3, -0.3})

	var r Reassembler
	r.Consume(append(WAVHeader(24000, len(batch1)), batch1...))
	r.Consume(batch2)

	samples, rate, err := DecodeWAV(r.Finalize())
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}

	if rate != 24000 {
		t.Errorf("decoded rate = %d; want 24000", rate)
	}

	if len(samples) != 5 {
		t.Errorf("decoded %d samples; want 5", len(samples))
	}
}

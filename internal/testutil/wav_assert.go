// Package testutil provides shared WAV assertions for tests.
package testutil

import (
	"encoding/binary"
	"errors"
	"testing"
)

// AssertValidWAV checks that data is a mono 16-bit PCM WAV file at the
// given sample rate whose declared sizes match its actual length.
func AssertValidWAV(tb testing.TB, data []byte, sampleRate int) {
	tb.Helper()

	if len(data) < 44 {
		tb.Fatalf("WAV data too short: %d bytes", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		tb.Fatalf("WAV: missing RIFF header (got %q)", string(data[0:4]))
	}

	if string(data[8:12]) != "WAVE" {
		tb.Fatalf("WAV: missing WAVE marker (got %q)", string(data[8:12]))
	}

	if string(data[12:16]) != "fmt " {
		tb.Fatalf("WAV: missing fmt chunk (got %q)", string(data[12:16]))
	}

	audioFmt := binary.LittleEndian.Uint16(data[20:22])
	if audioFmt != 1 {
		tb.Fatalf("WAV: expected PCM format (1), got %d", audioFmt)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		tb.Fatalf("WAV: expected mono (1 channel), got %d", channels)
	}

	gotRate := binary.LittleEndian.Uint32(data[24:28])
	if gotRate != uint32(sampleRate) {
		tb.Fatalf("WAV: expected sample rate %d, got %d", sampleRate, gotRate)
	}

	bitDepth := binary.LittleEndian.Uint16(data[34:36])
	if bitDepth != 16 {
		tb.Fatalf("WAV: expected 16-bit depth, got %d", bitDepth)
	}

	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if riffSize != uint32(len(data)-8) {
		tb.Fatalf("WAV: RIFF size = %d; want %d", riffSize, len(data)-8)
	}

	dataSize, err := findDataChunkSize(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
	}

	if dataSize%2 != 0 {
		tb.Fatalf("WAV: odd data chunk size %d for 16-bit samples", dataSize)
	}
}

// findDataChunkSize walks the RIFF chunks and returns the data chunk's
// declared size, verifying it fits within the file.
func findDataChunkSize(data []byte) (int, error) {
	pos := 12 // past RIFF header
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))

		if id == "data" {
			if pos+8+size > len(data) {
				return 0, errors.New("data chunk size exceeds file length")
			}
			return size, nil
		}

		pos += 8 + size
		if size%2 == 1 {
			pos++ // RIFF chunks are word-aligned
		}
	}

	return 0, errors.New("no data chunk found")
}

package audio

import (
	"encoding/binary"
	"math"
)

// WAV layout for the mono 16-bit PCM streams produced by the service.
// HeaderSize is the full RIFF+fmt+data prefix; the offsets locate the two
// length fields and the sample-rate field inside that prefix.
const (
	HeaderSize       = 44
	RiffSizeOffset   = 4
	SampleRateOffset = 24
	DataSizeOffset   = 40

	numChannels   = 1
	bitsPerSample = 16
)

// WAVHeader returns a 44-byte mono, 16-bit, little-endian PCM header whose
// RIFF and data size fields describe dataSize bytes of payload. When more
// sample data will follow the header is provisional: the receiver must
// patch both size fields once the true total length is known.
func WAVHeader(sampleRate, dataSize int) []byte {
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	hdr := make([]byte, HeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(HeaderSize-8+dataSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], numChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	return hdr
}

// PCM16Bytes encodes float32 samples as little-endian 16-bit signed
// integers via round(sample * 32767). Samples are clamped to [-1, 1].
func PCM16Bytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		v := int16(math.Round(clamped * 32767))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}

	return buf
}

package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/example/go-realtime-tts/internal/audio"
)

// Exec invokes an external synthesis command once per unit. The command
// receives the unit text on stdin and must write a mono 16-bit WAV file to
// stdout. Language, speaker reference and speed are passed as flags when
// present.
type Exec struct {
	Command string
	Args    []string
}

func (e *Exec) Synthesize(ctx context.Context, req UnitRequest) ([]float32, int, error) {
	if e.Command == "" {
		return nil, 0, fmt.Errorf("no synthesis command configured")
	}

	args := append([]string(nil), e.Args...)
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	if strings.TrimSpace(req.SpeakerWAV) != "" {
		args = append(args, "--speaker-wav", req.SpeakerWAV)
	}
	if req.Speed != 0 && req.Speed != 1.0 {
		args = append(args, "--speed", strconv.FormatFloat(req.Speed, 'f', -1, 64))
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("synthesis command: %w", err)
	}

	return audio.DecodeWAV(out.Bytes())
}

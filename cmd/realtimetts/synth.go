package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/example/go-realtime-tts/internal/audio"
	"github.com/example/go-realtime-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var out string
	var language string
	var speakerWAV string
	var speed float64

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			svc := tts.NewService(buildSynthesizer(cfg), cfg.TTS, slog.Default())

			samples, rate, metrics, err := svc.Synthesize(cmd.Context(), tts.Request{
				Text:       inputText,
				Language:   language,
				SpeakerWAV: speakerWAV,
				Speed:      speed,
			})
			if err != nil {
				return fmt.Errorf("synth failed: %w", err)
			}

			wavData, err := audio.EncodeWAV(samples, rate)
			if err != nil {
				return fmt.Errorf("encode WAV: %w", err)
			}

			slog.Info("synthesis complete",
				slog.Float64("audio_duration_s", metrics.AudioDurationS),
				slog.Float64("real_time_factor", metrics.RealTimeFactor),
			)

			return writeSynthOutput(out, wavData, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().StringVar(&language, "language", "", "Language code (overrides config default)")
	cmd.Flags().StringVar(&speakerWAV, "speaker-wav", "", "Speaker reference audio path")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Playback speed factor (0 uses the backend default)")

	return cmd
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}

func writeSynthOutput(outPath string, wavData []byte, stdout io.Writer) error {
	if outPath == "-" {
		_, err := stdout.Write(wavData)
		return err
	}
	return os.WriteFile(outPath, wavData, 0o644)
}

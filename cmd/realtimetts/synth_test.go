package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-realtime-tts/internal/config"
	"github.com/example/go-realtime-tts/internal/testutil"
	"github.com/example/go-realtime-tts/internal/tts"
)

func TestReadSynthText(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "flag wins", flag: "Hello.", stdin: "ignored", want: "Hello."},
		{name: "stdin fallback", flag: "", stdin: "From stdin.", want: "From stdin."},
		{name: "stdin trimmed", flag: "", stdin: "  padded  \n", want: "padded"},
		{name: "both empty", flag: "", stdin: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSynthText(tt.flag, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}

func TestWriteSynthOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	data := []byte("RIFFdata")

	if err := writeSynthOutput(path, data, nil); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("file contents = %q; want %q", got, data)
	}
}

func TestWriteSynthOutput_Stdout(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("RIFFdata")

	if err := writeSynthOutput("-", data, &buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("stdout = %q; want %q", buf.Bytes(), data)
	}
}

func TestBuildSynthesizer(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, ok := buildSynthesizer(cfg).(*tts.Mock); !ok {
		t.Error("empty command should select the built-in generator")
	}

	cfg.TTS.Command = "some-tts-binary"
	ex, ok := buildSynthesizer(cfg).(*tts.Exec)
	if !ok {
		t.Fatal("configured command should select the subprocess backend")
	}
	if ex.Command != "some-tts-binary" {
		t.Errorf("Command = %q; want some-tts-binary", ex.Command)
	}
}

func TestSynthCommand_WritesWAV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	root := NewRootCmd()
	root.SetArgs([]string{"synth", "--text", "Hello world.", "--out", out})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	if err := root.Execute(); err != nil {
		t.Fatalf("synth command failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertValidWAV(t, data, 24000)
}

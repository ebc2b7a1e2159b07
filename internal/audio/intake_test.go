package audio

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestIntake_SaveAndDiscard(t *testing.T) {
	in := NewIntake(t.TempDir())

	path, err := in.SaveSample([]byte("OggS"), "ogg")
	if err != nil {
		t.Fatalf("SaveSample: %v", err)
	}
	if !strings.HasSuffix(path, ".ogg") {
		t.Errorf("path = %q, want .ogg suffix", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "OggS" {
		t.Fatalf("read back: %q, %v", data, err)
	}

	in.Discard(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("sample still present after Discard")
	}

	// Discarding again (or an empty path) must be harmless.
	in.Discard(path)
	in.Discard("")
}

func TestIntake_SaveDefaultsExtension(t *testing.T) {
	in := NewIntake(t.TempDir())

	path, err := in.SaveSample([]byte("x"), "")
	if err != nil {
		t.Fatalf("SaveSample: %v", err)
	}
	if !strings.HasSuffix(path, ".ogg") {
		t.Errorf("path = %q, want default .ogg suffix", path)
	}
}

func TestIntake_ProbeUnavailable(t *testing.T) {
	in := NewIntake(t.TempDir())
	in.probeBin = "definitely-not-ffprobe"

	path, err := in.SaveSample([]byte("OggS"), "ogg")
	if err != nil {
		t.Fatalf("SaveSample: %v", err)
	}

	_, err = in.ProbeDuration(context.Background(), path)
	if !errors.Is(err, ErrProbeUnavailable) {
		t.Errorf("error = %v, want ErrProbeUnavailable", err)
	}
}

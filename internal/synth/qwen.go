package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// QwenProvider synthesizes speech through a local Qwen TTS CLI wrapper.
// Requires the `qwen-tts` tool on PATH; audio is written to a temp file
// and read back.
type QwenProvider struct {
	bin        string // CLI binary, default "qwen-tts"
	format     string // output format, default "wav"
	sampleRate int
	timeout    time.Duration

	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// QwenConfig configures the Qwen CLI provider.
type QwenConfig struct {
	Bin        string
	Format     string
	SampleRate int
	TimeoutMs  int
}

// NewQwenProvider creates a Qwen CLI provider.
func NewQwenProvider(cfg QwenConfig) *QwenProvider {
	p := &QwenProvider{
		bin:        cfg.Bin,
		format:     cfg.Format,
		sampleRate: cfg.SampleRate,
		timeout:    time.Duration(cfg.TimeoutMs) * time.Millisecond,
		runCommand: runCombinedOutput,
	}
	if p.bin == "" {
		p.bin = "qwen-tts"
	}
	if p.format == "" {
		p.format = "wav"
	}
	if p.sampleRate <= 0 {
		p.sampleRate = 24000
	}
	if p.timeout <= 0 {
		p.timeout = 60 * time.Second
	}
	return p
}

func (p *QwenProvider) Name() string { return "qwen" }

// Synthesize runs the CLI with the profile's full parameter set. Cloned
// profiles pass their stored reference sample (and optional reference text)
// for zero-shot voice cloning.
func (p *QwenProvider) Synthesize(ctx context.Context, text string, profile voice.Profile) (*Result, error) {
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("voiceclaw-%d.%s", time.Now().UnixNano(), p.format))
	defer os.Remove(outPath)

	args := []string{
		"--model", profile.Model,
		"--text", text,
		"--speed", strconv.FormatFloat(profile.Settings.Speed, 'f', -1, 64),
		"--pitch", strconv.FormatFloat(profile.Settings.Pitch, 'f', -1, 64),
		"--volume", strconv.FormatFloat(profile.Settings.Volume, 'f', -1, 64),
		"--emotion", profile.Settings.Emotion,
		"--language", profile.Settings.Language,
		"--sample-rate", strconv.Itoa(p.sampleRate),
		"--output", outPath,
	}
	if profile.Cloned && profile.ClonedFrom != "" {
		args = append(args, "--reference-audio", profile.ClonedFrom)
		if profile.ReferenceText != "" {
			args = append(args, "--reference-text", profile.ReferenceText)
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if output, err := p.runCommand(cmdCtx, p.bin, args...); err != nil {
		return nil, fmt.Errorf("%w: qwen-tts: %v (output: %s)", ErrSynthesisFailed, err, string(output))
	}

	audio, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read qwen-tts output: %v", ErrSynthesisFailed, err)
	}

	return &Result{
		Audio:     audio,
		Extension: p.format,
		MimeType:  mimeForExtension(p.format),
	}, nil
}

func mimeForExtension(ext string) string {
	switch ext {
	case "wav":
		return "audio/wav"
	case "ogg", "opus":
		return "audio/ogg"
	case "mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

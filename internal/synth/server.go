package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// ServerProvider synthesizes speech through an HTTP TTS server exposing a
// JSON POST endpoint. Useful when the model runs as a separate process or
// on another host.
type ServerProvider struct {
	baseURL string
	format  string
	client  *http.Client
}

// ServerConfig configures the HTTP provider.
type ServerConfig struct {
	BaseURL   string // e.g. "http://127.0.0.1:8880"
	Format    string // requested output format, default "wav"
	TimeoutMs int
}

// NewServerProvider creates an HTTP TTS provider.
func NewServerProvider(cfg ServerConfig) *ServerProvider {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	format := cfg.Format
	if format == "" {
		format = "wav"
	}
	return &ServerProvider{
		baseURL: cfg.BaseURL,
		format:  format,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *ServerProvider) Name() string { return "server" }

type serverRequest struct {
	Text           string  `json:"text"`
	Model          string  `json:"model"`
	Speed          float64 `json:"speed"`
	Pitch          float64 `json:"pitch"`
	Volume         float64 `json:"volume"`
	Emotion        string  `json:"emotion"`
	Language       string  `json:"language"`
	Format         string  `json:"format"`
	ReferenceAudio string  `json:"reference_audio,omitempty"` // base64
	ReferenceText  string  `json:"reference_text,omitempty"`
}

// Synthesize posts the request and expects raw audio bytes back with a
// Content-Type matching the requested format.
func (p *ServerProvider) Synthesize(ctx context.Context, text string, profile voice.Profile) (*Result, error) {
	req := serverRequest{
		Text:     text,
		Model:    profile.Model,
		Speed:    profile.Settings.Speed,
		Pitch:    profile.Settings.Pitch,
		Volume:   profile.Settings.Volume,
		Emotion:  profile.Settings.Emotion,
		Language: profile.Settings.Language,
		Format:   p.format,
	}
	if profile.Cloned && profile.ClonedFrom != "" {
		sample, err := readSample(profile.ClonedFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: read reference sample: %v", ErrSynthesisFailed, err)
		}
		req.ReferenceAudio = base64.StdEncoding.EncodeToString(sample)
		req.ReferenceText = profile.ReferenceText
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSynthesisFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: server returned %d: %s", ErrSynthesisFailed, resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSynthesisFailed, err)
	}

	return &Result{
		Audio:     audio,
		Extension: p.format,
		MimeType:  mimeForExtension(p.format),
	}, nil
}

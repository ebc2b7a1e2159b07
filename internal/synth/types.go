// Package synth abstracts the speech-synthesis backend behind a single
// provider interface. Backends return one normalized result shape
// regardless of how they produce audio.
package synth

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// ErrSynthesisFailed wraps any backend failure; callers treat it as a
// terminal outcome for the current request and never retry automatically.
var ErrSynthesisFailed = errors.New("synthesis failed")

// Provider turns text plus a voice profile into audio bytes.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, profile voice.Profile) (*Result, error)
}

// Result is the normalized output of a synthesis call.
type Result struct {
	Audio     []byte // raw audio bytes
	Extension string // file extension without dot: "wav", "ogg"
	MimeType  string // e.g. "audio/wav", "audio/ogg"
}

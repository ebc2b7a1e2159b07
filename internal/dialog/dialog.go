// Package dialog implements the per-user conversation state machine. Every
// inbound event is dispatched over the user's current session step; the
// handler validates the input, performs at most one registry mutation, and
// decides the next step plus the reply to emit.
package dialog

import (
	"context"
	"sync"

	"github.com/nextlevelbuilder/voiceclaw/internal/session"
	"github.com/nextlevelbuilder/voiceclaw/internal/synth"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// Button is one pressable option in an inline keyboard.
type Button struct {
	Label string
	Data  string
}

// Keyboard describes the reply surface attached to an outgoing message.
// At most one of Main/Remove/Inline is set.
type Keyboard struct {
	Main   bool       // persistent main menu reply keyboard
	Remove bool       // remove the reply keyboard
	Inline [][]Button // inline keyboard rows
}

// Channel is the outbound surface the engine talks to. Sends are
// fire-and-forget with best-effort per-user ordering; only voice delivery
// reports failure because the engine surfaces it to the user.
type Channel interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard)
	Answer(ctx context.Context, callbackID, text string, alert bool)
	SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error
}

// SampleIntake buffers uploaded clone samples and probes their duration.
type SampleIntake interface {
	SaveSample(data []byte, ext string) (string, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Discard(path string)
}

// Limits are the tunable bounds the engine enforces. They can be swapped
// at runtime when the config file is reloaded.
type Limits struct {
	MaxTextLength      int
	MaxVoiceDuration   float64 // seconds
	SupportedLanguages []string
	AudioFormat        string
	SampleRate         int
}

// maxVoiceReplyBytes is Telegram's upload ceiling for bot media.
const maxVoiceReplyBytes = 50 * 1024 * 1024

// minSampleDuration is the shortest usable clone sample.
const minSampleDuration = 1.0

// Engine is the dialog state machine. One instance serves all users; the
// dispatcher guarantees events for the same user arrive serialized.
type Engine struct {
	registry *voice.Registry
	sessions *session.Store
	channel  Channel
	synth    synth.Provider
	intake   SampleIntake

	mu     sync.RWMutex
	limits Limits
}

// NewEngine wires the engine to its collaborators.
func NewEngine(registry *voice.Registry, sessions *session.Store, channel Channel, provider synth.Provider, intake SampleIntake, limits Limits) *Engine {
	if limits.MaxTextLength <= 0 {
		limits.MaxTextLength = 1000
	}
	if limits.MaxVoiceDuration <= 0 {
		limits.MaxVoiceDuration = 30
	}
	return &Engine{
		registry: registry,
		sessions: sessions,
		channel:  channel,
		synth:    provider,
		intake:   intake,
		limits:   limits,
	}
}

// SetLimits replaces the runtime limits (config hot reload).
func (e *Engine) SetLimits(limits Limits) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limits.MaxTextLength > 0 {
		e.limits.MaxTextLength = limits.MaxTextLength
	}
	if limits.MaxVoiceDuration > 0 {
		e.limits.MaxVoiceDuration = limits.MaxVoiceDuration
	}
	if len(limits.SupportedLanguages) > 0 {
		e.limits.SupportedLanguages = limits.SupportedLanguages
	}
	if limits.AudioFormat != "" {
		e.limits.AudioFormat = limits.AudioFormat
	}
	if limits.SampleRate > 0 {
		e.limits.SampleRate = limits.SampleRate
	}
}

// Limits returns a snapshot of the current limits.
func (e *Engine) Limits() Limits {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.limits
}

// abandon clears the user's session and releases any buffered sample.
func (e *Engine) abandon(userID int64) {
	step := e.sessions.Get(userID)
	if path, ok := session.BufferedSample(step); ok {
		e.intake.Discard(path)
	}
	e.sessions.Clear(userID)
}

package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Registry failure values. The dialog engine maps these to user-visible
// messages; they never escape as panics.
var (
	ErrNotFound      = errors.New("voice not found")
	ErrAlreadyExists = errors.New("voice already exists")
	ErrDefaultVoice  = errors.New("default voice cannot be deleted")
)

const timeLayout = "2006-01-02 15:04:05"

// document is the durable on-disk form of the library.
type document struct {
	Default string              `json:"default_voice"`
	Order   []string            `json:"order"`
	Voices  map[string]*Profile `json:"voices"`
}

// Registry owns the voice library. All mutations are test-and-set under a
// single mutex and written through to the store file before they are
// observable; if persistence fails the in-memory state is rolled back.
type Registry struct {
	storePath  string
	libraryDir string

	mu  sync.Mutex
	doc document
}

// NewRegistry loads the library from storePath, creating it (with the
// built-in default profile) when absent. libraryDir holds the reference
// samples of cloned voices, one subdirectory per voice.
func NewRegistry(storePath, libraryDir, model string, defaults Settings) (*Registry, error) {
	r := &Registry{
		storePath:  storePath,
		libraryDir: libraryDir,
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	if _, ok := r.doc.Voices[DefaultVoiceName]; !ok {
		r.doc.Voices[DefaultVoiceName] = &Profile{
			Name:        DefaultVoiceName,
			Model:       model,
			Settings:    defaults,
			Description: "Голос по умолчанию",
			CreatedAt:   time.Now().Format(timeLayout),
		}
		r.doc.Order = append([]string{DefaultVoiceName}, r.doc.Order...)
		r.doc.Default = DefaultVoiceName
		if err := r.save(); err != nil {
			return nil, fmt.Errorf("seed default voice: %w", err)
		}
	}
	if _, ok := r.doc.Voices[r.doc.Default]; !ok {
		// Default pointer must always reference an existing profile.
		r.doc.Default = DefaultVoiceName
	}

	return r, nil
}

// List returns the voice names in creation order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.doc.Order))
	copy(out, r.doc.Order)
	return out
}

// Get returns a copy of the named profile, or ErrNotFound.
func (r *Registry) Get(name string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.doc.Voices[name]
	if !ok {
		return Profile{}, fmt.Errorf("get %q: %w", name, ErrNotFound)
	}
	return *p, nil
}

// DefaultName returns the name of the active default voice.
func (r *Registry) DefaultName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Default
}

// Create adds a new profile. Model and settings default to deep copies of
// the current default profile's values when empty.
func (r *Registry) Create(name, model string, settings *Settings, description string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Voices[name]; ok {
		return Profile{}, fmt.Errorf("create %q: %w", name, ErrAlreadyExists)
	}

	base := r.doc.Voices[r.doc.Default]
	if model == "" {
		model = base.Model
	}
	s := base.Settings // value copy, never shared
	if settings != nil {
		s = *settings
	}
	if description == "" {
		description = fmt.Sprintf("Пользовательский голос: %s", name)
	}

	p := &Profile{
		Name:        name,
		Model:       model,
		Settings:    s,
		Description: description,
		CreatedAt:   time.Now().Format(timeLayout),
	}
	r.doc.Voices[name] = p
	r.doc.Order = append(r.doc.Order, name)

	if err := r.save(); err != nil {
		delete(r.doc.Voices, name)
		r.doc.Order = r.doc.Order[:len(r.doc.Order)-1]
		return Profile{}, err
	}

	slog.Info("voice created", "name", name, "model", model)
	return *p, nil
}

// Clone adds a new profile backed by a reference audio sample. The sample
// at samplePath is copied into the library directory; the caller keeps
// ownership of the original file. Settings are seeded from the current
// default profile. Existing names are rejected, including "default".
func (r *Registry) Clone(name, samplePath, referenceText, description string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Voices[name]; ok {
		return Profile{}, fmt.Errorf("clone %q: %w", name, ErrAlreadyExists)
	}

	voiceDir := filepath.Join(r.libraryDir, name)
	storedSample := filepath.Join(voiceDir, "reference_audio"+filepath.Ext(samplePath))
	if err := copyFile(samplePath, storedSample); err != nil {
		return Profile{}, fmt.Errorf("store reference sample for %q: %w", name, err)
	}

	base := r.doc.Voices[r.doc.Default]
	if description == "" {
		description = fmt.Sprintf("Клонированный голос: %s", name)
	}

	p := &Profile{
		Name:          name,
		Model:         base.Model,
		Settings:      base.Settings,
		Cloned:        true,
		ClonedFrom:    storedSample,
		ReferenceText: referenceText,
		Description:   description,
		CreatedAt:     time.Now().Format(timeLayout),
	}
	r.doc.Voices[name] = p
	r.doc.Order = append(r.doc.Order, name)

	if err := r.save(); err != nil {
		delete(r.doc.Voices, name)
		r.doc.Order = r.doc.Order[:len(r.doc.Order)-1]
		os.RemoveAll(voiceDir)
		return Profile{}, err
	}

	slog.Info("voice cloned", "name", name, "sample", storedSample)
	return *p, nil
}

// Delete removes a profile and its stored sample directory. The profile
// named "default" and the current default voice are refused.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Voices[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, ErrNotFound)
	}
	if name == DefaultVoiceName || name == r.doc.Default {
		return fmt.Errorf("delete %q: %w", name, ErrDefaultVoice)
	}

	removed := r.doc.Voices[name]
	idx := -1
	for i, n := range r.doc.Order {
		if n == name {
			idx = i
			break
		}
	}
	delete(r.doc.Voices, name)
	if idx >= 0 {
		r.doc.Order = append(r.doc.Order[:idx], r.doc.Order[idx+1:]...)
	}

	if err := r.save(); err != nil {
		r.doc.Voices[name] = removed
		if idx >= 0 {
			r.doc.Order = append(r.doc.Order[:idx], append([]string{name}, r.doc.Order[idx:]...)...)
		}
		return err
	}

	// Sample files go only after the durable state is committed.
	voiceDir := filepath.Join(r.libraryDir, name)
	if err := os.RemoveAll(voiceDir); err != nil {
		slog.Warn("failed to remove voice sample dir", "name", name, "error", err)
	}

	slog.Info("voice deleted", "name", name)
	return nil
}

// UpdateSettings merges the non-nil fields of s into the named profile.
func (r *Registry) UpdateSettings(name string, s PartialSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.doc.Voices[name]
	if !ok {
		return fmt.Errorf("update settings %q: %w", name, ErrNotFound)
	}

	prev := p.Settings
	if s.Speed != nil {
		p.Settings.Speed = *s.Speed
	}
	if s.Pitch != nil {
		p.Settings.Pitch = *s.Pitch
	}
	if s.Volume != nil {
		p.Settings.Volume = *s.Volume
	}
	if s.Emotion != nil {
		p.Settings.Emotion = *s.Emotion
	}
	if s.Language != nil {
		p.Settings.Language = *s.Language
	}

	if err := r.save(); err != nil {
		p.Settings = prev
		return err
	}
	return nil
}

// SetDefault marks the named profile as the active default voice.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Voices[name]; !ok {
		return fmt.Errorf("set default %q: %w", name, ErrNotFound)
	}
	if r.doc.Default == name {
		return nil // idempotent
	}

	prev := r.doc.Default
	r.doc.Default = name
	if err := r.save(); err != nil {
		r.doc.Default = prev
		return err
	}

	slog.Info("default voice changed", "name", name)
	return nil
}

// SetDescription replaces the profile's description text.
func (r *Registry) SetDescription(name, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.doc.Voices[name]
	if !ok {
		return fmt.Errorf("set description %q: %w", name, ErrNotFound)
	}

	prev := p.Description
	p.Description = text
	if err := r.save(); err != nil {
		p.Description = prev
		return err
	}
	return nil
}

// Statistics returns library totals.
func (r *Registry) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Statistics{
		Total:   len(r.doc.Voices),
		Default: r.doc.Default,
	}
	for _, p := range r.doc.Voices {
		if p.Cloned {
			stats.Cloned++
		}
	}
	stats.Standard = stats.Total - stats.Cloned
	return stats
}

// --- Persistence ---

func (r *Registry) load() error {
	r.doc = document{Voices: make(map[string]*Profile)}

	data, err := os.ReadFile(r.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read voice store: %w", err)
	}
	if err := json.Unmarshal(data, &r.doc); err != nil {
		return fmt.Errorf("parse voice store %s: %w", r.storePath, err)
	}
	if r.doc.Voices == nil {
		r.doc.Voices = make(map[string]*Profile)
	}
	return nil
}

func (r *Registry) save() error {
	dir := filepath.Dir(r.storePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal voice store: %w", err)
	}
	if err := os.WriteFile(r.storePath, data, 0600); err != nil {
		return fmt.Errorf("write voice store: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

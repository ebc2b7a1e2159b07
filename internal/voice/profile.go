// Package voice implements the voice profile library: a named set of
// synthesis parameter profiles persisted as a single JSON document.
//
// The library always contains a profile named "default". Exactly one
// profile is marked as the active default at any time; it cannot be
// deleted, and profile names are globally unique.
package voice

import "regexp"

// DefaultVoiceName is the built-in profile that always exists.
const DefaultVoiceName = "default"

// NamePattern validates user-supplied voice names.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// Parameter bounds for numeric settings.
const (
	SpeedMin  = 0.5
	SpeedMax  = 2.0
	PitchMin  = 0.5
	PitchMax  = 2.0
	VolumeMin = 0.1
	VolumeMax = 2.0

	// MaxDescriptionLen caps profile descriptions.
	MaxDescriptionLen = 200
)

// Emotions lists the supported emotion values in selection order.
var Emotions = []string{"neutral", "happy", "sad", "angry", "excited"}

// ValidEmotion reports whether e is one of the supported emotions.
func ValidEmotion(e string) bool {
	for _, v := range Emotions {
		if v == e {
			return true
		}
	}
	return false
}

// Settings are the tunable synthesis parameters of a profile.
type Settings struct {
	Speed    float64 `json:"speed"`
	Pitch    float64 `json:"pitch"`
	Volume   float64 `json:"volume"`
	Emotion  string  `json:"emotion"`
	Language string  `json:"language"`
}

// PartialSettings carries a settings merge: nil fields are left untouched.
// Range validation is the caller's job (the dialog engine validates before
// it ever reaches the registry).
type PartialSettings struct {
	Speed    *float64
	Pitch    *float64
	Volume   *float64
	Emotion  *string
	Language *string
}

// Profile is one entry in the voice library.
type Profile struct {
	Name          string   `json:"name"`
	Model         string   `json:"model"`
	Settings      Settings `json:"settings"`
	Cloned        bool     `json:"cloned"`
	ClonedFrom    string   `json:"cloned_from,omitempty"`
	ReferenceText string   `json:"reference_text,omitempty"`
	Description   string   `json:"description"`
	CreatedAt     string   `json:"created_at"` // "2006-01-02 15:04:05"
}

// Statistics summarizes the library.
type Statistics struct {
	Total    int    `json:"total"`
	Cloned   int    `json:"cloned"`
	Standard int    `json:"standard"`
	Default  string `json:"default"`
}

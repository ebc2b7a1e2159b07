// Package session tracks where each user currently is inside a multi-step
// dialog flow. State is in-memory only; it is acceptable to lose it on
// restart (a fresh interaction starts from the main menu).
package session

import "sync"

// Step is the tagged per-user dialog state. Exactly one step is active per
// user; step-scoped payload lives on the concrete type, so impossible
// combinations (awaiting a name and a description at once) cannot be
// represented.
type Step interface{ isStep() }

// Idle means no flow is in progress; the user is at the main menu.
type Idle struct{}

// AwaitingSynthesisText: the user pressed "synthesize" and owes us the text.
type AwaitingSynthesisText struct{}

// AwaitingVoiceChoice: text is buffered, waiting for a voice selection.
type AwaitingVoiceChoice struct {
	Text string
}

// AwaitingNewVoiceName: the creation flow is waiting for a profile name.
type AwaitingNewVoiceName struct{}

// AwaitingNewVoiceDescription: a name is accepted, waiting for a description.
type AwaitingNewVoiceDescription struct {
	Name string
}

// AwaitingCloneAudio: the clone flow is waiting for an audio sample.
// TargetVoice is set when cloning under an already-chosen name
// ("clone this voice"); the name and description steps are then skipped.
type AwaitingCloneAudio struct {
	TargetVoice string
}

// AwaitingCloneVoiceName: a sample is buffered on disk, waiting for a name.
type AwaitingCloneVoiceName struct {
	SamplePath string
	Duration   float64
}

// AwaitingCloneDescription: name accepted, waiting for a description.
type AwaitingCloneDescription struct {
	Name       string
	SamplePath string
}

// AwaitingParamValue: waiting for a numeric value for one voice parameter.
type AwaitingParamValue struct {
	Voice string
	Param string // "speed", "pitch" or "volume"
}

// AwaitingDescriptionEdit: waiting for replacement description text.
type AwaitingDescriptionEdit struct {
	Voice string
}

func (Idle) isStep()                        {}
func (AwaitingSynthesisText) isStep()       {}
func (AwaitingVoiceChoice) isStep()         {}
func (AwaitingNewVoiceName) isStep()        {}
func (AwaitingNewVoiceDescription) isStep() {}
func (AwaitingCloneAudio) isStep()          {}
func (AwaitingCloneVoiceName) isStep()      {}
func (AwaitingCloneDescription) isStep()    {}
func (AwaitingParamValue) isStep()          {}
func (AwaitingDescriptionEdit) isStep()     {}

// BufferedSample returns the temp sample path held by the step, if any.
// Used when a flow is abandoned and the sample must be released.
func BufferedSample(step Step) (string, bool) {
	switch s := step.(type) {
	case AwaitingCloneVoiceName:
		return s.SamplePath, true
	case AwaitingCloneDescription:
		return s.SamplePath, true
	}
	return "", false
}

// Store holds the current step per user. Safe for concurrent use across
// users; serialization of a single user's events is the dispatcher's job.
type Store struct {
	mu    sync.RWMutex
	steps map[int64]Step
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{steps: make(map[int64]Step)}
}

// Get returns the user's current step, Idle when none exists.
func (s *Store) Get(userID int64) Step {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if step, ok := s.steps[userID]; ok {
		return step
	}
	return Idle{}
}

// Set replaces the user's current step.
func (s *Store) Set(userID int64, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[userID] = step
}

// Clear resets the user back to Idle.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.steps, userID)
}

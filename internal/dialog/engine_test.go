package dialog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/voiceclaw/internal/audio"
	"github.com/nextlevelbuilder/voiceclaw/internal/session"
	"github.com/nextlevelbuilder/voiceclaw/internal/synth"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

type sentMessage struct {
	text string
	kb   Keyboard
}

type fakeChannel struct {
	sent     []sentMessage
	edited   []sentMessage
	answers  []string
	voices   [][]byte
	voiceErr error
}

func (c *fakeChannel) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) {
	c.sent = append(c.sent, sentMessage{text: text, kb: kb})
}

func (c *fakeChannel) EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) {
	c.edited = append(c.edited, sentMessage{text: text, kb: kb})
}

func (c *fakeChannel) Answer(ctx context.Context, callbackID, text string, alert bool) {
	c.answers = append(c.answers, text)
}

func (c *fakeChannel) SendVoice(ctx context.Context, chatID int64, data []byte, caption string) error {
	if c.voiceErr != nil {
		return c.voiceErr
	}
	c.voices = append(c.voices, data)
	return nil
}

func (c *fakeChannel) lastText(t *testing.T) string {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return c.sent[len(c.sent)-1].text
}

type fakeIntake struct {
	dir          string
	nextDuration float64
	probeErr     error
	saved        int
	discarded    []string
}

func (f *fakeIntake) SaveSample(data []byte, ext string) (string, error) {
	f.saved++
	path := filepath.Join(f.dir, fmt.Sprintf("sample_%d%s", f.saved, ext))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeIntake) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.nextDuration, nil
}

func (f *fakeIntake) Discard(path string) {
	f.discarded = append(f.discarded, path)
}

type fakeProvider struct {
	audio []byte
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Synthesize(ctx context.Context, text string, profile voice.Profile) (*synth.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &synth.Result{Audio: p.audio, Extension: ".wav", MimeType: "audio/wav"}, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeChannel, *fakeIntake, *fakeProvider, *voice.Registry) {
	t.Helper()
	dir := t.TempDir()
	reg, err := voice.NewRegistry(filepath.Join(dir, "voices.json"), filepath.Join(dir, "library"),
		"test-model", voice.Settings{Speed: 1.0, Pitch: 1.0, Volume: 1.0, Emotion: "neutral", Language: "ru"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	ch := &fakeChannel{}
	in := &fakeIntake{dir: t.TempDir(), nextDuration: 5}
	pr := &fakeProvider{audio: []byte("RIFFaudio")}
	eng := NewEngine(reg, session.NewStore(), ch, pr, in, Limits{
		MaxTextLength:      1000,
		MaxVoiceDuration:   30,
		SupportedLanguages: []string{"ru", "en"},
		AudioFormat:        "wav",
		SampleRate:         24000,
	})
	return eng, ch, in, pr, reg
}

const (
	testChat = int64(100)
	testUser = int64(7)
)

func TestCreateFlow_SkipDescription(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuCreate)
	eng.HandleText(ctx, testChat, testUser, "abc")
	eng.HandleText(ctx, testChat, testUser, "-")

	p, err := reg.Get("abc")
	if err != nil {
		t.Fatalf("Get(abc): %v", err)
	}
	if p.Description != "Пользовательский голос: abc" {
		t.Errorf("description = %q", p.Description)
	}
	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Errorf("step = %T, want Idle", eng.sessions.Get(testUser))
	}
}

func TestCreateFlow_RejectsBadName(t *testing.T) {
	eng, ch, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuCreate)

	for _, bad := range []string{"ab", "имя", "has space", strings.Repeat("x", 31)} {
		eng.HandleText(ctx, testChat, testUser, bad)
		if _, ok := eng.sessions.Get(testUser).(session.AwaitingNewVoiceName); !ok {
			t.Errorf("after %q: step = %T, want AwaitingNewVoiceName", bad, eng.sessions.Get(testUser))
		}
	}
	if !strings.Contains(ch.lastText(t), "Неверный формат") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
	if got := len(reg.List()); got != 1 {
		t.Errorf("registry has %d voices, want only default", got)
	}
}

func TestCreateFlow_DuplicateAtTerminalReturnsToNameStep(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	// Simulate a race: the name was free when accepted but taken by the
	// time the description arrives.
	eng.sessions.Set(testUser, session.AwaitingNewVoiceDescription{Name: "taken"})
	if _, err := reg.Create("taken", "", nil, "x"); err != nil {
		t.Fatal(err)
	}

	eng.HandleText(ctx, testChat, testUser, "-")

	if _, ok := eng.sessions.Get(testUser).(session.AwaitingNewVoiceName); !ok {
		t.Errorf("step = %T, want AwaitingNewVoiceName", eng.sessions.Get(testUser))
	}
}

func TestParamEdit_OutOfRangeRejectedWithoutMutation(t *testing.T) {
	eng, ch, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.sessions.Set(testUser, session.AwaitingParamValue{Voice: voice.DefaultVoiceName, Param: "speed"})
	eng.HandleText(ctx, testChat, testUser, "3.5")

	p, _ := reg.Get(voice.DefaultVoiceName)
	if p.Settings.Speed != 1.0 {
		t.Errorf("speed mutated to %v on rejected input", p.Settings.Speed)
	}
	if _, ok := eng.sessions.Get(testUser).(session.AwaitingParamValue); !ok {
		t.Errorf("step = %T, want AwaitingParamValue", eng.sessions.Get(testUser))
	}
	if !strings.Contains(ch.lastText(t), "от 0.5 до 2") {
		t.Errorf("last message = %q", ch.lastText(t))
	}

	eng.HandleText(ctx, testChat, testUser, "1.2")
	p, _ = reg.Get(voice.DefaultVoiceName)
	if p.Settings.Speed != 1.2 {
		t.Errorf("speed = %v, want 1.2", p.Settings.Speed)
	}
	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Errorf("step = %T, want Idle", eng.sessions.Get(testUser))
	}
}

func TestParamEdit_AcceptsCommaDecimal(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.sessions.Set(testUser, session.AwaitingParamValue{Voice: voice.DefaultVoiceName, Param: "volume"})
	eng.HandleText(ctx, testChat, testUser, "0,5")

	p, _ := reg.Get(voice.DefaultVoiceName)
	if p.Settings.Volume != 0.5 {
		t.Errorf("volume = %v, want 0.5", p.Settings.Volume)
	}
}

func TestCloneFlow_SampleTooLongRejectedBeforeAnyMutation(t *testing.T) {
	eng, ch, in, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuClone)
	in.nextDuration = 45
	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")

	if len(in.discarded) != 1 {
		t.Fatalf("discarded = %v, want the rejected sample released", in.discarded)
	}
	if _, ok := eng.sessions.Get(testUser).(session.AwaitingCloneAudio); !ok {
		t.Errorf("step = %T, want AwaitingCloneAudio", eng.sessions.Get(testUser))
	}
	if got := len(reg.List()); got != 1 {
		t.Errorf("registry has %d voices, want only default", got)
	}
	if !strings.Contains(ch.lastText(t), "слишком длинное") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
}

func TestCloneFlow_ProbeUnavailableFailsOpen(t *testing.T) {
	eng, _, in, _, _ := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuClone)
	in.probeErr = audio.ErrProbeUnavailable
	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")

	if _, ok := eng.sessions.Get(testUser).(session.AwaitingCloneVoiceName); !ok {
		t.Errorf("step = %T, want AwaitingCloneVoiceName", eng.sessions.Get(testUser))
	}
	if len(in.discarded) != 0 {
		t.Errorf("sample discarded on fail-open probe: %v", in.discarded)
	}
}

func TestAbandonReleasesBufferedSample(t *testing.T) {
	eng, _, in, _, _ := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuClone)
	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")

	step, ok := eng.sessions.Get(testUser).(session.AwaitingCloneVoiceName)
	if !ok {
		t.Fatalf("step = %T", eng.sessions.Get(testUser))
	}

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)

	found := false
	for _, p := range in.discarded {
		if p == step.SamplePath {
			found = true
		}
	}
	if !found {
		t.Errorf("buffered sample %q not released, discarded = %v", step.SamplePath, in.discarded)
	}
	if _, ok := eng.sessions.Get(testUser).(session.AwaitingSynthesisText); !ok {
		t.Errorf("step = %T, want AwaitingSynthesisText", eng.sessions.Get(testUser))
	}
}

func TestAudioOutsideCloneFlowGetsHint(t *testing.T) {
	eng, ch, in, _, _ := newTestEngine(t)
	ctx := context.Background()

	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")

	if in.saved != 0 {
		t.Errorf("sample saved outside clone flow")
	}
	if !strings.Contains(ch.lastText(t), "только при клонировании") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
}

func TestCloneFlow_FullPath(t *testing.T) {
	eng, _, in, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuClone)
	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")
	eng.HandleText(ctx, testChat, testUser, "my_clone")
	eng.HandleText(ctx, testChat, testUser, "skip")

	p, err := reg.Get("my_clone")
	if err != nil {
		t.Fatalf("Get(my_clone): %v", err)
	}
	if !p.Cloned {
		t.Error("profile not marked cloned")
	}
	if p.Description != "Клонированный голос: my_clone" {
		t.Errorf("description = %q", p.Description)
	}
	if len(in.discarded) != 1 {
		t.Errorf("temp sample not released after clone: %v", in.discarded)
	}
}

func TestSynthesis_Success(t *testing.T) {
	eng, ch, _, pr, _ := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)
	eng.HandleText(ctx, testChat, testUser, "Привет, мир")
	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "select_voice_default")

	if pr.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", pr.calls)
	}
	if len(ch.voices) != 1 {
		t.Fatalf("voice messages = %d, want 1", len(ch.voices))
	}
	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Errorf("step = %T, want Idle", eng.sessions.Get(testUser))
	}
}

func TestSynthesis_FailureDropsPendingText(t *testing.T) {
	eng, ch, _, pr, reg := newTestEngine(t)
	ctx := context.Background()
	pr.err = synth.ErrSynthesisFailed

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)
	eng.HandleText(ctx, testChat, testUser, "Привет, мир")
	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "select_voice_default")

	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Fatalf("step = %T, want Idle after failure", eng.sessions.Get(testUser))
	}
	if !strings.Contains(ch.lastText(t), "Ошибка синтеза") {
		t.Errorf("last message = %q", ch.lastText(t))
	}

	// A second select outside the choice step must not reuse the dropped
	// text; it sets the default voice instead.
	pr.err = nil
	eng.HandleCallback(ctx, testChat, testUser, 2, "cb2", "select_voice_default")
	if pr.calls != 1 {
		t.Errorf("provider calls = %d, want no retry after the failed one", pr.calls)
	}
	if reg.DefaultName() != voice.DefaultVoiceName {
		t.Errorf("default = %q", reg.DefaultName())
	}
}

func TestSynthesis_TextBounds(t *testing.T) {
	eng, ch, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	eng.SetLimits(Limits{MaxTextLength: 10})

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)

	eng.HandleText(ctx, testChat, testUser, "x")
	if !strings.Contains(ch.lastText(t), "слишком короткий") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
	eng.HandleText(ctx, testChat, testUser, strings.Repeat("ы", 11))
	if !strings.Contains(ch.lastText(t), "слишком длинный") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
	if _, ok := eng.sessions.Get(testUser).(session.AwaitingSynthesisText); !ok {
		t.Errorf("step = %T, want AwaitingSynthesisText", eng.sessions.Get(testUser))
	}

	// Rune count, not byte count: 10 Cyrillic runes must pass.
	eng.HandleText(ctx, testChat, testUser, strings.Repeat("ы", 10))
	if _, ok := eng.sessions.Get(testUser).(session.AwaitingVoiceChoice); !ok {
		t.Errorf("step = %T, want AwaitingVoiceChoice", eng.sessions.Get(testUser))
	}
}

func TestSelectVoiceOutsideSynthesisSetsDefault(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	if _, err := reg.Create("alt", "", nil, ""); err != nil {
		t.Fatal(err)
	}
	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "select_voice_alt")

	if reg.DefaultName() != "alt" {
		t.Errorf("default = %q, want alt", reg.DefaultName())
	}
}

func TestDeleteDefaultVoiceRefusedViaCallback(t *testing.T) {
	eng, ch, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "delete_voice_default")

	if _, err := reg.Get(voice.DefaultVoiceName); err != nil {
		t.Fatalf("default voice gone: %v", err)
	}
	if len(ch.answers) == 0 || !strings.Contains(ch.answers[0], "Нельзя удалить") {
		t.Errorf("answers = %v", ch.answers)
	}
}

func TestSetEmotionParsesNameWithUnderscores(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	if _, err := reg.Create("my_voice_2", "", nil, ""); err != nil {
		t.Fatal(err)
	}
	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "set_emotion_my_voice_2_happy")

	p, err := reg.Get("my_voice_2")
	if err != nil {
		t.Fatal(err)
	}
	if p.Settings.Emotion != "happy" {
		t.Errorf("emotion = %q, want happy", p.Settings.Emotion)
	}
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "set_lang_default_xx")

	p, _ := reg.Get(voice.DefaultVoiceName)
	if p.Settings.Language != "ru" {
		t.Errorf("language = %q, want ru unchanged", p.Settings.Language)
	}
}

func TestCloneThisVoiceDerivesFreeName(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)
	ctx := context.Background()

	if _, err := reg.Create("src", "", nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Create("src_clone", "", nil, ""); err != nil {
		t.Fatal(err)
	}

	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "clone_this_src")
	eng.HandleAudio(ctx, testChat, testUser, []byte("ogg"), ".ogg")

	p, err := reg.Get("src_clone2")
	if err != nil {
		t.Fatalf("derived clone missing: %v", err)
	}
	if !p.Cloned {
		t.Error("derived clone not marked cloned")
	}
	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Errorf("step = %T, want Idle", eng.sessions.Get(testUser))
	}
}

func TestOversizedAudioNotSent(t *testing.T) {
	eng, ch, _, pr, _ := newTestEngine(t)
	ctx := context.Background()
	pr.audio = make([]byte, maxVoiceReplyBytes+1)

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)
	eng.HandleText(ctx, testChat, testUser, "Привет, мир")
	eng.HandleCallback(ctx, testChat, testUser, 1, "cb1", "select_voice_default")

	if len(ch.voices) != 0 {
		t.Error("oversized audio was sent")
	}
	if !strings.Contains(ch.lastText(t), "слишком большим") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
}

func TestCommandsAbandonFlow(t *testing.T) {
	eng, ch, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	eng.HandleText(ctx, testChat, testUser, MenuSynthesize)
	eng.HandleCommand(ctx, testChat, testUser, "start", "Ivan")

	if _, ok := eng.sessions.Get(testUser).(session.Idle); !ok {
		t.Errorf("step = %T, want Idle", eng.sessions.Get(testUser))
	}
	if !strings.Contains(ch.lastText(t), "Привет, Ivan") {
		t.Errorf("last message = %q", ch.lastText(t))
	}
}

func TestVoicesMenuPagination(t *testing.T) {
	eng, _, _, _, reg := newTestEngine(t)

	for i := 0; i < 12; i++ {
		if _, err := reg.Create(fmt.Sprintf("voice_%02d", i), "", nil, ""); err != nil {
			t.Fatal(err)
		}
	}

	kb := eng.voicesMenu(0)
	if len(kb.Inline) == 0 {
		t.Fatal("empty keyboard")
	}
	// 13 voices at 8 per page is two pages; page 0 shows a forward button.
	nav := kb.Inline[len(kb.Inline)-2]
	last := nav[len(nav)-1]
	if !strings.HasPrefix(last.Data, "voices_page_") {
		t.Errorf("no forward nav button: %+v", nav)
	}

	// Out-of-range pages clamp instead of failing.
	kb = eng.voicesMenu(99)
	if len(kb.Inline) == 0 {
		t.Fatal("empty keyboard for clamped page")
	}
}

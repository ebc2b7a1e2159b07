package telegram

import (
	"strings"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/voiceclaw/internal/dialog"
)

func TestAudioAttachment(t *testing.T) {
	tests := []struct {
		name    string
		msg     *telego.Message
		wantID  string
		wantExt string
		wantOK  bool
	}{
		{
			name:    "voice note",
			msg:     &telego.Message{Voice: &telego.Voice{FileID: "v1"}},
			wantID:  "v1",
			wantExt: ".ogg",
			wantOK:  true,
		},
		{
			name:    "audio with filename",
			msg:     &telego.Message{Audio: &telego.Audio{FileID: "a1", FileName: "track.flac"}},
			wantID:  "a1",
			wantExt: ".flac",
			wantOK:  true,
		},
		{
			name:    "audio without filename",
			msg:     &telego.Message{Audio: &telego.Audio{FileID: "a2"}},
			wantID:  "a2",
			wantExt: ".mp3",
			wantOK:  true,
		},
		{
			name:    "audio document",
			msg:     &telego.Message{Document: &telego.Document{FileID: "d1", MimeType: "audio/wav", FileName: "sample.wav"}},
			wantID:  "d1",
			wantExt: ".wav",
			wantOK:  true,
		},
		{
			name:   "non-audio document",
			msg:    &telego.Message{Document: &telego.Document{FileID: "d2", MimeType: "application/pdf"}},
			wantOK: false,
		},
		{
			name:   "plain text",
			msg:    &telego.Message{Text: "hello"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ext, ok := audioAttachment(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if id != tt.wantID || ext != tt.wantExt {
				t.Errorf("got (%q, %q), want (%q, %q)", id, ext, tt.wantID, tt.wantExt)
			}
		})
	}
}

func TestReplyMarkup(t *testing.T) {
	if m := replyMarkup(dialog.Keyboard{}); m != nil {
		t.Errorf("empty keyboard rendered markup: %v", m)
	}

	m := replyMarkup(dialog.Keyboard{Main: true})
	rk, ok := m.(*telego.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("main keyboard type = %T", m)
	}
	if len(rk.Keyboard) != len(dialog.MainMenuRows) {
		t.Errorf("rows = %d, want %d", len(rk.Keyboard), len(dialog.MainMenuRows))
	}
	if !rk.ResizeKeyboard {
		t.Error("main keyboard not resized")
	}

	if _, ok := replyMarkup(dialog.Keyboard{Remove: true}).(*telego.ReplyKeyboardRemove); !ok {
		t.Error("remove keyboard not rendered")
	}

	inline := replyMarkup(dialog.Keyboard{Inline: [][]dialog.Button{
		{{Label: "A", Data: "a"}, {Label: "B", Data: "b"}},
		{{Label: "C", Data: "c"}},
	}})
	ik, ok := inline.(*telego.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("inline keyboard type = %T", inline)
	}
	if len(ik.InlineKeyboard) != 2 || len(ik.InlineKeyboard[0]) != 2 {
		t.Errorf("inline layout = %v", ik.InlineKeyboard)
	}
	if ik.InlineKeyboard[0][1].CallbackData != "b" {
		t.Errorf("callback data = %q", ik.InlineKeyboard[0][1].CallbackData)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}

	long := strings.Repeat("ы", 3000) // 2 bytes per rune
	got := truncate(long, telegramMaxMessageLen)
	if len(got) > telegramMaxMessageLen {
		t.Errorf("truncated to %d bytes, limit %d", len(got), telegramMaxMessageLen)
	}
	// Must cut on a rune boundary.
	for _, r := range got {
		if r != 'ы' {
			t.Fatalf("rune boundary broken: %q", r)
		}
	}
}

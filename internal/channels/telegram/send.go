package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/voiceclaw/internal/dialog"
)

// SendText delivers a text message with the rendered keyboard. Failures are
// logged, not returned; the engine treats text sends as fire-and-forget.
func (c *Channel) SendText(ctx context.Context, chatID int64, text string, kb dialog.Keyboard) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	msg := tu.Message(tu.ID(chatID), truncate(text, telegramMaxMessageLen))
	msg.ReplyMarkup = replyMarkup(kb)
	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		slog.Error("telegram send failed", "chat", chatID, "error", err)
	}
}

// EditText rewrites a previously sent message in place. Only inline
// keyboards can be attached to edits.
func (c *Channel) EditText(ctx context.Context, chatID int64, messageID int, text string, kb dialog.Keyboard) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	params := tu.EditMessageText(tu.ID(chatID), messageID, truncate(text, telegramMaxMessageLen))
	if markup := inlineMarkup(kb.Inline); markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		// "message is not modified" is routine when a menu refresh
		// lands on identical content.
		slog.Debug("telegram edit failed", "chat", chatID, "message", messageID, "error", err)
	}
}

// Answer acknowledges an inline keyboard press.
func (c *Channel) Answer(ctx context.Context, callbackID, text string, alert bool) {
	params := &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}
	if err := c.bot.AnswerCallbackQuery(ctx, params); err != nil {
		slog.Debug("callback answer failed", "error", err)
	}
}

// SendVoice delivers synthesized audio. Telegram treats non-Opus files as
// audio tracks, so this goes out as an audio message with a caption.
func (c *Channel) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params := &telego.SendAudioParams{
		ChatID:  tu.ID(chatID),
		Audio:   telego.InputFile{File: tu.NameReader(bytes.NewReader(audio), "speech.wav")},
		Caption: truncate(caption, telegramCaptionMaxLen),
	}
	if _, err := c.bot.SendAudio(ctx, params); err != nil {
		return fmt.Errorf("telegram: send audio: %w", err)
	}
	return nil
}

// replyMarkup renders a dialog keyboard into the Bot API form.
func replyMarkup(kb dialog.Keyboard) telego.ReplyMarkup {
	switch {
	case kb.Main:
		rows := make([][]telego.KeyboardButton, 0, len(dialog.MainMenuRows))
		for _, labels := range dialog.MainMenuRows {
			row := make([]telego.KeyboardButton, 0, len(labels))
			for _, label := range labels {
				row = append(row, tu.KeyboardButton(label))
			}
			rows = append(rows, row)
		}
		return tu.Keyboard(rows...).WithResizeKeyboard()

	case kb.Remove:
		return &telego.ReplyKeyboardRemove{RemoveKeyboard: true}

	case len(kb.Inline) > 0:
		return inlineMarkup(kb.Inline)
	}
	return nil
}

func inlineMarkup(rows [][]dialog.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Data))
		}
		out = append(out, buttons)
	}
	return tu.InlineKeyboard(out...)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

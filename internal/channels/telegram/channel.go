// Package telegram adapts the Telegram Bot API to the dialog engine: it
// converts incoming updates into bus events and renders the engine's replies
// back through the API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/voiceclaw/internal/bus"
)

// Channel is the Telegram transport. Inbound updates are published to the
// bus; outbound sends implement dialog.Channel and are rate limited to stay
// under the Bot API ceiling.
type Channel struct {
	bot     *telego.Bot
	bus     *bus.Bus
	dedupe  *bus.DedupeCache
	limiter *rate.Limiter
}

// New connects to the Bot API and verifies the token with getMe.
func New(token string, b *bus.Bus) (*Channel, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}

	return &Channel{
		bot:     bot,
		bus:     b,
		dedupe:  bus.NewDedupeCache(dedupeTTL, dedupeMaxEntries),
		limiter: rate.NewLimiter(rate.Limit(outboundRatePerSec), outboundBurst),
	}, nil
}

// Name identifies the channel in logs.
func (c *Channel) Name() string { return "telegram" }

// Run polls for updates until ctx is cancelled. Publishing to a full bus
// blocks the loop, which back-pressures long polling.
func (c *Channel) Run(ctx context.Context) error {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe: %w", err)
	}
	slog.Info("telegram channel started", "bot", me.Username)

	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("telegram: long polling: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("telegram channel stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				slog.Info("telegram update stream closed")
				return nil
			}
			if c.dedupe.IsDuplicate(fmt.Sprintf("upd_%d", update.UpdateID)) {
				slog.Debug("duplicate update dropped", "update_id", update.UpdateID)
				continue
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Channel) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

func (c *Channel) handleCallback(cq *telego.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	c.bus.PublishInbound(bus.InboundEvent{
		Kind:       bus.EventCallback,
		UserID:     cq.From.ID,
		ChatID:     cq.Message.GetChat().ID,
		CallbackID: cq.ID,
		MessageID:  cq.Message.GetMessageID(),
		Data:       cq.Data,
	})
}

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if fileID, ext, ok := audioAttachment(msg); ok {
		data, err := c.download(ctx, fileID)
		if err != nil {
			slog.Error("audio download failed", "user", userID, "error", err)
			return
		}
		c.bus.PublishInbound(bus.InboundEvent{
			Kind:     bus.EventAudio,
			UserID:   userID,
			ChatID:   chatID,
			Audio:    data,
			AudioExt: ext,
		})
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		command := strings.SplitN(text, " ", 2)[0]
		command = strings.SplitN(command, "@", 2)[0]
		c.bus.PublishInbound(bus.InboundEvent{
			Kind:   bus.EventCommand,
			UserID: userID,
			ChatID: chatID,
			Text:   strings.TrimPrefix(strings.ToLower(command), "/"),
			Data:   msg.From.FirstName,
		})
		return
	}

	c.bus.PublishInbound(bus.InboundEvent{
		Kind:   bus.EventText,
		UserID: userID,
		ChatID: chatID,
		Text:   text,
	})
}

// audioAttachment extracts the downloadable audio payload from a message.
// Voice notes, audio files and audio documents all qualify.
func audioAttachment(msg *telego.Message) (fileID, ext string, ok bool) {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID, ".ogg", true
	case msg.Audio != nil:
		return msg.Audio.FileID, extOrDefault(msg.Audio.FileName, ".mp3"), true
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "audio/"):
		return msg.Document.FileID, extOrDefault(msg.Document.FileName, ".ogg"), true
	}
	return "", "", false
}

func extOrDefault(fileName, fallback string) string {
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	return fallback
}

// download fetches a file through the Bot API.
func (c *Channel) download(ctx context.Context, fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	data, err := tu.DownloadFile(c.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file too large: %d bytes", len(data))
	}
	return data, nil
}

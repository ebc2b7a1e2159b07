package telegram

import "time"

const (
	// telegramMaxMessageLen is the safe limit for Telegram messages.
	// The hard limit is 4096; 4000 leaves room for truncation markers.
	telegramMaxMessageLen = 4000

	// telegramCaptionMaxLen is the max length for media captions.
	telegramCaptionMaxLen = 1024

	// Redelivered updates are dropped inside this window.
	dedupeTTL        = 10 * time.Minute
	dedupeMaxEntries = 4096

	// Bot API allows roughly 30 messages per second overall.
	outboundRatePerSec = 25
	outboundBurst      = 5

	downloadTimeout  = 60 * time.Second
	maxDownloadBytes = 20 * 1024 * 1024 // Bot API download ceiling
)

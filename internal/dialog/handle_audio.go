package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/voiceclaw/internal/audio"
	"github.com/nextlevelbuilder/voiceclaw/internal/session"
)

// HandleAudio processes an uploaded voice message, audio file or document.
// Audio is only meaningful while the user is in the clone flow; anywhere
// else it gets a hint and the step is unchanged.
func (e *Engine) HandleAudio(ctx context.Context, chatID, userID int64, data []byte, ext string) {
	step, ok := e.sessions.Get(userID).(session.AwaitingCloneAudio)
	if !ok {
		e.channel.SendText(ctx, chatID, "⚠️ Отправьте аудио только при клонировании голоса!", Keyboard{Main: true})
		return
	}

	path, err := e.intake.SaveSample(data, ext)
	if err != nil {
		slog.Error("sample intake failed", "user", userID, "error", err)
		e.channel.SendText(ctx, chatID, "❌ Не удалось сохранить аудио. Попробуйте еще раз.", Keyboard{})
		return
	}

	duration, err := e.intake.ProbeDuration(ctx, path)
	switch {
	case errors.Is(err, audio.ErrProbeUnavailable):
		// No probe binary on this host. Accept the sample and let the
		// synthesis backend reject it if it is unusable.
		slog.Warn("duration probe unavailable, accepting sample unchecked", "user", userID)
		duration = 0
	case err != nil:
		slog.Error("duration probe failed", "user", userID, "error", err)
		e.intake.Discard(path)
		e.channel.SendText(ctx, chatID, "❌ Не удалось обработать аудио. Отправьте другой файл.", Keyboard{})
		return
	}

	maxDur := e.Limits().MaxVoiceDuration
	if duration > 0 {
		if duration < minSampleDuration {
			e.intake.Discard(path)
			e.channel.SendText(ctx, chatID,
				fmt.Sprintf("❌ Аудио слишком короткое (%.1f сек)! Минимум %.0f секунда.", duration, minSampleDuration),
				Keyboard{})
			return
		}
		if duration > maxDur {
			e.intake.Discard(path)
			e.channel.SendText(ctx, chatID,
				fmt.Sprintf("❌ Аудио слишком длинное (%.1f сек)! Максимум %.0f секунд.", duration, maxDur),
				Keyboard{})
			return
		}
	}

	if step.TargetVoice != "" {
		e.cloneExisting(ctx, chatID, userID, step.TargetVoice, path)
		return
	}

	e.sessions.Set(userID, session.AwaitingCloneVoiceName{SamplePath: path, Duration: duration})
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ Аудио получено (%.1f сек)!\n\n➕ Введите название для клонированного голоса:\n(только буквы, цифры и подчеркивания, от 3 до 30 символов)", duration),
		Keyboard{})
}

// cloneExisting handles the "clone this voice" shortcut: the sample arrives
// with a source voice already chosen, so the clone is created right away
// under a derived free name.
func (e *Engine) cloneExisting(ctx context.Context, chatID, userID int64, source, samplePath string) {
	name := e.freeCloneName(source)

	e.channel.SendText(ctx, chatID, "🔄 Начинаю клонирование голоса...", Keyboard{})

	_, err := e.registry.Clone(name, samplePath, "",
		fmt.Sprintf("Клонированный голос: %s (на основе %s)", name, source))
	e.intake.Discard(samplePath)
	e.sessions.Clear(userID)

	if err != nil {
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ Голос '%s' клонирован успешно на основе '%s'!", name, source),
		Keyboard{Main: true})
}

// freeCloneName derives an unused name for a clone of source.
func (e *Engine) freeCloneName(source string) string {
	name := source + "_clone"
	for i := 2; ; i++ {
		if _, err := e.registry.Get(name); err != nil {
			return name
		}
		name = fmt.Sprintf("%s_clone%d", source, i)
	}
}

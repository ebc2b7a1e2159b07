package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/voiceclaw/internal/session"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// HandleCallback processes an inline keyboard press. Callback data follows
// the action_<voice> scheme; voice names may themselves contain underscores,
// so suffix values (emotion, language) are split off with LastIndex.
func (e *Engine) HandleCallback(ctx context.Context, chatID, userID int64, messageID int, callbackID, data string) {
	switch {
	case data == "noop":
		e.channel.Answer(ctx, callbackID, "", false)

	case data == "back_to_main":
		// A reply keyboard cannot be attached by editing, so this one
		// sends a fresh message.
		e.abandon(userID)
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.SendText(ctx, chatID, "🏠 Главное меню", Keyboard{Main: true})

	case data == "back_to_voices":
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.EditText(ctx, chatID, messageID, "🎭 Доступные голоса:", e.voicesMenu(0))

	case strings.HasPrefix(data, "voices_page_"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "voices_page_"))
		if err != nil {
			e.channel.Answer(ctx, callbackID, "", false)
			return
		}
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.EditText(ctx, chatID, messageID, "🎭 Доступные голоса:", e.voicesMenu(page))

	case data == "create_new_voice":
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingNewVoiceName{})
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.SendText(ctx, chatID,
			"➕ Введите название нового голоса:\n(только буквы, цифры и подчеркивания, от 3 до 30 символов)",
			Keyboard{})

	case strings.HasPrefix(data, "select_voice_"):
		e.selectVoice(ctx, chatID, userID, messageID, callbackID, strings.TrimPrefix(data, "select_voice_"))

	case strings.HasPrefix(data, "voice_menu_"):
		e.showVoiceMenu(ctx, chatID, messageID, callbackID, strings.TrimPrefix(data, "voice_menu_"))

	case strings.HasPrefix(data, "settings_"):
		e.showParams(ctx, chatID, messageID, callbackID, strings.TrimPrefix(data, "settings_"))

	case strings.HasPrefix(data, "adjust_speed_"):
		e.promptParam(ctx, chatID, userID, callbackID, strings.TrimPrefix(data, "adjust_speed_"), "speed")
	case strings.HasPrefix(data, "adjust_pitch_"):
		e.promptParam(ctx, chatID, userID, callbackID, strings.TrimPrefix(data, "adjust_pitch_"), "pitch")
	case strings.HasPrefix(data, "adjust_volume_"):
		e.promptParam(ctx, chatID, userID, callbackID, strings.TrimPrefix(data, "adjust_volume_"), "volume")

	case strings.HasPrefix(data, "adjust_emotion_"):
		name := strings.TrimPrefix(data, "adjust_emotion_")
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.EditText(ctx, chatID, messageID,
			fmt.Sprintf("🎭 Выберите эмоцию для голоса '%s':", name), emotionMenu(name))

	case strings.HasPrefix(data, "adjust_language_"):
		name := strings.TrimPrefix(data, "adjust_language_")
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.EditText(ctx, chatID, messageID,
			fmt.Sprintf("🌐 Выберите язык для голоса '%s':", name), e.languageMenu(name))

	case strings.HasPrefix(data, "set_emotion_"):
		e.setEmotion(ctx, chatID, messageID, callbackID, strings.TrimPrefix(data, "set_emotion_"))

	case strings.HasPrefix(data, "set_lang_"):
		e.setLanguage(ctx, chatID, messageID, callbackID, strings.TrimPrefix(data, "set_lang_"))

	case strings.HasPrefix(data, "save_settings_"):
		name := strings.TrimPrefix(data, "save_settings_")
		e.channel.Answer(ctx, callbackID, "✅ Настройки сохранены", false)
		e.showVoiceMenu(ctx, chatID, messageID, "", name)

	case strings.HasPrefix(data, "edit_desc_"):
		name := strings.TrimPrefix(data, "edit_desc_")
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingDescriptionEdit{Voice: name})
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("📝 Введите новое описание для голоса '%s':\n(максимум %d символов)", name, voice.MaxDescriptionLen),
			Keyboard{})

	case strings.HasPrefix(data, "clone_this_"):
		name := strings.TrimPrefix(data, "clone_this_")
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingCloneAudio{TargetVoice: name})
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("🎤 Отправьте аудио образец для клонирования голоса '%s'\n(от %.0f до %.0f секунд)",
				name, minSampleDuration, e.Limits().MaxVoiceDuration),
			Keyboard{})

	case strings.HasPrefix(data, "delete_confirm_"):
		name := strings.TrimPrefix(data, "delete_confirm_")
		e.channel.Answer(ctx, callbackID, "", false)
		e.channel.EditText(ctx, chatID, messageID,
			fmt.Sprintf("🗑️ Удалить голос '%s'?\n\nЭто действие нельзя отменить. Образец аудио также будет удален.", name),
			deleteConfirmMenu(name))

	case strings.HasPrefix(data, "delete_voice_"):
		e.deleteVoice(ctx, chatID, messageID, callbackID, strings.TrimPrefix(data, "delete_voice_"))

	default:
		slog.Warn("unknown callback data", "data", data)
		e.channel.Answer(ctx, callbackID, "", false)
	}
}

// selectVoice forks on the current step: during voice choice it triggers
// synthesis with the buffered text, otherwise it makes the voice the default
// and opens its menu.
func (e *Engine) selectVoice(ctx context.Context, chatID, userID int64, messageID int, callbackID, name string) {
	if step, ok := e.sessions.Get(userID).(session.AwaitingVoiceChoice); ok {
		e.channel.Answer(ctx, callbackID, "", false)
		e.synthesize(ctx, chatID, userID, name, step.Text)
		return
	}

	if err := e.registry.SetDefault(name); err != nil {
		e.channel.Answer(ctx, callbackID, registryErrorText(err), true)
		e.channel.EditText(ctx, chatID, messageID, "🎭 Доступные голоса:", e.voicesMenu(0))
		return
	}
	e.channel.Answer(ctx, callbackID, fmt.Sprintf("🎤 Активный голос: %s", name), false)
	e.showVoiceMenu(ctx, chatID, messageID, "", name)
}

// synthesize runs the TTS provider on the buffered text and delivers the
// audio. The pending text is dropped whether or not synthesis succeeds, so a
// retry always starts from a fresh prompt.
func (e *Engine) synthesize(ctx context.Context, chatID, userID int64, name, text string) {
	defer e.sessions.Clear(userID)

	profile, err := e.registry.Get(name)
	if err != nil {
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}

	e.channel.SendText(ctx, chatID, "⏳ Генерирую речь...", Keyboard{})

	result, err := e.synth.Synthesize(ctx, text, profile)
	if err != nil {
		slog.Error("synthesis failed", "user", userID, "voice", name, "error", err)
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}
	if len(result.Audio) > maxVoiceReplyBytes {
		slog.Error("synthesized audio over upload limit", "user", userID, "bytes", len(result.Audio))
		e.channel.SendText(ctx, chatID, "❌ Аудио получилось слишком большим для отправки. Сократите текст.", Keyboard{Main: true})
		return
	}

	caption := fmt.Sprintf("🎤 Голос: %s", name)
	if err := e.channel.SendVoice(ctx, chatID, result.Audio, caption); err != nil {
		slog.Error("voice delivery failed", "user", userID, "error", err)
		e.channel.SendText(ctx, chatID, "❌ Не удалось отправить аудио. Попробуйте еще раз.", Keyboard{Main: true})
		return
	}
	e.channel.SendText(ctx, chatID, "✅ Готово!", Keyboard{Main: true})
}

// showVoiceMenu renders the per-voice detail view. callbackID may be empty
// when the press was already answered.
func (e *Engine) showVoiceMenu(ctx context.Context, chatID int64, messageID int, callbackID, name string) {
	if callbackID != "" {
		e.channel.Answer(ctx, callbackID, "", false)
	}

	p, err := e.registry.Get(name)
	if err != nil {
		e.channel.EditText(ctx, chatID, messageID, registryErrorText(err), e.voicesMenu(0))
		return
	}

	kind := "Стандартный"
	if p.Cloned {
		kind = "Клонированный"
	}
	active := ""
	if name == e.registry.DefaultName() {
		active = " (активный)"
	}
	text := fmt.Sprintf(
		"🎭 Голос: %s%s\n\nТип: %s\nМодель: %s\nОписание: %s\nСоздан: %s\n\n"+
			"Параметры:\n⚡ Скорость: %v\n🎵 Тон: %v\n🔊 Громкость: %v\n🎭 Эмоция: %s\n🌐 Язык: %s",
		name, active, kind, p.Model, p.Description, p.CreatedAt,
		p.Settings.Speed, p.Settings.Pitch, p.Settings.Volume, p.Settings.Emotion, p.Settings.Language,
	)
	e.channel.EditText(ctx, chatID, messageID, text, e.voiceSettingsMenu(name))
}

func (e *Engine) showParams(ctx context.Context, chatID int64, messageID int, callbackID, name string) {
	e.channel.Answer(ctx, callbackID, "", false)

	kb, err := e.paramsMenu(name)
	if err != nil {
		e.channel.EditText(ctx, chatID, messageID, registryErrorText(err), e.voicesMenu(0))
		return
	}
	e.channel.EditText(ctx, chatID, messageID,
		fmt.Sprintf("🎚️ Настройка параметров голоса '%s'\n\nНажмите на параметр для изменения:", name), kb)
}

// promptParam starts a numeric edit. The value arrives as the next text
// message.
func (e *Engine) promptParam(ctx context.Context, chatID, userID int64, callbackID, name, param string) {
	min, max, ok := paramBound(param)
	if !ok {
		e.channel.Answer(ctx, callbackID, "", false)
		return
	}

	e.abandon(userID)
	e.sessions.Set(userID, session.AwaitingParamValue{Voice: name, Param: param})
	e.channel.Answer(ctx, callbackID, "", false)
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✏️ Введите значение параметра '%s' для голоса '%s':\n(от %v до %v)",
			paramTitles[param], name, min, max),
		Keyboard{})
}

// setEmotion applies a suffix-encoded emotion value. Voice names contain
// underscores, the emotion value never does.
func (e *Engine) setEmotion(ctx context.Context, chatID int64, messageID int, callbackID, payload string) {
	i := strings.LastIndex(payload, "_")
	if i <= 0 {
		e.channel.Answer(ctx, callbackID, "", false)
		return
	}
	name, emotion := payload[:i], payload[i+1:]

	if !voice.ValidEmotion(emotion) {
		e.channel.Answer(ctx, callbackID, "❌ Неизвестная эмоция", true)
		return
	}
	if err := e.registry.UpdateSettings(name, voice.PartialSettings{Emotion: &emotion}); err != nil {
		e.channel.Answer(ctx, callbackID, registryErrorText(err), true)
		return
	}
	e.channel.Answer(ctx, callbackID, fmt.Sprintf("🎭 Эмоция: %s", emotion), false)
	e.showParamsQuiet(ctx, chatID, messageID, name)
}

func (e *Engine) setLanguage(ctx context.Context, chatID int64, messageID int, callbackID, payload string) {
	i := strings.LastIndex(payload, "_")
	if i <= 0 {
		e.channel.Answer(ctx, callbackID, "", false)
		return
	}
	name, lang := payload[:i], payload[i+1:]

	supported := false
	for _, l := range e.Limits().SupportedLanguages {
		if l == lang {
			supported = true
			break
		}
	}
	if !supported {
		e.channel.Answer(ctx, callbackID, "❌ Язык не поддерживается", true)
		return
	}
	if err := e.registry.UpdateSettings(name, voice.PartialSettings{Language: &lang}); err != nil {
		e.channel.Answer(ctx, callbackID, registryErrorText(err), true)
		return
	}
	e.channel.Answer(ctx, callbackID, fmt.Sprintf("🌐 Язык: %s", lang), false)
	e.showParamsQuiet(ctx, chatID, messageID, name)
}

func (e *Engine) showParamsQuiet(ctx context.Context, chatID int64, messageID int, name string) {
	kb, err := e.paramsMenu(name)
	if err != nil {
		e.channel.EditText(ctx, chatID, messageID, registryErrorText(err), e.voicesMenu(0))
		return
	}
	e.channel.EditText(ctx, chatID, messageID,
		fmt.Sprintf("🎚️ Настройка параметров голоса '%s'\n\nНажмите на параметр для изменения:", name), kb)
}

func (e *Engine) deleteVoice(ctx context.Context, chatID int64, messageID int, callbackID, name string) {
	if err := e.registry.Delete(name); err != nil {
		e.channel.Answer(ctx, callbackID, registryErrorText(err), true)
		e.showVoiceMenu(ctx, chatID, messageID, "", name)
		return
	}
	e.channel.Answer(ctx, callbackID, fmt.Sprintf("🗑️ Голос '%s' удален", name), false)
	e.channel.EditText(ctx, chatID, messageID, "🎭 Доступные голоса:", e.voicesMenu(0))
}

package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/voiceclaw/internal/session"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// skipTokens substitute a generated default description.
var skipTokens = map[string]bool{
	"skip":       true,
	"-":          true,
	"пропустить": true,
}

// HandleCommand processes slash commands. Commands behave like the main
// menu: they abandon any flow in progress.
func (e *Engine) HandleCommand(ctx context.Context, chatID, userID int64, command, firstName string) {
	e.abandon(userID)

	switch command {
	case "start":
		e.channel.SendText(ctx, chatID, e.welcomeText(firstName), Keyboard{Main: true})
	case "help":
		e.channel.SendText(ctx, chatID, e.helpText(), Keyboard{Main: true})
	default:
		e.channel.SendText(ctx, chatID, "Неизвестная команда. Используйте меню ниже.", Keyboard{Main: true})
	}
}

// HandleText processes a plain text message according to the user's
// current step. Main menu button presses abandon the current flow first.
func (e *Engine) HandleText(ctx context.Context, chatID, userID int64, text string) {
	text = strings.TrimSpace(text)

	if e.handleMenuLabel(ctx, chatID, userID, text) {
		return
	}

	switch step := e.sessions.Get(userID).(type) {
	case session.AwaitingSynthesisText, session.AwaitingVoiceChoice:
		// New text replaces any previously buffered text.
		e.acceptSynthesisText(ctx, chatID, userID, text)

	case session.AwaitingNewVoiceName:
		if !e.acceptVoiceName(ctx, chatID, text) {
			return // re-prompted, stay in this step
		}
		e.sessions.Set(userID, session.AwaitingNewVoiceDescription{Name: text})
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("📝 Введите описание для голоса '%s':\n(опционально, можно пропустить: skip или -)", text),
			Keyboard{})

	case session.AwaitingNewVoiceDescription:
		e.finishCreate(ctx, chatID, userID, step, text)

	case session.AwaitingCloneAudio:
		e.channel.SendText(ctx, chatID, "🎤 Жду аудио файл для клонирования. Отправьте голосовое сообщение или аудио файл.", Keyboard{})

	case session.AwaitingCloneVoiceName:
		if !e.acceptVoiceName(ctx, chatID, text) {
			return
		}
		e.sessions.Set(userID, session.AwaitingCloneDescription{Name: text, SamplePath: step.SamplePath})
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("📝 Введите описание для клонированного голоса '%s':\n(опционально, можно пропустить: skip или -)", text),
			Keyboard{})

	case session.AwaitingCloneDescription:
		e.finishClone(ctx, chatID, userID, step, text)

	case session.AwaitingParamValue:
		e.acceptParamValue(ctx, chatID, userID, step, text)

	case session.AwaitingDescriptionEdit:
		e.finishDescriptionEdit(ctx, chatID, userID, step, text)

	default: // Idle
		e.channel.SendText(ctx, chatID,
			"💬 Хотите озвучить этот текст? Нажмите '"+MenuSynthesize+"' в меню!",
			Keyboard{Main: true})
	}
}

// handleMenuLabel starts a fresh flow when the text is a main menu button.
func (e *Engine) handleMenuLabel(ctx context.Context, chatID, userID int64, text string) bool {
	switch text {
	case MenuSynthesize:
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingSynthesisText{})
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("💬 Отправьте текст для озвучки (до %d символов):", e.Limits().MaxTextLength),
			Keyboard{})

	case MenuMyVoices:
		e.abandon(userID)
		e.channel.SendText(ctx, chatID, "🎭 Доступные голоса:", e.voicesMenu(0))

	case MenuCreate:
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingNewVoiceName{})
		e.channel.SendText(ctx, chatID,
			"➕ Введите название нового голоса:\n(только буквы, цифры и подчеркивания, от 3 до 30 символов)",
			Keyboard{Remove: true})

	case MenuClone:
		e.abandon(userID)
		e.sessions.Set(userID, session.AwaitingCloneAudio{})
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("🎤 Отправьте аудио файл для клонирования голоса\n\n"+
				"Требования:\n"+
				"- Формат: голосовое сообщение, аудио файл или документ\n"+
				"- Длительность: от 1 до %.0f секунд (оптимально 3-10)\n"+
				"- Качество: четкая речь без шумов", e.Limits().MaxVoiceDuration),
			Keyboard{Remove: true})

	case MenuSettings:
		e.abandon(userID)
		e.channel.SendText(ctx, chatID, e.globalSettingsText(), globalSettingsMenu())

	case MenuLibrary:
		e.abandon(userID)
		e.channel.SendText(ctx, chatID, e.libraryText(), e.voicesMenu(0))

	case MenuHelp:
		e.abandon(userID)
		e.channel.SendText(ctx, chatID, e.helpText(), Keyboard{Main: true})

	case MenuStats:
		e.abandon(userID)
		e.channel.SendText(ctx, chatID, e.statsText(), Keyboard{Main: true})

	default:
		return false
	}
	return true
}

// acceptSynthesisText validates text bounds and moves to voice choice.
// Violations re-prompt without leaving the current step.
func (e *Engine) acceptSynthesisText(ctx context.Context, chatID, userID int64, text string) {
	maxLen := e.Limits().MaxTextLength
	if len([]rune(text)) > maxLen {
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("❌ Текст слишком длинный! Максимум %d символов.", maxLen), Keyboard{})
		return
	}
	if len([]rune(text)) < 2 {
		e.channel.SendText(ctx, chatID, "❌ Текст слишком короткий! Минимум 2 символа.", Keyboard{})
		return
	}

	e.sessions.Set(userID, session.AwaitingVoiceChoice{Text: text})
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("🎤 Выберите голос для синтеза:\n(Текст: %d символов)", len([]rune(text))),
		e.voicesMenu(0))
}

// acceptVoiceName validates the name pattern and uniqueness. On failure
// the user is re-prompted and the step is unchanged.
func (e *Engine) acceptVoiceName(ctx context.Context, chatID int64, name string) bool {
	if !voice.NamePattern.MatchString(name) {
		e.channel.SendText(ctx, chatID,
			"❌ Неверный формат названия!\nИспользуйте только буквы, цифры и подчеркивания.\nМинимум 3 символа, максимум 30.",
			Keyboard{})
		return false
	}
	if _, err := e.registry.Get(name); err == nil {
		e.channel.SendText(ctx, chatID, "❌ Голос с таким названием уже существует!", Keyboard{})
		return false
	}
	return true
}

// resolveDescription applies skip tokens and the length cap. ok=false
// means the user was re-prompted and the step must not change.
func (e *Engine) resolveDescription(ctx context.Context, chatID int64, text, generated string) (string, bool) {
	if skipTokens[strings.ToLower(text)] {
		return generated, true
	}
	if len([]rune(text)) > voice.MaxDescriptionLen {
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("❌ Описание слишком длинное! Максимум %d символов.", voice.MaxDescriptionLen),
			Keyboard{})
		return "", false
	}
	return text, true
}

func (e *Engine) finishCreate(ctx context.Context, chatID, userID int64, step session.AwaitingNewVoiceDescription, text string) {
	description, ok := e.resolveDescription(ctx, chatID, text,
		fmt.Sprintf("Пользовательский голос: %s", step.Name))
	if !ok {
		return
	}

	if _, err := e.registry.Create(step.Name, "", nil, description); err != nil {
		e.sessions.Set(userID, session.AwaitingNewVoiceName{})
		e.channel.SendText(ctx, chatID, registryErrorText(err)+"\nВведите другое название:", Keyboard{})
		return
	}

	e.sessions.Clear(userID)
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ Голос '%s' создан успешно!\n\nТеперь вы можете настроить параметры этого голоса.", step.Name),
		e.voiceSettingsMenu(step.Name))
}

func (e *Engine) finishClone(ctx context.Context, chatID, userID int64, step session.AwaitingCloneDescription, text string) {
	description, ok := e.resolveDescription(ctx, chatID, text,
		fmt.Sprintf("Клонированный голос: %s", step.Name))
	if !ok {
		return
	}

	e.channel.SendText(ctx, chatID, "🔄 Начинаю клонирование голоса...", Keyboard{})

	_, err := e.registry.Clone(step.Name, step.SamplePath, "", description)
	e.intake.Discard(step.SamplePath)
	e.sessions.Clear(userID)

	if err != nil {
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ Голос '%s' клонирован успешно!\n\nТеперь вы можете использовать этот голос для синтеза речи.", step.Name),
		Keyboard{Main: true})
}

// paramBound returns the inclusive range for a numeric parameter.
func paramBound(param string) (min, max float64, ok bool) {
	switch param {
	case "speed":
		return voice.SpeedMin, voice.SpeedMax, true
	case "pitch":
		return voice.PitchMin, voice.PitchMax, true
	case "volume":
		return voice.VolumeMin, voice.VolumeMax, true
	}
	return 0, 0, false
}

var paramTitles = map[string]string{
	"speed":  "Скорость",
	"pitch":  "Тон",
	"volume": "Громкость",
}

// acceptParamValue parses and bounds-checks a numeric edit. Out-of-range
// or unparsable input re-prompts without leaving the step; the registry is
// only touched with a valid value.
func (e *Engine) acceptParamValue(ctx context.Context, chatID, userID int64, step session.AwaitingParamValue, text string) {
	min, max, ok := paramBound(step.Param)
	if !ok {
		e.sessions.Clear(userID)
		e.channel.SendText(ctx, chatID, "❌ Неизвестный параметр.", Keyboard{Main: true})
		return
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		e.channel.SendText(ctx, chatID, "❌ Введите корректное число!", Keyboard{})
		return
	}
	if value < min || value > max {
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("❌ %s должна быть от %v до %v", paramTitles[step.Param], min, max), Keyboard{})
		return
	}

	partial := voice.PartialSettings{}
	switch step.Param {
	case "speed":
		partial.Speed = &value
	case "pitch":
		partial.Pitch = &value
	case "volume":
		partial.Volume = &value
	}

	if err := e.registry.UpdateSettings(step.Voice, partial); err != nil {
		e.sessions.Clear(userID)
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}

	e.sessions.Clear(userID)
	kb, err := e.paramsMenu(step.Voice)
	if err != nil {
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ %s установлена на %v", paramTitles[step.Param], value), kb)
}

func (e *Engine) finishDescriptionEdit(ctx context.Context, chatID, userID int64, step session.AwaitingDescriptionEdit, text string) {
	if len([]rune(text)) > voice.MaxDescriptionLen {
		e.channel.SendText(ctx, chatID,
			fmt.Sprintf("❌ Описание слишком длинное! Максимум %d символов.", voice.MaxDescriptionLen),
			Keyboard{})
		return
	}

	if err := e.registry.SetDescription(step.Voice, text); err != nil {
		e.sessions.Clear(userID)
		e.channel.SendText(ctx, chatID, registryErrorText(err), Keyboard{Main: true})
		return
	}

	e.sessions.Clear(userID)
	e.channel.SendText(ctx, chatID,
		fmt.Sprintf("✅ Описание для голоса '%s' обновлено!", step.Voice),
		e.voiceSettingsMenu(step.Voice))
}

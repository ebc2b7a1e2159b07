package dialog

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// Main menu button labels. The channel renders them as a persistent reply
// keyboard; pressing one arrives as a plain text message.
const (
	MenuSynthesize = "🎵 Синтезировать речь"
	MenuMyVoices   = "🎭 Мои голоса"
	MenuCreate     = "➕ Создать голос"
	MenuClone      = "🎤 Клонировать голос"
	MenuSettings   = "⚙️ Настройки"
	MenuLibrary    = "📚 Библиотека"
	MenuHelp       = "❓ Помощь"
	MenuStats      = "📊 Статистика"
)

// MainMenuRows is the reply keyboard layout, exported for the channel
// adapter to render.
var MainMenuRows = [][]string{
	{MenuSynthesize, MenuMyVoices},
	{MenuCreate, MenuClone},
	{MenuSettings, MenuLibrary},
	{MenuHelp, MenuStats},
}

// voicesPerPage is the page size of the voice picker keyboard.
const voicesPerPage = 8

// voicesMenu builds the paginated voice picker. The active default voice
// is marked with a microphone.
func (e *Engine) voicesMenu(page int) Keyboard {
	names := e.registry.List()
	defaultName := e.registry.DefaultName()

	totalPages := (len(names) + voicesPerPage - 1) / voicesPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * voicesPerPage
	end := start + voicesPerPage
	if end > len(names) {
		end = len(names)
	}

	var rows [][]Button
	for i := start; i < end; i += 2 {
		row := []Button{voiceButton(names[i], defaultName)}
		if i+1 < end {
			row = append(row, voiceButton(names[i+1], defaultName))
		}
		rows = append(rows, row)
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, Button{Label: "⬅️ Назад", Data: fmt.Sprintf("voices_page_%d", page-1)})
	}
	nav = append(nav, Button{Label: fmt.Sprintf("%d/%d", page+1, totalPages), Data: "noop"})
	if page < totalPages-1 {
		nav = append(nav, Button{Label: "Вперед ➡️", Data: fmt.Sprintf("voices_page_%d", page+1)})
	}
	rows = append(rows, nav)

	rows = append(rows, []Button{
		{Label: "🆕 Создать новый", Data: "create_new_voice"},
		{Label: "🏠 Главное меню", Data: "back_to_main"},
	})

	return Keyboard{Inline: rows}
}

func voiceButton(name, defaultName string) Button {
	marker := "👤"
	if name == defaultName {
		marker = "🎤"
	}
	return Button{Label: marker + " " + name, Data: "select_voice_" + name}
}

// voiceSettingsMenu is the per-voice action menu.
func (e *Engine) voiceSettingsMenu(name string) Keyboard {
	rows := [][]Button{
		{{Label: "🎚️ Настроить параметры", Data: "settings_" + name}},
		{{Label: "📝 Изменить описание", Data: "edit_desc_" + name}},
	}

	p, err := e.registry.Get(name)
	if err == nil && !p.Cloned && name != voice.DefaultVoiceName {
		rows = append(rows, []Button{{Label: "🎤 Клонировать этот голос", Data: "clone_this_" + name}})
	}
	if name != voice.DefaultVoiceName {
		rows = append(rows, []Button{{Label: "🗑️ Удалить голос", Data: "delete_confirm_" + name}})
	}
	rows = append(rows, []Button{{Label: "◀️ Назад к голосам", Data: "back_to_voices"}})

	return Keyboard{Inline: rows}
}

// paramsMenu shows the current settings with one button per parameter.
func (e *Engine) paramsMenu(name string) (Keyboard, error) {
	p, err := e.registry.Get(name)
	if err != nil {
		return Keyboard{}, err
	}
	s := p.Settings

	rows := [][]Button{
		{{Label: fmt.Sprintf("⚡ Скорость: %v", s.Speed), Data: "adjust_speed_" + name}},
		{{Label: fmt.Sprintf("🎵 Тон: %v", s.Pitch), Data: "adjust_pitch_" + name}},
		{{Label: fmt.Sprintf("🔊 Громкость: %v", s.Volume), Data: "adjust_volume_" + name}},
		{{Label: fmt.Sprintf("🎭 Эмоция: %s", s.Emotion), Data: "adjust_emotion_" + name}},
		{{Label: fmt.Sprintf("🌐 Язык: %s", s.Language), Data: "adjust_language_" + name}},
		{{Label: "✅ Сохранить", Data: "save_settings_" + name}},
		{{Label: "◀️ Назад", Data: "voice_menu_" + name}},
	}
	return Keyboard{Inline: rows}, nil
}

var emotionLabels = map[string]string{
	"neutral": "😐 Neutral",
	"happy":   "😊 Happy",
	"sad":     "😢 Sad",
	"angry":   "😠 Angry",
	"excited": "🤩 Excited",
}

// emotionMenu lists the fixed emotion set, one per row.
func emotionMenu(name string) Keyboard {
	var rows [][]Button
	for _, em := range voice.Emotions {
		rows = append(rows, []Button{{Label: emotionLabels[em], Data: "set_emotion_" + name + "_" + em}})
	}
	rows = append(rows, []Button{{Label: "◀️ Назад", Data: "settings_" + name}})
	return Keyboard{Inline: rows}
}

var languageLabels = map[string]string{
	"ru": "🇷🇺 Русский",
	"en": "🇬🇧 English",
	"zh": "🇨🇳 中文",
	"ja": "🇯🇵 日本語",
	"ko": "🇰🇷 한국어",
	"de": "🇩🇪 Deutsch",
	"fr": "🇫🇷 Français",
	"es": "🇪🇸 Español",
	"it": "🇮🇹 Italiano",
	"pt": "🇵🇹 Português",
}

// languageMenu lists the configured languages two per row.
func (e *Engine) languageMenu(name string) Keyboard {
	langs := e.Limits().SupportedLanguages

	var rows [][]Button
	for i := 0; i < len(langs); i += 2 {
		row := []Button{languageButton(name, langs[i])}
		if i+1 < len(langs) {
			row = append(row, languageButton(name, langs[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Label: "◀️ Назад", Data: "settings_" + name}})
	return Keyboard{Inline: rows}
}

func languageButton(name, lang string) Button {
	label, ok := languageLabels[lang]
	if !ok {
		label = lang
	}
	return Button{Label: label, Data: "set_lang_" + name + "_" + lang}
}

// deleteConfirmMenu asks for explicit confirmation before a delete.
func deleteConfirmMenu(name string) Keyboard {
	return Keyboard{Inline: [][]Button{
		{{Label: "✅ Да, удалить", Data: "delete_voice_" + name}},
		{{Label: "❌ Нет, отмена", Data: "voice_menu_" + name}},
	}}
}

// globalSettingsMenu is the top-level settings view keyboard.
func globalSettingsMenu() Keyboard {
	return Keyboard{Inline: [][]Button{
		{{Label: "🎤 Активный голос", Data: "back_to_voices"}},
		{{Label: "🏠 Главное меню", Data: "back_to_main"}},
	}}
}

// --- View texts ---

func (e *Engine) welcomeText(firstName string) string {
	stats := e.registry.Statistics()
	if firstName == "" {
		firstName = "друг"
	}
	return fmt.Sprintf(
		"🤖 Добро пожаловать в VoiceClaw!\n\n"+
			"👋 Привет, %s!\n\n"+
			"🎵 Синтез речи на %d языках\n"+
			"🎭 Клонирование голосов по короткому образцу\n"+
			"📚 Библиотека голосов (%d голосов)\n"+
			"⚙️ Гибкие настройки параметров\n\n"+
			"Используйте меню ниже для начала!\n\n"+
			"Статистика: всего %d, клонированных %d, стандартных %d, активный: %s",
		firstName, len(e.Limits().SupportedLanguages),
		stats.Total, stats.Total, stats.Cloned, stats.Standard, stats.Default,
	)
}

func (e *Engine) helpText() string {
	lim := e.Limits()
	return fmt.Sprintf(
		"📚 ИНСТРУКЦИЯ\n\n"+
			"🎵 Синтезировать речь — отправьте текст (до %d символов), выберите голос, получите аудио.\n\n"+
			"🎭 Мои голоса — просмотр, выбор активного голоса и настройка параметров.\n\n"+
			"➕ Создать голос — новый голос на базе модели с собственными параметрами.\n\n"+
			"🎤 Клонировать голос — отправьте аудио (до %.0f секунд, оптимально 3-10), затем название.\n\n"+
			"⚙️ Настройки — скорость и тон 0.5-2.0, громкость 0.1-2.0, эмоции: %s.\n\n"+
			"📚 Библиотека — все созданные и клонированные голоса.",
		lim.MaxTextLength, lim.MaxVoiceDuration, strings.Join(voice.Emotions, ", "),
	)
}

func (e *Engine) statsText() string {
	stats := e.registry.Statistics()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 СТАТИСТИКА\n\nВсего: %d\nКлонированных: %d\nСтандартных: %d\nАктивный: %s\n\nДоступные голоса:\n",
		stats.Total, stats.Cloned, stats.Standard, stats.Default)

	for _, name := range e.registry.List() {
		p, err := e.registry.Get(name)
		if err != nil {
			continue
		}
		marker := "👤"
		if name == stats.Default {
			marker = "🎤"
		}
		clone := ""
		if p.Cloned {
			clone = " (клон)"
		}
		fmt.Fprintf(&b, "\n%s %s%s\n   Язык: %s\n   Создан: %s\n", marker, name, clone, p.Settings.Language, p.CreatedAt)
	}
	return b.String()
}

func (e *Engine) libraryText() string {
	stats := e.registry.Statistics()

	var b strings.Builder
	fmt.Fprintf(&b, "📚 БИБЛИОТЕКА ГОЛОСОВ\n\nВсего: %d | Клонированных: %d | Стандартных: %d\n\n",
		stats.Total, stats.Cloned, stats.Standard)

	for _, name := range e.registry.List() {
		p, err := e.registry.Get(name)
		if err != nil {
			continue
		}
		marker := "👤"
		if name == stats.Default {
			marker = "🎤"
		}
		clone := ""
		if p.Cloned {
			clone = " (клонированный)"
		}
		fmt.Fprintf(&b, "%s %s%s\n   Модель: %s\n   Язык: %s\n   Описание: %s\n   Создан: %s\n\n",
			marker, name, clone, p.Model, p.Settings.Language, p.Description, p.CreatedAt)
	}
	return b.String()
}

func (e *Engine) globalSettingsText() string {
	lim := e.Limits()
	return fmt.Sprintf(
		"⚙️ ГЛОБАЛЬНЫЕ НАСТРОЙКИ\n\n"+
			"Активный голос: %s\n"+
			"Макс. длительность для клонирования: %.0f сек\n"+
			"Макс. длина текста: %d символов\n"+
			"Формат аудио: %s\n"+
			"Частота дискретизации: %d Hz\n\n"+
			"Доступные языки: %s",
		e.registry.DefaultName(), lim.MaxVoiceDuration, lim.MaxTextLength,
		strings.ToUpper(lim.AudioFormat), lim.SampleRate,
		strings.Join(lim.SupportedLanguages, ", "),
	)
}

package dialog

import (
	"errors"

	"github.com/nextlevelbuilder/voiceclaw/internal/synth"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

// registryErrorText maps registry and synthesis failures to user-visible
// messages. Unknown errors get a generic message; the detail goes to the log
// at the call site.
func registryErrorText(err error) string {
	switch {
	case errors.Is(err, voice.ErrNotFound):
		return "❌ Голос не найден!"
	case errors.Is(err, voice.ErrAlreadyExists):
		return "❌ Голос с таким названием уже существует!"
	case errors.Is(err, voice.ErrDefaultVoice):
		return "❌ Нельзя удалить активный голос по умолчанию!"
	case errors.Is(err, synth.ErrSynthesisFailed):
		return "❌ Ошибка синтеза речи. Попробуйте позже."
	default:
		return "❌ Произошла ошибка. Попробуйте еще раз."
	}
}

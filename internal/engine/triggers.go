package engine

import (
	"strings"
	"unicode/utf8"
)

// Phrases that request a drawing. The combined user+assistant text is
// matched so the directive also fires when the assistant offers to draw.
var imageTriggers = []string{
	"quiero una imagen",
	"haz un dibujo",
	"puedes hacer un dibujo",
	"dibuja",
	"pinta",
	"ilustra",
	"quiero ver una imagen",
	"haz una imagen",
}

// fallbackImagePrompt is used when the user's message is too short to serve
// as a prompt on its own.
const fallbackImagePrompt = "dibujo sugerido basado en el elemento clave mencionado en la conversación (animal, lugar, situación...)"

// DetectImagePrompt returns the image-generation prompt when the exchange
// asks for a drawing, or the empty string when it does not.
func DetectImagePrompt(userText, assistantText string) string {
	combined := strings.ToLower(userText + " " + assistantText)
	for _, trigger := range imageTriggers {
		if strings.Contains(combined, trigger) {
			if utf8.RuneCountInString(userText) > 10 {
				return userText
			}
			return fallbackImagePrompt
		}
	}
	return ""
}

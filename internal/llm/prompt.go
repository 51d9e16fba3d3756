package llm

import (
	"strings"

	"github.com/joseph-ayodele/voice-orders/constants"
)

// TranscriptionPrompt primes speech-to-text for supply orders.
const TranscriptionPrompt = "Transkribiere die Bestellung von Lebensmitteln und Waren für ein Hotel oder Restaurant. Achte auf Mengenangaben und Artikelnamen."

// TranscriptionLanguage is the language hint passed with every recording.
const TranscriptionLanguage = "de"

// maxOrderChars bounds the order text sent to the model.
const maxOrderChars = 4000

// BuildSystemPrompt describes the extraction task and the reply shape.
func BuildSystemPrompt() string {
	parts := []string{
		"Du bist ein Assistent für die Verarbeitung von Bestellungen in Hotels und Restaurants.",
		"Extrahiere aus der gesprochenen Bestellung alle Artikel mit Mengen und Einheiten.",
		`Gib das Ergebnis als JSON-Objekt {"items": [...]} zurück, jedes Element mit "articleName" (Name des Artikels), "quantity" (Anzahl als Zahl) und "unit" (Einheit, z.B. ` +
			strings.Join(constants.CommonUnits, ", ") + ").",
		"Behalte die Reihenfolge der Bestellung bei.",
		"Wenn keine Artikel erkennbar sind, gib eine leere Liste zurück.",
	}
	return strings.Join(parts, "\n")
}

// BuildUserPrompt wraps the order text.
func BuildUserPrompt(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxOrderChars {
		text = string(r[:maxOrderChars])
	}
	return "Bestellung: " + text
}

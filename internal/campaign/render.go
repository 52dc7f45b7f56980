package campaign

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// Emoji pool for the {{emoji}} placeholder.
var emojis = []string{"🙂", "👍", "🙌", "✨", "🚀", "💬", "🔥"}

// Greeting returns a time-of-day greeting for the {{greeting}} placeholder.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 5:
		return "Hello"
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Render produces the outbound text for one contact: a random variant with
// per-contact placeholders substituted. Random variant choice and the
// {{emoji}} placeholder exist to vary message bodies across a bulk send.
func Render(content store.CampaignContent, contact store.Contact, now time.Time, rng *rand.Rand) string {
	if len(content.Variants) == 0 {
		return ""
	}
	text := content.Variants[0]
	if len(content.Variants) > 1 {
		text = content.Variants[rng.IntN(len(content.Variants))]
	}

	name := strings.TrimSpace(contact.Name)
	if name == "" {
		name = "there"
	}

	text = strings.ReplaceAll(text, "{{name}}", name)
	text = strings.ReplaceAll(text, "{{greeting}}", Greeting(now))
	text = strings.ReplaceAll(text, "{{emoji}}", emojis[rng.IntN(len(emojis))])
	return text
}

// Package webhook turns raw gateway webhook payloads into canonical
// bus.InboundEvent values. Payload shapes vary across gateway versions
// (field names move and nest differently), so normalization probes a list of
// known paths per field instead of binding to one schema. Payloads that
// cannot be resolved to a (channel, contact) pair, or that originate from a
// group context, are dropped silently.
package webhook

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
)

// Paths probed per field, in priority order. Earlier entries are newer
// gateway versions.
var (
	channelPaths = []string{"channel_id", "instance", "instanceId", "session"}
	contactPaths = []string{"data.key.remoteJid", "key.remoteJid", "sender.id", "from"}
	fromMePaths  = []string{"data.key.fromMe", "key.fromMe", "fromMe", "from_me"}
	textPaths    = []string{
		"data.message.conversation",
		"data.message.extendedTextMessage.text",
		"message.conversation",
		"message.extendedTextMessage.text",
		"message.text",
		"text",
		"body",
	}
	audioPaths = []string{
		"data.message.audioMessage.url",
		"message.audioMessage.url",
		"audio.url",
	}
	imagePaths = []string{
		"data.message.imageMessage.url",
		"message.imageMessage.url",
		"image.url",
	}
	captionPaths = []string{
		"data.message.imageMessage.caption",
		"message.imageMessage.caption",
		"caption",
	}
	eventKindPaths = []string{"event", "type"}
)

// Event kinds that carry conversational content. Everything else
// (connection updates, presence, delivery receipts) is dropped.
var messageEvents = map[string]bool{
	"":                 true, // legacy payloads carry no event field
	"message":          true,
	"messages.upsert":  true,
	"message.received": true,
}

func first(root gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// Normalize extracts the canonical event from a raw webhook body.
// ok=false means the payload should be dropped.
func Normalize(raw []byte) (ev bus.InboundEvent, ok bool) {
	if !gjson.ValidBytes(raw) {
		return ev, false
	}
	root := gjson.ParseBytes(raw)

	if kind := first(root, eventKindPaths).String(); !messageEvents[kind] {
		return ev, false
	}

	ev.ChannelID = first(root, channelPaths).String()

	jid := first(root, contactPaths).String()
	if jid == "" {
		return ev, false
	}
	// Group chats are out of scope for the engagement pipeline.
	if strings.HasSuffix(jid, "@g.us") || root.Get("isGroup").Bool() || root.Get("data.isGroup").Bool() {
		ev.IsGroup = true
		return ev, false
	}
	ev.ContactID = stripJIDSuffix(jid)
	if ev.ContactID == "" {
		return ev, false
	}

	ev.FromOperator = first(root, fromMePaths).Bool()
	ev.Text = first(root, textPaths).String()

	if u := first(root, audioPaths).String(); u != "" {
		ev.MediaRef = u
		ev.Kind = "audio"
	} else if u := first(root, imagePaths).String(); u != "" {
		ev.MediaRef = u
		ev.Kind = "image"
		if ev.Text == "" {
			ev.Text = first(root, captionPaths).String()
		}
	} else {
		ev.Kind = "text"
	}

	// A payload with neither text nor media carries nothing to act on.
	if ev.Text == "" && ev.MediaRef == "" {
		return ev, false
	}

	return ev, true
}

// stripJIDSuffix removes gateway address suffixes like "@s.whatsapp.net".
func stripJIDSuffix(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

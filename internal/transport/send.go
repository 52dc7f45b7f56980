package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Presence states accepted by the gateway.
const (
	PresenceComposing = "composing"
	PresencePaused    = "paused"
)

// SendText delivers a plain text message to a contact.
func (c *Client) SendText(ctx context.Context, token, to, text string) error {
	if err := c.throttle(ctx, token); err != nil {
		return err
	}
	_, err := c.call(ctx, http.MethodPost, token, "/messages/text", map[string]string{
		"to":   to,
		"text": text,
	})
	return err
}

// SendMedia delivers a media message (image, video, audio, document) with an
// optional caption.
func (c *Client) SendMedia(ctx context.Context, token, to, kind, mediaURL, caption string) error {
	if err := c.throttle(ctx, token); err != nil {
		return err
	}
	_, err := c.call(ctx, http.MethodPost, token, "/messages/media", map[string]string{
		"to":      to,
		"kind":    kind,
		"url":     mediaURL,
		"caption": caption,
	})
	return err
}

// SetPresence updates the channel's typing indicator for a chat. Presence is
// a realism cue only; failures are returned but callers ignore them.
func (c *Client) SetPresence(ctx context.Context, token, to, state string) error {
	_, err := c.call(ctx, http.MethodPost, token, "/chats/"+url.PathEscape(to)+"/presence", map[string]string{
		"state": state,
	})
	return err
}

// CheckRecipient verifies that a contact exists on the channel. A negative
// or ambiguous answer maps to ErrRecipientUnknown.
func (c *Client) CheckRecipient(ctx context.Context, token, contact string) error {
	resp, err := c.call(ctx, http.MethodGet, token, "/contacts/"+url.PathEscape(contact)+"/exists", nil)
	if err != nil {
		return err
	}
	if resp.Exists == nil || !*resp.Exists {
		return fmt.Errorf("%w: %s", ErrRecipientUnknown, contact)
	}
	return nil
}

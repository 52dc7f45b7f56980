package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HistoryMessage is one recent message returned by the gateway.
type HistoryMessage struct {
	FromMe    bool      `json:"from_me"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Connect asks the gateway to (re)connect the channel identity.
func (c *Client) Connect(ctx context.Context, token string) error {
	_, err := c.call(ctx, http.MethodPost, token, "/channel/connect", nil)
	return err
}

// Status returns the gateway connection state for the channel.
func (c *Client) Status(ctx context.Context, token string) (string, error) {
	resp, err := c.call(ctx, http.MethodGet, token, "/channel/status", nil)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// PairingQR fetches the current pairing QR payload, if the channel is
// awaiting pairing.
func (c *Client) PairingQR(ctx context.Context, token string) (string, error) {
	resp, err := c.call(ctx, http.MethodGet, token, "/channel/qr", nil)
	if err != nil {
		return "", err
	}
	return resp.QR, nil
}

// FetchHistory returns up to limit recent messages for a chat, oldest first.
func (c *Client) FetchHistory(ctx context.Context, token, chat string, limit int) ([]HistoryMessage, error) {
	path := "/chats/" + url.PathEscape(chat) + "/history?limit=" + strconv.Itoa(limit)
	resp, err := c.call(ctx, http.MethodGet, token, path, nil)
	if err != nil {
		return nil, err
	}

	var out []HistoryMessage
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			return nil, fmt.Errorf("%w: decode history: %v", ErrTransport, err)
		}
	}
	return out, nil
}

// GetWebhook returns the webhook URL currently configured on the gateway.
func (c *Client) GetWebhook(ctx context.Context, token string) (string, error) {
	resp, err := c.call(ctx, http.MethodGet, token, "/webhook", nil)
	if err != nil {
		return "", err
	}
	var cfg struct {
		URL string `json:"url"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &cfg); err != nil {
			return "", fmt.Errorf("%w: decode webhook config: %v", ErrTransport, err)
		}
	}
	return cfg.URL, nil
}

// SetWebhook points the gateway's event delivery at url.
func (c *Client) SetWebhook(ctx context.Context, token, webhookURL string) error {
	_, err := c.call(ctx, http.MethodPost, token, "/webhook", map[string]string{
		"url": webhookURL,
	})
	return err
}

// DeleteWebhook removes the gateway's webhook configuration.
func (c *Client) DeleteWebhook(ctx context.Context, token string) error {
	_, err := c.call(ctx, http.MethodDelete, token, "/webhook", nil)
	return err
}

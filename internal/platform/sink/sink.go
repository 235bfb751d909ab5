// Package sink delivers rendered conversation views to the messaging
// gateway that fronts the bot.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craftline/shopbot/internal/conversation"
)

// ErrSinkUnavailable is returned when the gateway rejects or cannot take a
// delivery.
var ErrSinkUnavailable = errors.New("sink: gateway unavailable")

const defaultSendTimeout = 10 * time.Second

// HTTPSink posts rendered views to a gateway endpoint as JSON. The gateway
// owns the actual chat transport; the bot process never talks to a chat
// platform directly.
type HTTPSink struct {
	endpoint string
	token    string
	client   *http.Client
}

// Options adjust HTTPSink construction.
type Options struct {
	// Client overrides the HTTP client, mainly for tests. When nil a
	// client with a delivery timeout is used.
	Client *http.Client
}

// NewHTTPSink builds a sink posting to the given endpoint. The token, when
// set, is sent as a bearer credential.
func NewHTTPSink(endpoint, token string, opts Options) (*HTTPSink, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("sink: endpoint is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}
	return &HTTPSink{endpoint: endpoint, token: strings.TrimSpace(token), client: client}, nil
}

type outboundItem struct {
	Label    string `json:"label"`
	Locked   bool   `json:"locked,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

type outboundView struct {
	UserID    string         `json:"userId"`
	Text      string         `json:"text"`
	MediaURL  string         `json:"mediaUrl,omitempty"`
	MediaKind string         `json:"mediaKind,omitempty"`
	Items     []outboundItem `json:"items,omitempty"`
}

// Send posts the view to the gateway. Non-2xx responses surface as
// ErrSinkUnavailable.
func (s *HTTPSink) Send(ctx context.Context, userID string, view conversation.View) error {
	if s == nil || s.client == nil {
		return ErrSinkUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("sink: user id is required")
	}

	payload := outboundView{
		UserID:    userID,
		Text:      view.Text,
		MediaURL:  view.MediaURL,
		MediaKind: string(view.MediaKind),
		Items:     make([]outboundItem, 0, len(view.Items)),
	}
	for _, item := range view.Items {
		payload.Items = append(payload.Items, outboundItem{
			Label:    item.Label,
			Locked:   item.Locked,
			Selected: item.Selected,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sink: encode view: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: gateway replied %d", ErrSinkUnavailable, resp.StatusCode)
	}
	return nil
}

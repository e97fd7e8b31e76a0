package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatNotifier posts messages to a chat gateway webhook as
// {"chat_id": recipient, "text": text}.
type ChatNotifier struct {
	url    string
	client *http.Client
}

func NewChatNotifier(url string, timeout time.Duration) *ChatNotifier {
	return &ChatNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *ChatNotifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": msg.Recipient,
		"text":    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", msg.ID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("chat gateway returned %d", resp.StatusCode)
	}
	return nil
}

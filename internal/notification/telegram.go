package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"carshare/internal/service"
)

const defaultBaseURL = "https://api.telegram.org"

// TelegramChannel delivers messages through the Telegram bot API.
// The address is the recipient's chat id.
type TelegramChannel struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// Ensure the interface is satisfied.
var _ service.NotificationChannel = (*TelegramChannel)(nil)

// NewTelegramChannel creates a new TelegramChannel. baseURL is overridable
// for tests; empty means the public Telegram API.
func NewTelegramChannel(token, baseURL string, logger *zap.Logger) *TelegramChannel {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &TelegramChannel{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Send posts a sendMessage call for the given chat id.
func (c *TelegramChannel) Send(ctx context.Context, address, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)

	form := url.Values{}
	form.Set("chat_id", address)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram: send message failed: %s", resp.Status)
	}

	c.logger.Debug("telegram message sent", zap.String("chat_id", address))
	return nil
}

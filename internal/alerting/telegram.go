package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"lookout/internal/watchlist"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers alerts to a Telegram chat, as a photo with an
// HTML caption when the frame is available and as a plain message
// otherwise.
type TelegramNotifier struct {
	apiBase    string
	httpClient *http.Client

	mu       sync.RWMutex
	botToken string
	chatID   string
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegramNotifier creates a notifier for the given bot and chat.
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		apiBase:    telegramAPIBase,
		botToken:   config.BotToken,
		chatID:     config.ChatID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// UpdateConfig swaps the bot credentials at runtime.
func (tn *TelegramNotifier) UpdateConfig(config TelegramConfig) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.botToken = config.BotToken
	tn.chatID = config.ChatID
}

// Notify sends the alert to the configured chat.
func (tn *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	tn.mu.RLock()
	token, chatID := tn.botToken, tn.chatID
	tn.mu.RUnlock()

	if token == "" || chatID == "" {
		return fmt.Errorf("telegram bot token or chat ID not configured")
	}

	caption := formatCaption(alert.Decision)
	if len(alert.Frame) > 0 {
		return tn.sendPhoto(ctx, token, chatID, alert.Frame, caption)
	}
	return tn.sendMessage(ctx, token, chatID, caption)
}

func formatCaption(decision Decision) string {
	zoneName, _ := decision.Time.Zone()
	timestamp := fmt.Sprintf("%s %s", decision.Time.Format("2 Jan 2006, 15:04:05"), zoneName)

	if decision.Mode == watchlist.Whitelist {
		return fmt.Sprintf(
			"🚨 <b>Unrecognized Person!</b>\n\n"+
				"❓ No trusted face matched\n"+
				"📊 Best similarity: %.3f\n"+
				"🕐 Time: %s",
			decision.Score,
			timestamp,
		)
	}

	return fmt.Sprintf(
		"🚨 <b>Watchlist Match!</b>\n\n"+
			"👤 Identified: %s\n"+
			"📊 Similarity: %.3f\n"+
			"🕐 Time: %s",
		decision.Name,
		decision.Score,
		timestamp,
	)
}

// sendMessage posts a text alert via sendMessage.
func (tn *TelegramNotifier) sendMessage(ctx context.Context, token, chatID, text string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", tn.apiBase, token)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return tn.do(req)
}

// sendPhoto posts the frame with caption via multipart form data.
func (tn *TelegramNotifier) sendPhoto(ctx context.Context, token, chatID string, photoData []byte, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("failed to write caption field: %w", err)
	}
	if err := writer.WriteField("parse_mode", "HTML"); err != nil {
		return fmt.Errorf("failed to write parse_mode field: %w", err)
	}

	part, err := writer.CreateFormFile("photo", "alert_frame.jpg")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(photoData); err != nil {
		return fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", tn.apiBase, token)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return tn.do(req)
}

func (tn *TelegramNotifier) do(req *http.Request) error {
	resp, err := tn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram API error %d: %s", tgResp.ErrorCode, tgResp.Description)
	}
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)

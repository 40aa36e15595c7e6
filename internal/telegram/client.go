package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkorchagin/shareup/internal/dialog"
	"github.com/dkorchagin/shareup/internal/logging"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	pollTimeout    = 50 * time.Second
	retryDelay     = 3 * time.Second
)

// Client talks to the Bot API over HTTPS with long polling.
type Client struct {
	token   string
	baseURL string
	httpc   *http.Client
	log     logging.Logger
	offset  int64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func NewClient(token string, log logging.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		// long poll holds the request open for pollTimeout, leave headroom
		httpc: &http.Client{Timeout: pollTimeout + 15*time.Second},
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type wireUser struct {
	ID int64 `json:"id"`
}

type wireChat struct {
	ID int64 `json:"id"`
}

type wireMessage struct {
	MessageID int       `json:"message_id"`
	From      *wireUser `json:"from"`
	Chat      wireChat  `json:"chat"`
	Text      string    `json:"text"`
}

type wireCallback struct {
	ID      string       `json:"id"`
	From    wireUser     `json:"from"`
	Message *wireMessage `json:"message"`
	Data    string       `json:"data"`
}

type wireUpdate struct {
	UpdateID      int64         `json:"update_id"`
	Message       *wireMessage  `json:"message"`
	CallbackQuery *wireCallback `json:"callback_query"`
}

type wireKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type wireReplyMarkup struct {
	InlineKeyboard [][]wireKeyboardButton `json:"inline_keyboard"`
}

func markupFor(kb dialog.Keyboard) *wireReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	m := &wireReplyMarkup{InlineKeyboard: make([][]wireKeyboardButton, 0, len(kb))}
	for _, row := range kb {
		wr := make([]wireKeyboardButton, 0, len(row))
		for _, b := range row {
			wr = append(wr, wireKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		m.InlineKeyboard = append(m.InlineKeyboard, wr)
	}
	return m
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: encode %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: %s: read response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("telegram: %s: decode response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram: %s: api error: %s", method, api.Description)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("telegram: %s: decode result: %w", method, err)
		}
	}
	return nil
}

// Updates starts long polling and streams operator inputs until ctx ends.
func (c *Client) Updates(ctx context.Context) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			updates, err := c.getUpdates(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn(ctx, "poll failed, retrying", "error", err)
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, wu := range updates {
				if wu.UpdateID >= c.offset {
					c.offset = wu.UpdateID + 1
				}
				u, ok := convert(wu)
				if !ok {
					continue
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *Client) getUpdates(ctx context.Context) ([]wireUpdate, error) {
	payload := map[string]any{
		"offset":          c.offset,
		"timeout":         int(pollTimeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []wireUpdate
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func convert(wu wireUpdate) (Update, bool) {
	switch {
	case wu.CallbackQuery != nil:
		cb := wu.CallbackQuery
		u := Update{
			From:         cb.From.ID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
		}
		if cb.Message != nil {
			u.ChatID = cb.Message.Chat.ID
			u.CallbackMessageID = cb.Message.MessageID
		}
		return u, true
	case wu.Message != nil && wu.Message.From != nil:
		m := wu.Message
		return Update{
			From:      m.From.ID,
			ChatID:    m.Chat.ID,
			MessageID: m.MessageID,
			Text:      m.Text,
		}, true
	default:
		return Update{}, false
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb dialog.Keyboard) (int, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if m := markupFor(kb); m != nil {
		payload["reply_markup"] = m
	}
	var msg wireMessage
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb dialog.Keyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if m := markupFor(kb); m != nil {
		payload["reply_markup"] = m
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = alert
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// TelegramGateway delivers messages through the Telegram Bot API
type TelegramGateway struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

func NewTelegramGateway(token string) *TelegramGateway {
	return &TelegramGateway{
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("https://api.telegram.org/bot%s", token),
	}
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type sendMessageRequest struct {
	ChatID      int64           `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup json.RawMessage `json:"reply_markup,omitempty"`
}

type editMessageTextRequest struct {
	ChatID      int64           `json:"chat_id"`
	MessageID   int64           `json:"message_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup json.RawMessage `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

func (g *TelegramGateway) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("telegram: %s", apiResp.Description)
	}

	return apiResp.Result, nil
}

func markupFor(msg RenderedMessage) (json.RawMessage, error) {
	if len(msg.Buttons) == 0 {
		return nil, nil
	}

	rows := make([][]inlineKeyboardButton, 0, len(msg.Buttons))
	for _, row := range msg.Buttons {
		buttons := make([]inlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineKeyboardButton{Text: b.Label, CallbackData: b.Data})
		}
		rows = append(rows, buttons)
	}

	return json.Marshal(inlineKeyboardMarkup{InlineKeyboard: rows})
}

// Deliver sends the message and returns the Telegram message ID as the
// reference for later edits.
func (g *TelegramGateway) Deliver(ctx context.Context, chatID string, msg RenderedMessage) (string, error) {
	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	markup, err := markupFor(msg)
	if err != nil {
		return "", err
	}

	result, err := g.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chat,
		Text:        msg.Text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return "", err
	}

	var sent messageResult
	if err := json.Unmarshal(result, &sent); err != nil {
		return "", fmt.Errorf("unmarshal result: %w", err)
	}

	return strconv.FormatInt(sent.MessageID, 10), nil
}

// Edit rewrites a previously delivered message in place.
func (g *TelegramGateway) Edit(ctx context.Context, chatID, messageRef string, msg RenderedMessage) error {
	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	messageID, err := strconv.ParseInt(messageRef, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message ref %q: %w", messageRef, err)
	}

	markup, err := markupFor(msg)
	if err != nil {
		return err
	}

	_, err = g.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:      chat,
		MessageID:   messageID,
		Text:        msg.Text,
		ReplyMarkup: markup,
	})
	return err
}

// Package telegram posts and edits device status messages in a Telegram chat
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateResult is the outcome of an edit that reached the messaging service
type UpdateResult int

const (
	// Updated means the message now shows the new text
	Updated UpdateResult = iota
	// Rejected means the message can no longer be edited and a new one is needed
	Rejected
)

func (r UpdateResult) String() string {
	if r == Rejected {
		return "rejected"
	}
	return "updated"
}

// Edit failures that mean the referenced message is gone or frozen
var rejectionMarkers = []string{
	"message to edit not found",
	"message can't be edited",
	"message_id_invalid",
	"message not found",
}

// Channel sends into a single chat through the Bot API
type Channel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New authenticates the bot token against the API
func New(token string, chatID int64, timeout time.Duration) (*Channel, error) {
	return NewWithEndpoint(token, chatID, timeout, tgbotapi.APIEndpoint)
}

// NewWithEndpoint is New against a custom API endpoint format
func NewWithEndpoint(token string, chatID int64, timeout time.Duration, endpoint string) (*Channel, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init failed: %w", err)
	}
	return &Channel{bot: bot, chatID: chatID}, nil
}

// Send posts a new message and returns its reference
func (c *Channel) Send(ctx context.Context, text string) (string, error) {
	msg, err := c.do(ctx, tgbotapi.NewMessage(c.chatID, text))
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}

// Update edits a previously sent message. Rejection is a result, not an error.
func (c *Channel) Update(ctx context.Context, ref, text string) (UpdateResult, error) {
	id, err := strconv.Atoi(ref)
	if err != nil || id <= 0 {
		return Rejected, nil
	}
	_, err = c.do(ctx, tgbotapi.NewEditMessageText(c.chatID, id, text))
	return classifyEditError(err)
}

// do runs a Bot API call. The call is not abandoned when ctx expires: the
// HTTP client timeout bounds it, so a message that does get posted is always
// reported back to the caller.
func (c *Channel) do(ctx context.Context, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.Message{}, err
	}
	return c.bot.Send(chattable)
}

func classifyEditError(err error) (UpdateResult, error) {
	if err == nil {
		return Updated, nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		desc := strings.ToLower(apiErr.Message)
		if strings.Contains(desc, "message is not modified") {
			return Updated, nil
		}
		for _, marker := range rejectionMarkers {
			if strings.Contains(desc, marker) {
				return Rejected, nil
			}
		}
	}
	return Updated, fmt.Errorf("telegram edit: %w", err)
}

// Package alert delivers recommendation-flip notifications via the Telegram
// Bot API. Messages use MarkdownV2 formatting and are retried with linear
// backoff on delivery failure.
package alert

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/solarops-dev/solarops/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram client for the given bot token and chat.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendFlip notifies that a site's recommendation changed.
func (c *Client) SendFlip(siteName, previous string, decision models.Decision) error {
	message := formatFlipMessage(siteName, previous, decision)

	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatFlipMessage builds the MarkdownV2 notification body.
func formatFlipMessage(siteName, previous string, d models.Decision) string {
	message := "*Cleaning Recommendation Changed*\n\n"
	message += fmt.Sprintf("Site: %s\n", escapeMarkdownV2(siteName))
	message += fmt.Sprintf("%s %s %s\n\n",
		escapeMarkdownV2(previous), escapeMarkdownV2("->"), escapeMarkdownV2(d.Recommendation))

	if d.Recommendation == models.RecommendClean && d.CleaningDate != nil {
		dateStr := escapeMarkdownV2(d.CleaningDate.Format("2006-01-02"))
		message += fmt.Sprintf("Clean on: *%s*\n", dateStr)
		message += fmt.Sprintf("Recovered energy: %s kWh\n", escapeMarkdownV2(fmt.Sprintf("%.0f", d.AdditionalEnergyKWh)))
		message += fmt.Sprintf("Net gain: %s\n", escapeMarkdownV2(fmt.Sprintf("%.0f", d.NetEconomicGain)))
		message += fmt.Sprintf("Water: %s L\n", escapeMarkdownV2(fmt.Sprintf("%.0f", d.WaterUsedLiters)))
	}
	for _, reason := range d.Explanation.Reasons {
		message += fmt.Sprintf("%s %s\n", escapeMarkdownV2("-"), escapeMarkdownV2(reason))
	}

	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}

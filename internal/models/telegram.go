package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a wake or shutdown notification.
type TelegramMessage struct {
	Action    string // "wake" or "shutdown"
	Success   bool
	Changed   bool
	Checked   bool
	MAC       string
	IP        string
	Host      string
	StartTime time.Time
	Duration  time.Duration

	// Error info (if failed).
	ErrorMessage string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}

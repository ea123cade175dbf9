package notify

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ksInsandji/pensezy-edition/internal/observability"
)

// Sender delivers one text message to a Telegram chat.
type Sender interface {
	Send(chatID int64, text string) error
}

type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot}, nil
}

// API exposes the client so the command bot can poll with the same token.
func (t *Telegram) API() *tgbotapi.BotAPI { return t.bot }

func (t *Telegram) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return err
}

// System errors are 5xx, 429 and timeouts. Telegram validation errors (chat not found,
// blocked bot, bad request) are the recipient's problem and are not reported to Sentry.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "504", "timeout"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Nop drops every message; used when BOT_TOKEN is empty.
type Nop struct{}

func (Nop) Send(int64, string) error { return nil }

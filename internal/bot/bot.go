// Package bot answers the few commands users send to the notification bot. Its only job
// is telling people the chat id to link in their profile (PUT /api/me/telegram).
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func New(api *tgbotapi.BotAPI, log *zap.Logger) *Bot {
	return &Bot{api: api, log: log}
}

// Run polls updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info("telegram bot polling", zap.String("username", b.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil {
				continue
			}
			text, ok := Reply(upd.Message.Text, upd.Message.Chat.ID)
			if !ok {
				continue
			}
			if _, err := b.api.Send(tgbotapi.NewMessage(upd.Message.Chat.ID, text)); err != nil {
				b.log.Warn("bot reply failed", zap.Int64("chat_id", upd.Message.Chat.ID), zap.Error(err))
			}
		}
	}
}

// Reply returns the answer to a command; false means the message is ignored.
func Reply(text string, chatID int64) (string, bool) {
	cmd := strings.Fields(text)
	if len(cmd) == 0 {
		return "", false
	}
	// "/start@PensezyBot" in groups
	name, _, _ := strings.Cut(cmd[0], "@")
	switch name {
	case "/start":
		return fmt.Sprintf("Bienvenue sur Pensezy Mémoires 🎓\n\n"+
			"Votre identifiant Telegram est %d. Renseignez-le dans votre profil pour recevoir "+
			"vos convocations et rappels de soutenance.", chatID), true
	case "/id":
		return fmt.Sprintf("%d", chatID), true
	case "/aide", "/help":
		return "Commandes: /start, /id", true
	}
	return "", false
}

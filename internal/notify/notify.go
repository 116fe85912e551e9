// Package notify tells the raffle operator about completed and refused draws.
package notify

import (
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/logger"
)

// Notifier delivers a short text message to the operator.
type Notifier interface {
	Notify(text string)
}

// Nop discards messages.
type Nop struct{}

func (Nop) Notify(string) {}

// Telegram sends messages to an operator chat. When no chat id is configured
// the first chat that sends /start to the bot becomes the operator chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID atomic.Int64
}

// NewTelegram authorises the bot and starts listening for /start when chatID is zero.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logger.Infof("Telegram bot authorised as %s", bot.Self.UserName)

	t := &Telegram{bot: bot}
	t.chatID.Store(chatID)
	if chatID == 0 {
		go t.listenForStart()
	}
	return t, nil
}

func (t *Telegram) listenForStart() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range t.bot.GetUpdatesChan(u) {
		if update.Message == nil || !update.Message.IsCommand() || update.Message.Command() != "start" {
			continue
		}
		id := update.Message.Chat.ID
		t.chatID.Store(id)
		logger.Infof("Operator chat registered: %d", id)
		t.Notify(fmt.Sprintf("Operator chat registered (%d). Draw results will be posted here.", id))
	}
}

// Notify sends text, logging instead when no operator chat is known yet.
func (t *Telegram) Notify(text string) {
	id := t.chatID.Load()
	if id == 0 {
		logger.Warningf("No operator chat registered, dropping notification: %s", text)
		return
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		logger.Errorf("Error sending notification: %v", err)
	}
}

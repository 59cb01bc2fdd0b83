package notify

import (
	"context"
	"log"

	"github.com/pvzzle/hotwallet/internal/bus"

	tgbot "github.com/go-telegram/bot"
)

// Telegram шлёт оператору уведомления о подтверждённых переводах.
type Telegram struct {
	bot    *tgbot.Bot
	chatID int64

	notifyCh <-chan bus.Notification
}

func NewTelegram(b *tgbot.Bot, chatID int64, notifyCh <-chan bus.Notification) *Telegram {
	return &Telegram{
		bot:      b,
		chatID:   chatID,
		notifyCh: notifyCh,
	}
}

func (t *Telegram) StartNotifyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-t.notifyCh:
			_, err := t.bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: t.chatID,
				Text:   n.Text,
			})
			if err != nil {
				log.Printf("[tg] send notify error: %v", err)
			}
		}
	}
}

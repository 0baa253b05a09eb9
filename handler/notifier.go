package handler

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier delivers fired reminders. It shares the outbound rate limit
// with chat replies.
type TelegramNotifier struct {
	bot     sender
	limiter *rate.Limiter
}

func NewTelegramNotifier(bot sender, limiter *rate.Limiter) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, limiter: limiter}
}

func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "send rate limit")
	}
	if _, err := n.bot.Send(tele.ChatID(chatID), text); err != nil {
		return errors.Wrapf(err, "send to chat %d", chatID)
	}
	return nil
}

// RateLimit makes every handler wait for the shared outbound limiter first.
func RateLimit(limiter *rate.Limiter) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if err := limiter.Wait(context.Background()); err != nil {
				return err
			}
			return next(c)
		}
	}
}

package notify

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/ethcast/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram implementa ports.Notifier enviando el resumen a un chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram valida el token contra la API (getMe) y devuelve el notificador.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NewTelegramWithEndpoint apunta a otro servidor de la Bot API, p.ej. en tests.
// endpoint usa el formato de tgbotapi.APIEndpoint ("https://host/bot%s/%s").
func NewTelegramWithEndpoint(token, endpoint string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify envía el mensaje. La Bot API no tiene contexto; ctx solo corta antes de enviar.
func (t *Telegram) Notify(ctx context.Context, r domain.RunReport) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify.Telegram: %w", err)
	}
	msg := tgbotapi.NewMessage(t.chatID, formatMessage(r))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("notify.Telegram: send: %w", err)
	}
	return nil
}

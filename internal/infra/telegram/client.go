// internal/infra/telegram/client.go
package telegram

import (
	"context"

	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/notify"
)

// TelebotAdapter sends messages through gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// AdminNotifier delivers operator notifications to the admin chat.
type AdminNotifier struct {
	client  *TelebotAdapter
	adminID int64
}

func NewAdminNotifier(client *TelebotAdapter, adminTelegramID int64) *AdminNotifier {
	return &AdminNotifier{client: client, adminID: adminTelegramID}
}

func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.client.SendMessage(n.adminID, text, &telebot.SendOptions{DisableWebPagePreview: true})
}

var _ notify.Notifier = (*AdminNotifier)(nil)

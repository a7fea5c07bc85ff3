// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			return c.Send(fmt.Sprintf("Привет, Администратор %s! Я готов к работе. Используйте /help для списка команд.", c.Sender().FirstName))
		}
		logCtx.Info("User is unknown")
		return c.Send("Привет! Этот бот предназначен для администраторов учебного центра.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			return c.Send("Доступных команд для вас нет.")
		}
		var helpText strings.Builder
		helpText.WriteString("Доступные команды Администратора:\n\n")
		helpText.WriteString("`/leads`\n - Список лидов.\n\n")
		helpText.WriteString("`/newlead <телефон> <имя>`\n - Добавить лида.\n\n")
		helpText.WriteString("`/followup <ID лида> <причина>`\n - Перенести лида в «Перезвонить».\n\n")
		helpText.WriteString("`/pay <lead|followup> <ID> <тариф> <сумма> <cash|card> <ГГГГ-ММ-ДД> <группа>`\n - Полная оплата и зачисление в группу.\n\n")
		helpText.WriteString("`/advance <ID лида> <сумма>`\n - Предоплата.\n\n")
		helpText.WriteString("`/delete <lead|followup> <ID> [причина]`\n - Переместить в удалённые.\n\n")
		helpText.WriteString("`/restore <ID>` и `/purge <ID>`\n - Восстановить или удалить навсегда.\n\n")
		helpText.WriteString("`/debt <ID долга> <сумма>`\n - Изменить сумму долга.\n\n")
		helpText.WriteString("`/find <имя или телефон>`\n - Поиск по лидам, оплатам, удалённым, студентам и должникам.\n\n")
		helpText.WriteString("`/groups`\n - Список групп.\n\n")
		helpText.WriteString("`/attendance <ID группы> [ГГГГ-ММ-ДД]`\n - Открыть посещаемость группы за дату (по умолчанию сегодня).\n\n")
		helpText.WriteString("`/excuse <номер> <причина>`\n - Отметить студента как отсутствующего по уважительной причине.\n\n")
		helpText.WriteString("`/reconcile`\n - Запустить сверку данных.\n\n")
		helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

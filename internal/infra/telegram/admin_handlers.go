package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
)

const msgUnauthorized = "Ошибка: У вас нет прав для выполнения этой команды."

// Services are the core services reachable from the bot.
type Services struct {
	Search     *app.SearchService
	Groups     *app.GroupService
	Attendance *app.AttendanceService
	Reconciler *app.Reconciler
}

// adminSession maps the configured admin chat to an admin operator session.
func adminSession(c telebot.Context, adminTelegramID int64) (operator.Session, bool) {
	if c.Sender() == nil || c.Sender().ID != adminTelegramID {
		return operator.Session{Role: operator.RoleUnauthenticated}, false
	}
	return operator.Session{Role: operator.RoleAdmin, Name: c.Sender().FirstName}, true
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, svc Services, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/find", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/find",
			"sender_id": c.Sender().ID,
		})
		if _, ok := adminSession(c, adminTelegramID); !ok {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		query := strings.TrimSpace(strings.Join(c.Args(), " "))
		if query == "" {
			return c.Send("Неверный формат команды. Используйте: /find <имя или телефон>")
		}

		found, err := svc.Search.Search(ctx, query)
		if err != nil {
			handlerLogger.WithError(err).Error("Search failed")
			return c.Send(fmt.Sprintf("Произошла ошибка при поиске: %s", err.Error()))
		}
		handlerLogger.WithField("found", len(found)).Info("Search finished")
		return c.Send(formatEntries(query, found))
	})

	b.Handle("/reconcile", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/reconcile",
			"sender_id": c.Sender().ID,
		})
		if _, ok := adminSession(c, adminTelegramID); !ok {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		rep, err := svc.Reconciler.Run(ctx)
		if err != nil {
			handlerLogger.WithError(err).Error("Reconciliation failed")
			return c.Send(fmt.Sprintf("Сверка завершилась с ошибками: %s\n\n%s", err.Error(), rep.String()))
		}
		return c.Send(rep.String())
	})

	b.Handle("/groups", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/groups",
			"sender_id": c.Sender().ID,
		})
		op, ok := adminSession(c, adminTelegramID)
		if !ok {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		groups, err := svc.Groups.List(ctx, op)
		if err != nil {
			if errors.Is(err, app.ErrNotAuthorized) {
				return c.Send(msgUnauthorized)
			}
			handlerLogger.WithError(err).Error("Failed to list groups")
			return c.Send(fmt.Sprintf("Произошла ошибка при получении списка групп: %s", err.Error()))
		}
		if len(groups) == 0 {
			return c.Send("Список групп пуст.")
		}

		var response strings.Builder
		response.WriteString("--- Группы ---\n")
		for _, g := range groups {
			roster, err := svc.Groups.Roster(ctx, g.ID)
			if err != nil {
				handlerLogger.WithError(err).WithField("group_id", g.ID).Warn("Failed to read roster")
			}
			response.WriteString(fmt.Sprintf("%s (ID: %s), студентов: %d\n", g.Name, g.ID, len(roster)))
		}
		return c.Send(response.String())
	})
}

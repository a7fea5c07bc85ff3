package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
)

// LifecycleServices drive lead intake and stage transitions from the bot.
type LifecycleServices struct {
	Leads  *app.LeadService
	Engine *app.LifecycleEngine
	Debts  *app.DebtService
}

var stageArgs = map[string]customer.Stage{
	"lead":     customer.StageLead,
	"followup": customer.StageFollowUp,
}

func parseStage(arg string) (customer.Stage, bool) {
	s, ok := stageArgs[strings.ToLower(strings.TrimSpace(arg))]
	return s, ok
}

// parsePaymentArgs reads "<tariff> <amount> <cash|card> <YYYY-MM-DD> <group...>".
func parsePaymentArgs(args []string, operatorName string) (app.PaymentInput, bool) {
	if len(args) < 5 {
		return app.PaymentInput{}, false
	}
	return app.PaymentInput{
		Tariff:   args[0],
		Amount:   args[1],
		Method:   args[2],
		Date:     args[3],
		Group:    strings.Join(args[4:], " "),
		Operator: operatorName,
	}, true
}

// describeError turns a core error into an operator-facing message.
func describeError(err error) string {
	var (
		verr *app.ValidationError
		perr *app.PartialApplicationError
		terr *app.TransportError
	)
	switch {
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, f.Field)
		}
		if len(fields) == 0 {
			return "Ошибка: неверные данные."
		}
		return "Ошибка: проверьте поля: " + strings.Join(fields, ", ") + "."
	case errors.As(err, &perr):
		return "Операция выполнена частично, сверка исправит остальное: " + strings.Join(perr.Failed, ", ")
	case errors.Is(err, app.ErrInvalidTransition):
		return "Ошибка: это действие недоступно для записи на этом этапе."
	case errors.Is(err, app.ErrNotAuthorized):
		return msgUnauthorized
	case app.IsNotFound(err):
		return "Ошибка: запись не найдена."
	case errors.As(err, &terr):
		return "Ошибка базы данных, попробуйте позже."
	default:
		return fmt.Sprintf("Произошла ошибка: %s", err.Error())
	}
}

// RegisterLifecycleHandlers registers the lead intake and transition commands.
func RegisterLifecycleHandlers(ctx context.Context, b *telebot.Bot, svc LifecycleServices, adminTelegramID int64, baseLogger *logrus.Entry) {
	// handle wraps a command with the admin check and error reporting.
	handle := func(command, usage string, minArgs int, fn func(c telebot.Context, op operator.Session, args []string) (string, error)) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			op, ok := adminSession(c, adminTelegramID)
			if !ok {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(msgUnauthorized)
			}
			args := c.Args()
			if len(args) < minArgs {
				return c.Send("Неверный формат команды. Используйте: " + usage)
			}
			reply, err := fn(c, op, args)
			if err != nil {
				if app.IsValidation(err) || app.IsNotFound(err) || errors.Is(err, app.ErrInvalidTransition) {
					handlerLogger.WithError(err).Warn("Command rejected")
				} else {
					handlerLogger.WithError(err).Error("Command failed")
				}
				return c.Send(describeError(err))
			}
			handlerLogger.Info("Command completed")
			return c.Send(reply)
		})
	}

	handle("/leads", "/leads", 0, func(c telebot.Context, _ operator.Session, _ []string) (string, error) {
		leads, err := svc.Leads.List(ctx)
		if err != nil {
			return "", err
		}
		if len(leads) == 0 {
			return "Лидов нет.", nil
		}
		var sb strings.Builder
		sb.WriteString("--- Лиды ---\n")
		for i, l := range leads {
			if i == maxListedEntries {
				fmt.Fprintf(&sb, "… и ещё %d", len(leads)-maxListedEntries)
				break
			}
			fmt.Fprintf(&sb, "%s, %s (ID: %s)\n", l.FullName, l.Phone, l.ID)
		}
		return sb.String(), nil
	})

	handle("/newlead", "/newlead <телефон> <имя>", 2, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		lead, err := svc.Leads.Create(ctx, op, app.LeadInput{Phone: args[0], FullName: strings.Join(args[1:], " ")})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Лид %s добавлен (ID: %s).", lead.FullName, lead.ID), nil
	})

	handle("/followup", "/followup <ID лида> <причина>", 2, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		fu, err := svc.Engine.MarkForFollowUp(ctx, op, args[0], app.FollowUpInput{Reason: strings.Join(args[1:], " ")})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s перенесён в «Перезвонить» (ID: %s).", fu.FullName, fu.ID), nil
	})

	handle("/pay", "/pay <lead|followup> <ID> <тариф> <сумма> <cash|card> <ГГГГ-ММ-ДД> <группа>", 7, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		from, ok := parseStage(args[0])
		if !ok {
			return "", app.ErrInvalidTransition
		}
		in, _ := parsePaymentArgs(args[2:], op.Name)
		res, err := svc.Engine.FullPayment(ctx, op, from, args[1], in)
		if err != nil {
			return "", err
		}
		if res.Enrollment == nil {
			return fmt.Sprintf("Оплата %s сохранена, но группа «%s» не найдена.", res.Payment.FullName, in.Group), nil
		}
		return fmt.Sprintf("Оплата %s сохранена, студент добавлен в группу «%s».", res.Payment.FullName, in.Group), nil
	})

	handle("/advance", "/advance <ID лида> <сумма>", 2, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		ap, err := svc.Engine.AdvancePayment(ctx, op, args[0], app.AdvanceInput{Amount: args[1]})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Предоплата %s от %s сохранена.", ap.Amount.String(), ap.FullName), nil
	})

	handle("/delete", "/delete <lead|followup> <ID> [причина]", 2, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		from, ok := parseStage(args[0])
		if !ok {
			return "", app.ErrInvalidTransition
		}
		del, err := svc.Engine.SoftDelete(ctx, op, from, args[1], app.DeleteInput{Reason: strings.Join(args[2:], " ")})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s перемещён в удалённые (ID: %s).", del.FullName, del.ID), nil
	})

	handle("/restore", "/restore <ID удалённого>", 1, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		lead, err := svc.Engine.Restore(ctx, op, args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s восстановлен как новый лид (ID: %s).", lead.FullName, lead.ID), nil
	})

	handle("/purge", "/purge <ID удалённого>", 1, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		if err := svc.Engine.Purge(ctx, op, args[0]); err != nil {
			return "", err
		}
		return "Запись удалена навсегда.", nil
	})

	handle("/debt", "/debt <ID долга> <сумма>", 2, func(c telebot.Context, op operator.Session, args []string) (string, error) {
		d, err := svc.Debts.SetAmount(ctx, op, args[0], args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Долг %s %s: %s.", d.Name, d.Surname, d.Amount.String()), nil
	})
}

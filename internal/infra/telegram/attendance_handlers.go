package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/attendance"
)

// drafts holds the attendance session each chat is marking.
type drafts struct {
	mu     sync.Mutex
	byChat map[int64]*draft
}

func (ds *drafts) get(chatID int64) (*draft, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.byChat[chatID]
	return d, ok
}

func (ds *drafts) put(chatID int64, d *draft) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.byChat[chatID] = d
}

func (ds *drafts) drop(chatID int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.byChat, chatID)
}

// RegisterAttendanceHandlers registers /attendance, /excuse and the inline
// buttons used to mark students.
func RegisterAttendanceHandlers(ctx context.Context, b *telebot.Bot, svc Services, adminTelegramID int64, baseLogger *logrus.Entry) {
	open := &drafts{byChat: map[int64]*draft{}}

	b.Handle("/attendance", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/attendance",
			"sender_id": c.Sender().ID,
		})
		op, ok := adminSession(c, adminTelegramID)
		if !ok {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		groupID, date, err := parseAttendanceArgs(c.Args(), time.Now())
		if err != nil {
			return c.Send("Неверный формат команды. Используйте: /attendance <ID группы> [ГГГГ-ММ-ДД]")
		}
		handlerLogger = handlerLogger.WithField("group_id", groupID)

		sess, err := svc.Attendance.OpenSession(ctx, op, groupID, date)
		if err != nil {
			if errors.Is(err, app.ErrGroupNotFound) {
				return c.Send(fmt.Sprintf("Группа с ID %s не найдена.", groupID))
			}
			handlerLogger.WithError(err).Error("Failed to open attendance session")
			return c.Send(fmt.Sprintf("Произошла ошибка: %s", err.Error()))
		}
		roster, err := svc.Groups.Roster(ctx, groupID)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to read roster names")
		}

		d := newDraft(sess, roster)
		if len(d.order) == 0 {
			return c.Send("В группе нет студентов.")
		}
		open.put(c.Chat().ID, d)
		text, keyboard := d.render()
		return c.Send(text, keyboard)
	})

	b.Handle("/excuse", func(c telebot.Context) error {
		if _, ok := adminSession(c, adminTelegramID); !ok {
			return c.Send(msgUnauthorized)
		}
		d, ok := open.get(c.Chat().ID)
		if !ok {
			return c.Send("Сначала откройте посещаемость командой /attendance.")
		}
		args := c.Args()
		if len(args) < 2 {
			return c.Send("Неверный формат команды. Используйте: /excuse <номер> <причина>")
		}
		studentID, ok := d.student(args[0])
		if !ok {
			return c.Send("Студент с таким номером не найден.")
		}
		reason := strings.Join(args[1:], " ")
		err := d.update(func(sess *attendance.Session) error {
			return svc.Attendance.SetMark(sess, studentID, attendance.Excused, reason)
		})
		if err != nil {
			return c.Send(fmt.Sprintf("Ошибка: %s", err.Error()))
		}
		text, keyboard := d.render()
		return c.Send(text, keyboard)
	})

	b.Handle(&telebot.InlineButton{Unique: uniqueToggle}, func(c telebot.Context) error {
		if _, ok := adminSession(c, adminTelegramID); !ok {
			return c.Respond(&telebot.CallbackResponse{Text: "Нет прав."})
		}
		d, ok := open.get(c.Chat().ID)
		if !ok {
			return c.Respond(&telebot.CallbackResponse{Text: "Посещаемость уже сохранена или не открыта."})
		}
		studentID, ok := d.student(c.Callback().Data)
		if !ok {
			c.Bot().OnError(fmt.Errorf("invalid attendance callback data: %s", c.Callback().Data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
		}
		err := d.update(func(sess *attendance.Session) error {
			return svc.Attendance.SetMark(sess, studentID, nextStatus(sess.Marks[studentID]), "")
		})
		if err != nil {
			c.Bot().OnError(fmt.Errorf("failed to toggle mark of %s: %w", studentID, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
		}
		text, keyboard := d.render()
		if err := c.Edit(text, keyboard); err != nil {
			return err
		}
		return c.Respond()
	})

	b.Handle(&telebot.InlineButton{Unique: uniqueSave}, func(c telebot.Context) error {
		op, ok := adminSession(c, adminTelegramID)
		if !ok {
			return c.Respond(&telebot.CallbackResponse{Text: "Нет прав."})
		}
		d, ok := open.get(c.Chat().ID)
		if !ok {
			return c.Respond(&telebot.CallbackResponse{Text: "Посещаемость уже сохранена или не открыта."})
		}
		err := d.update(func(sess *attendance.Session) error {
			saved, err := svc.Attendance.Save(ctx, op, sess)
			if err != nil {
				baseLogger.WithError(err).WithField("group_id", sess.GroupID).Error("Failed to save attendance")
				return err
			}
			d.session = saved
			return nil
		})
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Не удалось сохранить."})
		}
		open.drop(c.Chat().ID)
		text, _ := d.render()
		if err := c.Edit(text); err != nil {
			return err
		}
		return c.Respond(&telebot.CallbackResponse{Text: "Сохранено!"})
	})
}

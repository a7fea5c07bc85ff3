package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/attendance"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/search"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/util"
)

const maxListedEntries = 20

var collectionLabels = map[record.Collection]string{
	record.Leads:           "Лид",
	record.FollowUps:       "Перезвонить",
	record.Payments:        "Оплата",
	record.AdvancePayments: "Предоплата",
	record.Deleted:         "Удалён",
	record.Students:        "Студент",
	record.Debts:           "Должник",
}

func formatEntries(query string, entries []search.Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("По запросу «%s» ничего не найдено.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено: %d\n", len(entries))
	for i, e := range entries {
		if i == maxListedEntries {
			fmt.Fprintf(&b, "… и ещё %d", len(entries)-maxListedEntries)
			break
		}
		label := collectionLabels[e.Collection]
		if label == "" {
			label = string(e.Collection)
		}
		line := fmt.Sprintf("[%s] %s", label, e.FullName)
		if len(e.Phones) > 0 {
			line += ", " + e.Phones[0]
		}
		if !e.At.IsZero() {
			line += ", " + util.FormatDate(e.At)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// parseAttendanceArgs reads "<groupID> [YYYY-MM-DD]". The date defaults to
// today.
func parseAttendanceArgs(args []string, now time.Time) (string, time.Time, error) {
	if len(args) < 1 || len(args) > 2 || strings.TrimSpace(args[0]) == "" {
		return "", time.Time{}, errors.New("usage: /attendance <group id> [YYYY-MM-DD]")
	}
	date := util.DateOnly(now)
	if len(args) == 2 {
		d, err := util.ParseDate(args[1])
		if err != nil {
			return "", time.Time{}, err
		}
		date = d
	}
	return strings.TrimSpace(args[0]), date, nil
}

// draft is an attendance session being marked in a chat.
type draft struct {
	// mu guards session. Telegram updates are handled concurrently.
	mu      sync.Mutex
	session *attendance.Session
	names   map[string]string
	order   []string // student ids in display order
}

// update runs fn with exclusive access to the session.
func (d *draft) update(fn func(sess *attendance.Session) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.session)
}

// render formats the draft and its keyboard under the lock.
func (d *draft) render() (string, *telebot.ReplyMarkup) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return formatDraft(d), draftKeyboard(d)
}

func newDraft(sess *attendance.Session, roster []group.Enrollment) *draft {
	d := &draft{session: sess, names: make(map[string]string, len(roster))}
	for _, e := range roster {
		d.names[e.ID] = e.Name
	}
	d.order = sess.StudentIDs()
	sort.SliceStable(d.order, func(i, j int) bool {
		return d.names[d.order[i]] < d.names[d.order[j]]
	})
	return d
}

// student resolves the 1-based number shown next to a student.
func (d *draft) student(n string) (string, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil || i < 1 || i > len(d.order) {
		return "", false
	}
	return d.order[i-1], true
}

func (d *draft) name(id string) string {
	if n := d.names[id]; n != "" {
		return n
	}
	return id
}

func statusLabel(m attendance.Mark) string {
	switch m.Status() {
	case attendance.Present:
		return "✅ присутствовал"
	case attendance.Absent:
		return "❌ отсутствовал"
	case attendance.Excused:
		return "🟡 уважительная причина: " + m.Reason()
	default:
		return "?"
	}
}

func formatDraft(d *draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Посещаемость за %s\n", util.FormatDate(d.session.Date))
	if d.session.Stored {
		b.WriteString("(сохранённая запись)\n")
	}
	b.WriteString("\n")
	for i, id := range d.order {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, d.name(id), statusLabel(d.session.Marks[id]))
	}
	sum := attendance.Aggregate(d.session)
	fmt.Fprintf(&b, "\nПрисутствуют: %d, отсутствуют: %d, по уважительной: %d (%d%%)",
		sum.Present, sum.Absent, sum.Excused, sum.Percent())
	return b.String()
}

const (
	uniqueToggle = "att_toggle"
	uniqueSave   = "att_save"
)

func draftKeyboard(d *draft) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(d.order)+1)
	for i, id := range d.order {
		label := fmt.Sprintf("%d. %s", i+1, d.name(id))
		rows = append(rows, markup.Row(markup.Data(label, uniqueToggle, strconv.Itoa(i+1))))
	}
	rows = append(rows, markup.Row(markup.Data("💾 Сохранить", uniqueSave)))
	markup.Inline(rows...)
	return markup
}

// nextStatus is the status a toggle tap moves a student to.
func nextStatus(m attendance.Mark) attendance.Status {
	if m.Status() == attendance.Present {
		return attendance.Absent
	}
	return attendance.Present
}

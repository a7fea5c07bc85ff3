package telegram

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/attendance"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/search"
)

func TestParseAttendanceArgs(t *testing.T) {
	now := time.Date(2025, 1, 10, 18, 45, 0, 0, time.UTC)
	tests := []struct {
		name     string
		args     []string
		wantID   string
		wantDate string
		wantErr  bool
	}{
		{"defaults to today", []string{"g1"}, "g1", "2025-01-10", false},
		{"explicit date", []string{"g1", "2025-01-08"}, "g1", "2025-01-08", false},
		{"no args", nil, "", "", true},
		{"bad date", []string{"g1", "08.01.2025"}, "", "", true},
		{"too many args", []string{"g1", "2025-01-08", "x"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, date, err := parseAttendanceArgs(tt.args, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantDate, date.Format("2006-01-02"))
		})
	}
}

func TestFormatEntries(t *testing.T) {
	assert.Contains(t, formatEntries("zz", nil), "ничего не найдено")

	out := formatEntries("ali", []search.Entry{
		{Collection: record.Leads, FullName: "Ali Vali", Phones: []string{"+998901234567"}},
		{Collection: record.Debts, FullName: "Ali Usmonov", At: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
	})
	assert.Contains(t, out, "Найдено: 2")
	assert.Contains(t, out, "[Лид] Ali Vali, +998901234567")
	assert.Contains(t, out, "[Должник] Ali Usmonov, 2025-01-10")
}

func TestDraftToggleAndFormat(t *testing.T) {
	roster := []group.Enrollment{{ID: "s2", Name: "Bekzod"}, {ID: "s1", Name: "Aziz"}}
	sess := attendance.NewDefault("g1", "", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), []string{"s1", "s2"})
	d := newDraft(sess, roster)

	require.Equal(t, []string{"s1", "s2"}, d.order)
	id, ok := d.student("2")
	require.True(t, ok)
	assert.Equal(t, "s2", id)
	_, ok = d.student("3")
	assert.False(t, ok)

	require.NoError(t, sess.SetMark(id, nextStatus(sess.Marks[id]), ""))
	assert.Equal(t, attendance.Absent, sess.Marks[id].Status())
	assert.Equal(t, attendance.Present, nextStatus(sess.Marks[id]))

	out := formatDraft(d)
	assert.Contains(t, out, "1. Aziz: ✅")
	assert.Contains(t, out, "2. Bekzod: ❌")
	assert.Contains(t, out, "(50%)")

	kb := draftKeyboard(d)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, uniqueSave, kb.InlineKeyboard[2][0].Unique)
}

func TestDraftConcurrentTogglesAndRenders(t *testing.T) {
	ids := []string{"s1", "s2", "s3"}
	sess := attendance.NewDefault("g1", "", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), ids)
	d := newDraft(sess, []group.Enrollment{{ID: "s1", Name: "Aziz"}, {ID: "s2", Name: "Bekzod"}, {ID: "s3", Name: "Dilnoza"}})

	const taps = 50
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = d.update(func(sess *attendance.Session) error {
				return sess.SetMark("s1", nextStatus(sess.Marks["s1"]), "")
			})
		}()
		go func() {
			defer wg.Done()
			text, keyboard := d.render()
			assert.Contains(t, text, "Aziz")
			assert.NotNil(t, keyboard)
		}()
		go func() {
			defer wg.Done()
			_ = d.update(func(sess *attendance.Session) error {
				_, err := record.Encode(sess)
				return err
			})
		}()
	}
	wg.Wait()

	// an even number of toggles lands back on the default
	text, _ := d.render()
	assert.Contains(t, text, "1. Aziz: ✅")
	require.NoError(t, d.update(func(sess *attendance.Session) error { return sess.Validate() }))
}

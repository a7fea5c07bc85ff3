// Package attendance holds the per-group, per-date attendance ledger types.
package attendance

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/util"
)

var ErrUnknownStudent = errors.New("student is not part of the session")

// Session is the attendance of a group on one calendar date.
type Session struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	TeacherID string          `json:"teacher_id,omitempty"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Marks     map[string]Mark `json:"marks"`

	// Stored is true when the session was read from the store.
	Stored bool `json:"-"`
}

var sessionNamespace = uuid.MustParse("c5e0a3d8-1f6b-4e2a-b8d4-7a9f0c2e5b61")

// SessionID is the storage identity of the (group, date) key. Two sessions
// for the same group and date always share it.
func SessionID(groupID string, date time.Time) string {
	key := groupID + "|" + util.FormatDate(date)
	return uuid.NewSHA1(sessionNamespace, []byte(key)).String()
}

// NewDefault synthesizes an unsaved session marking every student Present.
func NewDefault(groupID, teacherID string, date time.Time, studentIDs []string) *Session {
	marks := make(map[string]Mark, len(studentIDs))
	for _, id := range studentIDs {
		marks[id] = PresentMark()
	}
	return &Session{
		ID:        SessionID(groupID, date),
		GroupID:   groupID,
		TeacherID: teacherID,
		Date:      util.DateOnly(date),
		Marks:     marks,
	}
}

// AddStudents gives every student without a mark the Present default and
// reports how many were added. Existing marks are not changed.
func (s *Session) AddStudents(studentIDs []string) int {
	if s.Marks == nil {
		s.Marks = make(map[string]Mark, len(studentIDs))
	}
	added := 0
	for _, id := range studentIDs {
		if _, ok := s.Marks[id]; ok {
			continue
		}
		s.Marks[id] = PresentMark()
		added++
	}
	return added
}

// SetMark replaces the mark of studentID. An Excused status without a reason
// is rejected and the session is left unchanged.
func (s *Session) SetMark(studentID string, status Status, reason string) error {
	if _, ok := s.Marks[studentID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStudent, studentID)
	}
	m, err := NewMark(status, reason)
	if err != nil {
		return err
	}
	s.Marks[studentID] = m
	return nil
}

// Validate checks that every mark is well formed.
func (s *Session) Validate() error {
	for id, m := range s.Marks {
		if !m.Valid() {
			return fmt.Errorf("student %s: %w", id, ErrInvalidStatus)
		}
	}
	return nil
}

// StudentIDs returns the marked students in a stable order.
func (s *Session) StudentIDs() []string {
	ids := make([]string, 0, len(s.Marks))
	for id := range s.Marks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary is the aggregate of a session's marks.
type Summary struct {
	Present int
	Absent  int
	Excused int
	Total   int
	// Ratio is Present/Total, 0 when the session has no students.
	Ratio float64
}

// Aggregate counts the marks of s.
func Aggregate(s *Session) Summary {
	var sum Summary
	for _, m := range s.Marks {
		switch m.Status() {
		case Present:
			sum.Present++
		case Absent:
			sum.Absent++
		case Excused:
			sum.Excused++
		}
	}
	sum.Total = len(s.Marks)
	if sum.Total > 0 {
		sum.Ratio = float64(sum.Present) / float64(sum.Total)
	}
	return sum
}

// Percent renders Ratio as a whole percentage.
func (s Summary) Percent() int {
	return int(s.Ratio*100 + 0.5)
}

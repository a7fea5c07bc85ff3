package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/attendance"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/util"
)

// AttendanceService keeps the attendance ledger, one session per group and
// calendar date.
type AttendanceService struct {
	store  record.Store
	groups *GroupService
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewAttendanceService(store record.Store, groups *GroupService, log logrus.FieldLogger) *AttendanceService {
	return &AttendanceService{store: store, groups: groups, log: log, now: time.Now}
}

// OpenSession returns the stored session of the group for date, or a new
// unsaved session marking every rostered student Present. Students enrolled
// after a stored session was saved are added to it as Present; stored marks
// are kept.
func (s *AttendanceService) OpenSession(ctx context.Context, op operator.Session, groupID string, date time.Time) (*attendance.Session, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !op.SeesAllGroups() && !g.OwnedBy(op.TeacherID) {
		return nil, ErrNotAuthorized
	}

	stored, err := s.Get(ctx, groupID, date)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	roster, err := listInto[group.Enrollment](ctx, s.store, record.Roster(groupID))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.ID)
	}
	if stored != nil {
		if added := stored.AddStudents(ids); added > 0 {
			s.log.WithFields(logrus.Fields{
				"session_id": stored.ID,
				"added":      added,
			}).Info("Late enrollments added to stored session as present")
		}
		return stored, nil
	}
	teacherID := op.TeacherID
	if g.TeacherID != nil {
		teacherID = *g.TeacherID
	}
	return attendance.NewDefault(groupID, teacherID, date, ids), nil
}

// Get reads the stored session of the group for date.
func (s *AttendanceService) Get(ctx context.Context, groupID string, date time.Time) (*attendance.Session, error) {
	id := attendance.SessionID(groupID, date)
	var sess attendance.Session
	err := getInto(ctx, s.store, record.AttendanceSessions, id, &sess)
	if errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("%w: group %s on %s", ErrSessionNotFound, groupID, util.FormatDate(date))
	}
	if err != nil {
		return nil, err
	}
	sess.Stored = true
	return &sess, nil
}

// SetMark changes one student's mark in memory. Nothing is written until Save.
func (s *AttendanceService) SetMark(sess *attendance.Session, studentID string, status attendance.Status, reason string) error {
	err := sess.SetMark(studentID, status, reason)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, attendance.ErrReasonRequired):
		return newValidationError(err, FieldError{Field: "reason", Rule: "required"})
	case errors.Is(err, attendance.ErrUnexpectedReason):
		return newValidationError(err, FieldError{Field: "reason", Rule: "excluded_unless"})
	case errors.Is(err, attendance.ErrInvalidStatus):
		return newValidationError(err, FieldError{Field: "status", Rule: "oneof"})
	default:
		return err
	}
}

// Save upserts the session under its (group, date) key. A second save of the
// same key updates the stored session and stamps UpdatedAt.
func (s *AttendanceService) Save(ctx context.Context, op operator.Session, sess *attendance.Session) (*attendance.Session, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	if sess.GroupID == "" {
		return nil, newValidationError(nil, FieldError{Field: "group_id", Rule: "required"})
	}
	if err := s.authorizeGroup(ctx, op, sess.GroupID); err != nil {
		return nil, err
	}
	if sess.Date.IsZero() {
		return nil, newValidationError(nil, FieldError{Field: "date", Rule: "required"})
	}
	if err := sess.Validate(); err != nil {
		return nil, newValidationError(err, FieldError{Field: "marks", Rule: "oneof"})
	}

	sess.Date = util.DateOnly(sess.Date)
	sess.ID = attendance.SessionID(sess.GroupID, sess.Date)
	now := s.now().UTC()

	existing, err := s.Get(ctx, sess.GroupID, sess.Date)
	switch {
	case err == nil:
		sess.CreatedAt = existing.CreatedAt
		sess.UpdatedAt = &now
	case errors.Is(err, ErrSessionNotFound):
		sess.CreatedAt = now
		sess.UpdatedAt = nil
	default:
		return nil, err
	}

	if err := put(ctx, s.store, record.AttendanceSessions, sess.ID, sess); err != nil {
		return nil, err
	}
	sess.Stored = true
	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"group_id":   sess.GroupID,
		"date":       util.FormatDate(sess.Date),
		"updated":    sess.UpdatedAt != nil,
	}).Info("Attendance saved")
	return sess, nil
}

// authorizeGroup lets admins and managers write any group's sessions and
// teachers only those of groups they own.
func (s *AttendanceService) authorizeGroup(ctx context.Context, op operator.Session, groupID string) error {
	if op.SeesAllGroups() {
		return nil
	}
	g, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, ErrGroupNotFound) {
		return ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if !g.OwnedBy(op.TeacherID) {
		return ErrNotAuthorized
	}
	return nil
}

// Aggregate counts the marks of a session.
func (s *AttendanceService) Aggregate(sess *attendance.Session) attendance.Summary {
	return attendance.Aggregate(sess)
}

// Delete removes a stored session. Deleting a missing session is a no-op.
func (s *AttendanceService) Delete(ctx context.Context, op operator.Session, sessionID string) error {
	if !op.Authenticated() {
		return ErrNotAuthorized
	}
	var stored attendance.Session
	err := getInto(ctx, s.store, record.AttendanceSessions, sessionID, &stored)
	if errors.Is(err, record.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.authorizeGroup(ctx, op, stored.GroupID); err != nil {
		return err
	}
	if err := remove(ctx, s.store, record.AttendanceSessions, sessionID); err != nil {
		return err
	}
	s.log.WithField("session_id", sessionID).Info("Attendance session deleted")
	return nil
}

// ListSessions returns the stored sessions of a group, oldest first.
func (s *AttendanceService) ListSessions(ctx context.Context, groupID string) ([]attendance.Session, error) {
	out, err := listWhereInto[attendance.Session](ctx, s.store, record.AttendanceSessions, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Stored = true
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

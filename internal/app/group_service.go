package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

var ErrGroupAlreadyExists = errors.New("group with this name already exists")

// GroupService manages groups and their enrollments.
type GroupService struct {
	store record.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewGroupService(store record.Store, log logrus.FieldLogger) *GroupService {
	return &GroupService{store: store, log: log, now: time.Now}
}

type GroupInput struct {
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacher_id"`
}

// Create handles the business logic for adding a new group. Only admins and
// managers may create groups.
func (s *GroupService) Create(ctx context.Context, op operator.Session, in GroupInput) (*group.Group, error) {
	if !op.SeesAllGroups() {
		return nil, ErrNotAuthorized
	}
	in.Name = strings.TrimSpace(in.Name)
	in.TeacherID = strings.TrimSpace(in.TeacherID)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	groups, err := listInto[group.Group](ctx, s.store, record.Groups)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.MatchesName(in.Name) {
			return nil, fmt.Errorf("%w: %s", ErrGroupAlreadyExists, in.Name)
		}
	}

	g := group.Group{Name: in.Name, CreatedAt: s.now().UTC()}
	if in.TeacherID != "" {
		teacherID := in.TeacherID
		g.TeacherID = &teacherID
	}
	id, err := insert(ctx, s.store, record.Groups, g)
	if err != nil {
		return nil, err
	}
	g.ID = id
	s.log.WithFields(logrus.Fields{"group_id": id, "name": g.Name}).Info("Group created")
	return &g, nil
}

// Get returns ErrGroupNotFound when the group does not exist.
func (s *GroupService) Get(ctx context.Context, id string) (*group.Group, error) {
	var g group.Group
	err := getInto(ctx, s.store, record.Groups, id, &g)
	if errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns the groups visible to op in creation order. Teachers see only
// the groups they own.
func (s *GroupService) List(ctx context.Context, op operator.Session) ([]group.Group, error) {
	var (
		groups []group.Group
		err    error
	)
	switch {
	case op.SeesAllGroups():
		groups, err = listInto[group.Group](ctx, s.store, record.Groups)
	case op.Role == operator.RoleTeacher && op.TeacherID != "":
		groups, err = listWhereInto[group.Group](ctx, s.store, record.Groups, "teacher_id", op.TeacherID)
	default:
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

// Roster lists the students of a group ordered by name.
func (s *GroupService) Roster(ctx context.Context, groupID string) ([]group.Enrollment, error) {
	out, err := listInto[group.Enrollment](ctx, s.store, record.Roster(groupID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Students reads the flat student index.
func (s *GroupService) Students(ctx context.Context) ([]group.Enrollment, error) {
	return listInto[group.Enrollment](ctx, s.store, record.Students)
}

// Delete removes a group. With group.Cascade its roster, its entries in the
// student index and its attendance sessions are removed first; with
// group.Orphan they are left in place. Deleting a missing group is a no-op.
func (s *GroupService) Delete(ctx context.Context, op operator.Session, groupID string, policy group.CascadePolicy) error {
	if !op.SeesAllGroups() {
		return ErrNotAuthorized
	}
	if policy != group.Orphan && policy != group.Cascade {
		return newValidationError(nil, FieldError{Field: "policy", Rule: "oneof"})
	}
	log := s.log.WithFields(logrus.Fields{"group_id": groupID, "policy": policy.String()})

	if policy == group.Cascade {
		roster, err := listInto[group.Enrollment](ctx, s.store, record.Roster(groupID))
		if err != nil {
			return err
		}
		for _, e := range roster {
			if err := remove(ctx, s.store, record.Roster(groupID), e.ID); err != nil {
				return err
			}
			if err := s.unlinkPayment(ctx, e.PaymentID, e.ID); err != nil {
				return err
			}
		}

		indexed, err := listWhereInto[group.Enrollment](ctx, s.store, record.Students, "group_id", groupID)
		if err != nil {
			return err
		}
		for _, e := range indexed {
			if err := remove(ctx, s.store, record.Students, e.ID); err != nil {
				return err
			}
			if err := s.unlinkPayment(ctx, e.PaymentID, e.ID); err != nil {
				return err
			}
		}

		sessions, err := s.store.ListWhere(ctx, record.AttendanceSessions, "group_id", groupID)
		if err != nil {
			return &TransportError{Op: "list", Collection: record.AttendanceSessions, Err: err}
		}
		for _, doc := range sessions {
			if err := remove(ctx, s.store, record.AttendanceSessions, doc.ID()); err != nil {
				return err
			}
		}
		log = log.WithFields(logrus.Fields{
			"roster":   len(roster),
			"indexed":  len(indexed),
			"sessions": len(sessions),
		})
	}

	if err := remove(ctx, s.store, record.Groups, groupID); err != nil {
		return err
	}
	log.Info("Group deleted")
	return nil
}

// DeleteEnrollment removes a student from the roster, the student index or
// both. Removing one side never touches the other. The originating payment
// stops pointing at the student so the reconciliation sweep leaves the
// remaining side alone.
func (s *GroupService) DeleteEnrollment(ctx context.Context, op operator.Session, groupID, studentID string, scope group.DeleteScope) error {
	if !op.SeesAllGroups() {
		return ErrNotAuthorized
	}
	var targets []record.Collection
	switch scope {
	case group.RosterOnly:
		targets = []record.Collection{record.Roster(groupID)}
	case group.IndexOnly:
		targets = []record.Collection{record.Students}
	case group.Both:
		targets = []record.Collection{record.Roster(groupID), record.Students}
	default:
		return newValidationError(nil, FieldError{Field: "scope", Rule: "oneof"})
	}

	paymentID := ""
	for _, c := range []record.Collection{record.Roster(groupID), record.Students} {
		var e group.Enrollment
		err := getInto(ctx, s.store, c, studentID, &e)
		if err == nil {
			paymentID = e.PaymentID
			break
		}
		if !errors.Is(err, record.ErrNotFound) {
			return err
		}
	}

	for _, c := range targets {
		if err := remove(ctx, s.store, c, studentID); err != nil {
			return err
		}
	}
	if err := s.unlinkPayment(ctx, paymentID, studentID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"group_id":   groupID,
		"student_id": studentID,
		"scope":      scope.String(),
	}).Info("Enrollment deleted")
	return nil
}

func (s *GroupService) unlinkPayment(ctx context.Context, paymentID, studentID string) error {
	if paymentID == "" {
		return nil
	}
	var p customer.Payment
	err := getInto(ctx, s.store, record.Payments, paymentID, &p)
	if errors.Is(err, record.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.StudentID != studentID {
		return nil
	}
	p.StudentID = ""
	return put(ctx, s.store, record.Payments, paymentID, p)
}

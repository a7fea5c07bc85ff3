package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// Enroller turns a payment into a group enrollment written to both the group
// roster and the flat student index.
type Enroller struct {
	log logrus.FieldLogger
	now func() time.Time
}

func NewEnroller(log logrus.FieldLogger) *Enroller {
	return &Enroller{log: log, now: time.Now}
}

// ResolveGroup finds the group a payment names. Groups are compared in
// creation order and the first case-insensitive name match wins. A nil group
// with a nil error means nothing matched.
func (en *Enroller) ResolveGroup(ctx context.Context, s record.Store, ref string) (*group.Group, error) {
	groups, err := listInto[group.Group](ctx, s, record.Groups)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})
	for i := range groups {
		if groups[i].MatchesName(ref) {
			return &groups[i], nil
		}
	}
	return nil, nil
}

// Build derives the enrollment of payment p in group g.
func (en *Enroller) Build(p customer.Payment, g group.Group) group.Enrollment {
	e := group.Enrollment{
		ID:               group.StudentID(p.ID),
		Name:             p.FullName,
		Phone:            p.Phone,
		SecondaryContact: p.SecondaryContact,
		Tariff:           p.Tariff,
		Amount:           p.Amount,
		Method:           p.Method,
		Operator:         p.Operator,
		EnrolledAt:       en.now().UTC(),
		GroupID:          g.ID,
		PaymentID:        p.ID,
	}
	if g.TeacherID != nil {
		e.TeacherID = *g.TeacherID
	}
	return e
}

// FanOut writes e to the roster of its group and to the student index under
// the same id. The writes run concurrently unless the store is a transaction.
// When only some writes land, a PartialApplicationError lists them.
func (en *Enroller) FanOut(ctx context.Context, s record.Store, e group.Enrollment, concurrent bool) error {
	targets := []record.Collection{record.Roster(e.GroupID), record.Students}
	errs := make([]error, len(targets))

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range targets {
			i, c := i, c
			g.Go(func() error {
				errs[i] = put(gctx, s, c, e.ID, e)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, c := range targets {
			errs[i] = put(ctx, s, c, e.ID, e)
		}
	}

	var done, failed []string
	for i, c := range targets {
		if errs[i] != nil {
			failed = append(failed, "write "+string(c))
			continue
		}
		done = append(done, "write "+string(c))
	}
	if len(failed) == 0 {
		en.log.WithFields(logrus.Fields{
			"student_id": e.ID,
			"group_id":   e.GroupID,
			"payment_id": e.PaymentID,
		}).Info("Enrollment written to roster and student index")
		return nil
	}
	return &PartialApplicationError{
		TransitionID: e.PaymentID,
		Completed:    done,
		Failed:       failed,
		Err:          errors.Join(errs...),
	}
}

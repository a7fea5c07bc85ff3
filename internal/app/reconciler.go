package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/notify"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// Report summarises one reconciliation sweep.
type Report struct {
	// StaleSources counts source copies removed because their transition
	// destination already existed.
	StaleSources int
	// IndexRepaired and RosterRepaired count enrollments copied to the side
	// they were missing from.
	IndexRepaired  int
	RosterRepaired int
	// Overwritten counts index entries rewritten from a differing roster entry.
	Overwritten int
	// Unlinked counts one-sided enrollments no payment points at. They are
	// left as they are.
	Unlinked int
	// MissingEnrollments counts payments whose enrollment is gone from both
	// sides.
	MissingEnrollments int
	Problems           []string
}

// Repaired is the number of writes the sweep performed.
func (r Report) Repaired() int {
	return r.StaleSources + r.IndexRepaired + r.RosterRepaired + r.Overwritten
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reconciliation: %d stale copies removed, %d index and %d roster entries restored, %d index entries overwritten.",
		r.StaleSources, r.IndexRepaired, r.RosterRepaired, r.Overwritten)
	if r.Unlinked > 0 {
		fmt.Fprintf(&b, " %d unlinked one-sided enrollments left untouched.", r.Unlinked)
	}
	if r.MissingEnrollments > 0 {
		fmt.Fprintf(&b, " %d payments have no enrollment.", r.MissingEnrollments)
	}
	for _, p := range r.Problems {
		b.WriteString("\n- " + p)
	}
	return b.String()
}

// Reconciler repairs the divergence that non-transactional multi-step writes
// can leave behind.
type Reconciler struct {
	store    record.Store
	notifier notify.Notifier
	log      logrus.FieldLogger
}

func NewReconciler(store record.Store, notifier notify.Notifier, log logrus.FieldLogger) *Reconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Reconciler{store: store, notifier: notifier, log: log}
}

// Run performs one sweep. Repairs that fail are joined into the returned
// error; the report still counts what was done.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var (
		rep  Report
		errs []error
	)
	if err := r.dropStaleSources(ctx, &rep); err != nil {
		errs = append(errs, err)
	}
	if err := r.repairEnrollments(ctx, &rep); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)

	log := r.log.WithFields(logrus.Fields{
		"stale_sources":       rep.StaleSources,
		"index_repaired":      rep.IndexRepaired,
		"roster_repaired":     rep.RosterRepaired,
		"overwritten":         rep.Overwritten,
		"unlinked":            rep.Unlinked,
		"missing_enrollments": rep.MissingEnrollments,
	})
	if err != nil {
		log.WithError(err).Error("Reconciliation finished with errors")
	} else {
		log.Info("Reconciliation finished")
	}

	if rep.Repaired() > 0 || len(rep.Problems) > 0 {
		if nerr := r.notifier.Notify(ctx, rep.String()); nerr != nil {
			r.log.WithError(nerr).Warn("Failed to notify operators")
		}
	}
	return rep, err
}

// dropStaleSources deletes source records left behind by a transition whose
// destination was written but whose source delete never happened.
func (r *Reconciler) dropStaleSources(ctx context.Context, rep *Report) error {
	var errs []error
	for _, stage := range customer.Stages() {
		c, _ := stage.Collection()
		moved, err := listInto[customer.Record](ctx, r.store, c)
		if err != nil {
			return err
		}
		for _, m := range moved {
			if m.OriginID == "" {
				continue
			}
			src, ok := m.OriginStage.Collection()
			if !ok {
				continue
			}
			_, err := getDoc(ctx, r.store, src, m.OriginID)
			if errors.Is(err, record.ErrNotFound) {
				continue
			}
			if err == nil {
				err = remove(ctx, r.store, src, m.OriginID)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			rep.StaleSources++
			r.log.WithFields(logrus.Fields{
				"record_id": m.OriginID,
				"from":      m.OriginStage,
				"to":        stage,
			}).Warn("Removed stale source copy")
		}
	}
	return errors.Join(errs...)
}

// repairEnrollments brings the group rosters and the student index back in
// line. The roster is the canonical side.
func (r *Reconciler) repairEnrollments(ctx context.Context, rep *Report) error {
	payments, err := listInto[customer.Payment](ctx, r.store, record.Payments)
	if err != nil {
		return err
	}
	groups, err := listInto[group.Group](ctx, r.store, record.Groups)
	if err != nil {
		return err
	}
	indexed, err := listInto[group.Enrollment](ctx, r.store, record.Students)
	if err != nil {
		return err
	}

	linked := make(map[string]bool, len(payments))
	groupIDs := map[string]bool{}
	for _, p := range payments {
		if p.StudentID != "" {
			linked[p.StudentID] = true
		}
		if p.GroupID != "" {
			groupIDs[p.GroupID] = true
		}
	}
	for _, g := range groups {
		groupIDs[g.ID] = true
	}
	index := make(map[string]group.Enrollment, len(indexed))
	for _, e := range indexed {
		index[e.ID] = e
		if e.GroupID != "" {
			groupIDs[e.GroupID] = true
		}
	}

	ids := make([]string, 0, len(groupIDs))
	for id := range groupIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	rosters := make(map[string]map[string]bool, len(ids))
	for _, gid := range ids {
		roster, err := listInto[group.Enrollment](ctx, r.store, record.Roster(gid))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rosters[gid] = make(map[string]bool, len(roster))
		for _, e := range roster {
			rosters[gid][e.ID] = true
			x, ok := index[e.ID]
			switch {
			case !ok && !linked[e.ID]:
				rep.Unlinked++
			case !ok:
				if err := put(ctx, r.store, record.Students, e.ID, e); err != nil {
					errs = append(errs, err)
					continue
				}
				rep.IndexRepaired++
				r.log.WithFields(logrus.Fields{"student_id": e.ID, "group_id": gid}).Warn("Restored missing student index entry")
			case !sameEnrollment(e, x):
				if err := put(ctx, r.store, record.Students, e.ID, e); err != nil {
					errs = append(errs, err)
					continue
				}
				rep.Overwritten++
				r.log.WithFields(logrus.Fields{"student_id": e.ID, "group_id": gid}).Warn("Overwrote diverged student index entry from roster")
			}
		}
	}

	for _, x := range indexed {
		roster, read := rosters[x.GroupID]
		if !read || roster[x.ID] {
			continue
		}
		if !linked[x.ID] {
			rep.Unlinked++
			continue
		}
		if err := put(ctx, r.store, record.Roster(x.GroupID), x.ID, x); err != nil {
			errs = append(errs, err)
			continue
		}
		roster[x.ID] = true
		rep.RosterRepaired++
		r.log.WithFields(logrus.Fields{"student_id": x.ID, "group_id": x.GroupID}).Warn("Restored missing roster entry")
	}

	for _, p := range payments {
		if p.StudentID == "" || p.GroupID == "" {
			continue
		}
		if rosters[p.GroupID][p.StudentID] {
			continue
		}
		if _, ok := index[p.StudentID]; ok {
			continue
		}
		rep.MissingEnrollments++
		rep.Problems = append(rep.Problems, fmt.Sprintf("payment %s (%s) has no enrollment in group %s", p.ID, p.FullName, p.GroupID))
	}
	return errors.Join(errs...)
}

func sameEnrollment(a, b group.Enrollment) bool {
	da, err := record.Encode(a)
	if err != nil {
		return false
	}
	db, err := record.Encode(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

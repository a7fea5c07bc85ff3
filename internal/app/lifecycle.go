package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/notify"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/util"
)

// LifecycleEngine moves customer records between stage collections. Every
// transition writes the destination first and deletes the source last, so a
// failure never loses the record.
type LifecycleEngine struct {
	store    record.Store
	enroller *Enroller
	notifier notify.Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewLifecycleEngine(store record.Store, enroller *Enroller, notifier notify.Notifier, log logrus.FieldLogger) *LifecycleEngine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LifecycleEngine{
		store:    store,
		enroller: enroller,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type FollowUpInput struct {
	Reason string `json:"reason" validate:"required"`
}

type PaymentInput struct {
	Tariff   string `json:"tariff" validate:"required"`
	Group    string `json:"group" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Amount   string `json:"amount" validate:"required,numeric"`
	Method   string `json:"method" validate:"required,oneof=cash card"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (in *PaymentInput) trim() {
	in.Tariff = strings.TrimSpace(in.Tariff)
	in.Group = strings.TrimSpace(in.Group)
	in.Operator = strings.TrimSpace(in.Operator)
	in.Amount = strings.TrimSpace(in.Amount)
	in.Method = strings.ToLower(strings.TrimSpace(in.Method))
	in.Date = strings.TrimSpace(in.Date)
}

type AdvanceInput struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type DeleteInput struct {
	Reason string `json:"reason" validate:"required"`
}

// PaymentResult is the outcome of a full payment. Enrollment is nil when the
// payment's group name matched no group.
type PaymentResult struct {
	Payment    customer.Payment
	Enrollment *group.Enrollment
}

// MarkForFollowUp parks a lead for later contact.
func (e *LifecycleEngine) MarkForFollowUp(ctx context.Context, op operator.Session, leadID string, in FollowUpInput) (*customer.FollowUp, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := e.check(op, customer.StageLead, customer.TriggerFollowUp); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	tid := customer.TransitionID(customer.StageLead, leadID, customer.TriggerFollowUp)
	src, err := e.source(ctx, customer.StageLead, leadID)
	if err != nil {
		var prev customer.FollowUp
		if ok, rerr := e.replayed(ctx, err, record.FollowUps, tid, &prev); ok || rerr != nil {
			return &prev, rerr
		}
		return nil, err
	}

	fu := customer.FollowUp{
		Record:     e.moved(src, tid, customer.StageLead),
		Reason:     in.Reason,
		FollowUpAt: e.now().UTC(),
	}
	err = e.commit(ctx, op, customer.TriggerFollowUp, tid, []step{
		writeStep(record.FollowUps, tid, fu),
		deleteStep(record.Leads, leadID),
	})
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return &fu, err
}

// FullPayment records a full payment for a lead or follow-up and enrolls the
// customer into the named group when the name resolves.
func (e *LifecycleEngine) FullPayment(ctx context.Context, op operator.Session, from customer.Stage, sourceID string, in PaymentInput) (*PaymentResult, error) {
	in.trim()
	if err := e.check(op, from, customer.TriggerFullPayment); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	paidOn, err := util.ParseDate(in.Date)
	if err != nil {
		return nil, newValidationError(err, FieldError{Field: "date", Rule: "datetime"})
	}

	tid := customer.TransitionID(from, sourceID, customer.TriggerFullPayment)
	srcColl, _ := from.Collection()
	src, err := e.source(ctx, from, sourceID)
	if err != nil {
		var prev customer.Payment
		if ok, rerr := e.replayed(ctx, err, record.Payments, tid, &prev); ok || rerr != nil {
			return &PaymentResult{Payment: prev}, rerr
		}
		return nil, err
	}

	g, err := e.enroller.ResolveGroup(ctx, e.store, in.Group)
	if err != nil {
		return nil, err
	}

	payment := customer.Payment{
		Record:      e.moved(src, tid, from),
		Tariff:      in.Tariff,
		Group:       in.Group,
		Operator:    in.Operator,
		Amount:      amount,
		Method:      customer.PaymentMethod(in.Method),
		PaymentDate: paidOn,
	}
	res := &PaymentResult{Payment: payment}

	steps := []step{writeStep(record.Payments, tid, &res.Payment)}
	if g != nil {
		payment.GroupID = g.ID
		payment.StudentID = group.StudentID(tid)
		res.Payment = payment
		enrollment := e.enroller.Build(payment, *g)
		res.Enrollment = &enrollment
		steps = append(steps, step{
			name: "enroll",
			soft: true,
			run: func(ctx context.Context, s record.Store, inTx bool) error {
				return e.enroller.FanOut(ctx, s, enrollment, !inTx)
			},
		})
	} else {
		e.log.WithFields(logrus.Fields{
			"transition_id": tid,
			"group":         in.Group,
		}).Warn("Payment group matches no group, enrollment skipped")
		e.alert(ctx, fmt.Sprintf("Payment of %s recorded, but group %q was not found. No enrollment was created.", payment.FullName, in.Group))
	}
	steps = append(steps, deleteStep(srcColl, sourceID))

	err = e.commit(ctx, op, customer.TriggerFullPayment, tid, steps)
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return res, err
}

// AdvancePayment records a partial pre-payment for a lead.
func (e *LifecycleEngine) AdvancePayment(ctx context.Context, op operator.Session, leadID string, in AdvanceInput) (*customer.AdvancePayment, error) {
	in.Amount = strings.TrimSpace(in.Amount)
	if err := e.check(op, customer.StageLead, customer.TriggerAdvancePayment); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}

	tid := customer.TransitionID(customer.StageLead, leadID, customer.TriggerAdvancePayment)
	src, err := e.source(ctx, customer.StageLead, leadID)
	if err != nil {
		var prev customer.AdvancePayment
		if ok, rerr := e.replayed(ctx, err, record.AdvancePayments, tid, &prev); ok || rerr != nil {
			return &prev, rerr
		}
		return nil, err
	}

	ap := customer.AdvancePayment{
		Record: e.moved(src, tid, customer.StageLead),
		Amount: amount,
		PaidAt: e.now().UTC(),
	}
	err = e.commit(ctx, op, customer.TriggerAdvancePayment, tid, []step{
		writeStep(record.AdvancePayments, tid, ap),
		deleteStep(record.Leads, leadID),
	})
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return &ap, err
}

// SoftDelete moves a lead or follow-up to the deleted collection. Leads need
// a reason; follow-ups always record FollowUpDeleteReason.
func (e *LifecycleEngine) SoftDelete(ctx context.Context, op operator.Session, from customer.Stage, sourceID string, in DeleteInput) (*customer.DeletedRecord, error) {
	if err := e.check(op, from, customer.TriggerSoftDelete); err != nil {
		return nil, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if from == customer.StageFollowUp {
		in.Reason = customer.FollowUpDeleteReason
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	tid := customer.TransitionID(from, sourceID, customer.TriggerSoftDelete)
	srcColl, _ := from.Collection()
	src, err := e.source(ctx, from, sourceID)
	if err != nil {
		var prev customer.DeletedRecord
		if ok, rerr := e.replayed(ctx, err, record.Deleted, tid, &prev); ok || rerr != nil {
			return &prev, rerr
		}
		return nil, err
	}

	del := customer.DeletedRecord{
		Record:    e.moved(src, tid, from),
		Reason:    in.Reason,
		DeletedAt: e.now().UTC(),
		FromStage: from,
	}
	err = e.commit(ctx, op, customer.TriggerSoftDelete, tid, []step{
		writeStep(record.Deleted, tid, del),
		deleteStep(srcColl, sourceID),
	})
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return &del, err
}

// Restore brings a deleted record back as a bare lead with a new id. Stage
// specific data such as payment or follow-up details is not carried over.
func (e *LifecycleEngine) Restore(ctx context.Context, op operator.Session, deletedID string) (*customer.Lead, error) {
	if err := e.check(op, customer.StageDeleted, customer.TriggerRestore); err != nil {
		return nil, err
	}

	tid := customer.TransitionID(customer.StageDeleted, deletedID, customer.TriggerRestore)
	src, err := e.source(ctx, customer.StageDeleted, deletedID)
	if err != nil {
		var prev customer.Lead
		if ok, rerr := e.replayed(ctx, err, record.Leads, tid, &prev); ok || rerr != nil {
			return &prev, rerr
		}
		return nil, err
	}

	r := src.Bare()
	r.ID = tid
	r.CreatedAt = e.now().UTC()
	r.OriginID = src.ID
	r.OriginStage = customer.StageDeleted
	lead := customer.Lead{Record: r}

	err = e.commit(ctx, op, customer.TriggerRestore, tid, []step{
		writeStep(record.Leads, tid, lead),
		deleteStep(record.Deleted, deletedID),
	})
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return &lead, err
}

// Purge permanently removes a deleted record. Purging an id that is already
// gone succeeds.
func (e *LifecycleEngine) Purge(ctx context.Context, op operator.Session, deletedID string) error {
	if err := e.check(op, customer.StageDeleted, customer.TriggerPurge); err != nil {
		return err
	}
	tid := customer.TransitionID(customer.StageDeleted, deletedID, customer.TriggerPurge)
	return e.commit(ctx, op, customer.TriggerPurge, tid, []step{
		deleteStep(record.Deleted, deletedID),
	})
}

func (e *LifecycleEngine) check(op operator.Session, from customer.Stage, t customer.Trigger) error {
	if !op.Authenticated() {
		return ErrNotAuthorized
	}
	if _, ok := customer.Next(from, t); !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, t, from)
	}
	return nil
}

func (e *LifecycleEngine) source(ctx context.Context, from customer.Stage, id string) (customer.Record, error) {
	var src customer.Record
	c, ok := from.Collection()
	if !ok {
		return src, fmt.Errorf("%w: stage %s holds no records", ErrInvalidTransition, from)
	}
	if err := getInto(ctx, e.store, c, id, &src); err != nil {
		return src, err
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = e.now().UTC()
	}
	return src, nil
}

// replayed checks whether a transition whose source is gone was already
// applied, in which case the stored destination is decoded into v.
func (e *LifecycleEngine) replayed(ctx context.Context, srcErr error, dest record.Collection, tid string, v interface{}) (bool, error) {
	if !errors.Is(srcErr, record.ErrNotFound) {
		return false, nil
	}
	err := getInto(ctx, e.store, dest, tid, v)
	switch {
	case errors.Is(err, record.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	e.log.WithField("transition_id", tid).Info("Transition already applied, returning stored result")
	return true, nil
}

func (e *LifecycleEngine) moved(src customer.Record, tid string, from customer.Stage) customer.Record {
	r := src
	r.ID = tid
	r.OriginID = src.ID
	r.OriginStage = from
	return r
}

type step struct {
	name string
	// soft steps may fail without stopping the transition.
	soft bool
	run  func(ctx context.Context, s record.Store, inTx bool) error
}

func writeStep(c record.Collection, id string, v interface{}) step {
	return step{
		name: "write " + string(c),
		run: func(ctx context.Context, s record.Store, _ bool) error {
			return put(ctx, s, c, id, v)
		},
	}
}

func deleteStep(c record.Collection, id string) step {
	return step{
		name: "delete " + string(c),
		run: func(ctx context.Context, s record.Store, _ bool) error {
			return remove(ctx, s, c, id)
		},
	}
}

// commit runs the steps in order. Stores that support transactions apply all
// of them or none. Otherwise a failure after the first write is reported as a
// PartialApplicationError and the operators are alerted.
func (e *LifecycleEngine) commit(ctx context.Context, op operator.Session, t customer.Trigger, tid string, steps []step) error {
	log := e.log.WithFields(logrus.Fields{
		"transition_id": tid,
		"trigger":       t,
		"operator":      op.Name,
	})

	if tx, ok := e.store.(record.Transactional); ok {
		err := tx.WithinTx(ctx, func(ctx context.Context, s record.Store) error {
			for _, st := range steps {
				if err := st.run(ctx, s, true); err != nil {
					return fmt.Errorf("%s: %w", st.name, err)
				}
			}
			return nil
		})
		if err != nil {
			log.WithError(err).Error("Transition rolled back")
			return err
		}
		log.Info("Transition applied")
		return nil
	}

	var (
		done, failed []string
		errs         []error
	)
	for _, st := range steps {
		err := st.run(ctx, e.store, false)
		if err == nil {
			done = append(done, st.name)
			continue
		}
		var partial *PartialApplicationError
		if errors.As(err, &partial) {
			done = append(done, partial.Completed...)
			failed = append(failed, partial.Failed...)
		} else {
			failed = append(failed, st.name)
		}
		errs = append(errs, err)
		if st.soft {
			continue
		}
		if len(done) == 0 {
			log.WithError(err).Error("Transition aborted before any write")
			return err
		}
		break
	}
	if len(failed) == 0 {
		log.Info("Transition applied")
		return nil
	}

	perr := &PartialApplicationError{
		TransitionID: tid,
		Completed:    done,
		Failed:       failed,
		Err:          errors.Join(errs...),
	}
	log.WithError(perr).Error("Transition partially applied")
	e.alert(ctx, "Transition "+string(t)+" was only partially applied: "+perr.Error())
	return perr
}

func (e *LifecycleEngine) alert(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, text); err != nil {
		e.log.WithError(err).Warn("Failed to notify operators")
	}
}

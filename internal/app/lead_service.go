package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// LeadService registers leads and serves the per-stage lists of the console.
type LeadService struct {
	store record.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewLeadService(store record.Store, log logrus.FieldLogger) *LeadService {
	return &LeadService{store: store, log: log, now: time.Now}
}

type LeadInput struct {
	FullName         string `json:"full_name" validate:"required"`
	Phone            string `json:"phone" validate:"required"`
	SecondaryContact string `json:"secondary_contact"`
}

func (in *LeadInput) trim() {
	in.FullName = strings.Join(strings.Fields(in.FullName), " ")
	in.Phone = strings.TrimSpace(in.Phone)
	in.SecondaryContact = strings.TrimSpace(in.SecondaryContact)
}

// Create registers a new lead.
func (s *LeadService) Create(ctx context.Context, op operator.Session, in LeadInput) (*customer.Lead, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	in.trim()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	lead := customer.Lead{Record: customer.Record{
		FullName:         in.FullName,
		Phone:            in.Phone,
		SecondaryContact: in.SecondaryContact,
		CreatedAt:        s.now().UTC(),
	}}
	id, err := insert(ctx, s.store, record.Leads, lead)
	if err != nil {
		return nil, err
	}
	lead.ID = id
	s.log.WithField("lead_id", id).Info("Lead created")
	return &lead, nil
}

// Update edits the contact data of a lead. Editing a lead that no longer
// exists fails with record.ErrNotFound instead of recreating it.
func (s *LeadService) Update(ctx context.Context, op operator.Session, id string, in LeadInput) (*customer.Lead, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	in.trim()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var lead customer.Lead
	if err := getInto(ctx, s.store, record.Leads, id, &lead); err != nil {
		return nil, err
	}
	lead.FullName = in.FullName
	lead.Phone = in.Phone
	lead.SecondaryContact = in.SecondaryContact
	if err := put(ctx, s.store, record.Leads, id, lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// List lists leads, newest first.
func (s *LeadService) List(ctx context.Context) ([]customer.Lead, error) {
	leads, err := listInto[customer.Lead](ctx, s.store, record.Leads)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].CreatedAt.After(leads[j].CreatedAt) })
	return leads, nil
}

// ListFollowUps lists follow-ups ordered by their follow-up time.
func (s *LeadService) ListFollowUps(ctx context.Context) ([]customer.FollowUp, error) {
	out, err := listInto[customer.FollowUp](ctx, s.store, record.FollowUps)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FollowUpAt.Before(out[j].FollowUpAt) })
	return out, nil
}

func (s *LeadService) ListPayments(ctx context.Context) ([]customer.Payment, error) {
	out, err := listInto[customer.Payment](ctx, s.store, record.Payments)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

func (s *LeadService) ListAdvancePayments(ctx context.Context) ([]customer.AdvancePayment, error) {
	out, err := listInto[customer.AdvancePayment](ctx, s.store, record.AdvancePayments)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

func (s *LeadService) ListDeleted(ctx context.Context) ([]customer.DeletedRecord, error) {
	out, err := listInto[customer.DeletedRecord](ctx, s.store, record.Deleted)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	return out, nil
}

package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/debt"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// DebtService edits the debt ledger. Debts are entered by operators and are
// not touched by stage transitions.
type DebtService struct {
	store record.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewDebtService(store record.Store, log logrus.FieldLogger) *DebtService {
	return &DebtService{store: store, log: log, now: time.Now}
}

type DebtInput struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname"`
	Phone   string `json:"phone"`
	GroupID string `json:"group_id" validate:"required"`
	Amount  string `json:"amount" validate:"required,numeric"`
}

func (s *DebtService) Create(ctx context.Context, op operator.Session, in DebtInput) (*debt.Record, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Phone = strings.TrimSpace(in.Phone)
	in.GroupID = strings.TrimSpace(in.GroupID)
	in.Amount = strings.TrimSpace(in.Amount)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}

	d := debt.Record{
		Name:      in.Name,
		Surname:   in.Surname,
		Phone:     in.Phone,
		GroupID:   in.GroupID,
		Amount:    amount,
		UpdatedAt: s.now().UTC(),
	}
	id, err := insert(ctx, s.store, record.Debts, d)
	if err != nil {
		return nil, err
	}
	d.ID = id
	s.log.WithFields(logrus.Fields{"debt_id": id, "group_id": d.GroupID}).Info("Debt recorded")
	return &d, nil
}

// SetAmount replaces the outstanding amount of a debt. The amount must not be
// negative and the debt must exist.
func (s *DebtService) SetAmount(ctx context.Context, op operator.Session, id, amount string) (*debt.Record, error) {
	if !op.Authenticated() {
		return nil, ErrNotAuthorized
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, newValidationError(nil, FieldError{Field: "amount", Rule: "required"})
	}
	value, err := parseAmount("amount", amount)
	if err != nil {
		return nil, err
	}

	var d debt.Record
	if err := getInto(ctx, s.store, record.Debts, id, &d); err != nil {
		return nil, err
	}
	d.Amount = value
	d.UpdatedAt = s.now().UTC()
	if err := put(ctx, s.store, record.Debts, id, d); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"debt_id": id, "amount": value.String()}).Info("Debt amount updated")
	return &d, nil
}

// ListByGroup returns the debts of a group, largest first.
func (s *DebtService) ListByGroup(ctx context.Context, groupID string) ([]debt.Record, error) {
	out, err := listWhereInto[debt.Record](ctx, s.store, record.Debts, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	return out, nil
}

// Delete removes a debt. Deleting a missing debt is a no-op.
func (s *DebtService) Delete(ctx context.Context, op operator.Session, id string) error {
	if !op.Authenticated() {
		return ErrNotAuthorized
	}
	return remove(ctx, s.store, record.Debts, id)
}

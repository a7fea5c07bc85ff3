package customer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the identity and contact data shared by every stage.
type Record struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone"`
	SecondaryContact string    `json:"secondary_contact,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	// OriginID and OriginStage point at the record this one was moved from.
	OriginID    string `json:"origin_id,omitempty"`
	OriginStage Stage  `json:"origin_stage,omitempty"`
}

// Bare keeps only the contact data of r.
func (r Record) Bare() Record {
	return Record{
		FullName:         r.FullName,
		Phone:            r.Phone,
		SecondaryContact: r.SecondaryContact,
	}
}

// Lead is a newly registered prospective customer.
type Lead struct {
	Record
}

// FollowUp is a lead parked for later contact.
type FollowUp struct {
	Record
	Reason     string    `json:"reason"`
	FollowUpAt time.Time `json:"follow_up_at"`
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

// Payment is a fully paid customer.
type Payment struct {
	Record
	Tariff      string          `json:"tariff"`
	Group       string          `json:"group"`
	Operator    string          `json:"operator"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"payment_date"`
	// GroupID and StudentID are set when the group name resolved and an
	// enrollment was fanned out.
	GroupID   string `json:"group_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
}

// AdvancePayment is a customer who made a partial pre-payment.
type AdvancePayment struct {
	Record
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paid_at"`
}

// DeletedRecord is a soft-deleted customer.
type DeletedRecord struct {
	Record
	Reason    string    `json:"reason"`
	DeletedAt time.Time `json:"deleted_at"`
	FromStage Stage     `json:"from_stage"`
}

// FollowUpDeleteReason is recorded when a follow-up record is soft-deleted.
const FollowUpDeleteReason = "from follow-up"

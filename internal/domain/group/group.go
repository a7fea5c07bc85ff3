package group

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
)

// Group is a class of students, optionally owned by a teacher.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID *string   `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnedBy reports whether teacherID owns the group.
func (g Group) OwnedBy(teacherID string) bool {
	return g.TeacherID != nil && *g.TeacherID == teacherID
}

// MatchesName compares a payment's group reference with the display name,
// ignoring case and surrounding spaces.
func (g Group) MatchesName(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref != "" && strings.EqualFold(strings.TrimSpace(g.Name), ref)
}

// Enrollment is the student projection written on a Paid transition. The same
// value lives in the group roster and in the flat student index.
type Enrollment struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Phone            string                 `json:"phone"`
	SecondaryContact string                 `json:"secondary_contact,omitempty"`
	Tariff           string                 `json:"tariff"`
	Amount           decimal.Decimal        `json:"amount"`
	Method           customer.PaymentMethod `json:"method"`
	Operator         string                 `json:"operator"`
	EnrolledAt       time.Time              `json:"enrolled_at"`
	GroupID          string                 `json:"group_id"`
	TeacherID        string                 `json:"teacher_id,omitempty"`
	PaymentID        string                 `json:"payment_id"`
}

var studentNamespace = uuid.MustParse("0b7d4a52-93a4-4e0f-8f6c-6c1a1f2e9b47")

// StudentID derives the student id shared by both representations of the
// enrollment created from paymentID.
func StudentID(paymentID string) string {
	return uuid.NewSHA1(studentNamespace, []byte("enrollment:"+paymentID)).String()
}

// CascadePolicy decides what happens to a group's dependents on delete.
type CascadePolicy int

const (
	// Orphan keeps roster, index entries and attendance of the deleted group.
	Orphan CascadePolicy = iota + 1
	// Cascade removes them together with the group.
	Cascade
)

func (p CascadePolicy) String() string {
	switch p {
	case Orphan:
		return "orphan"
	case Cascade:
		return "cascade"
	default:
		return "unknown"
	}
}

// DeleteScope selects which representation of an enrollment is removed.
type DeleteScope int

const (
	RosterOnly DeleteScope = iota + 1
	IndexOnly
	Both
)

func (s DeleteScope) String() string {
	switch s {
	case RosterOnly:
		return "roster"
	case IndexOnly:
		return "index"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

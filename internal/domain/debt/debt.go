package debt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is an outstanding balance of a student in a group. It is edited
// directly by operators and never produced by stage transitions.
type Record struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Surname   string          `json:"surname"`
	Phone     string          `json:"phone"`
	GroupID   string          `json:"group_id"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

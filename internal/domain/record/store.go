package record

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by GetByID when no document has the given id.
var ErrNotFound = errors.New("record not found")

// Collection names a logical document collection of the record store.
type Collection string

const (
	Leads              Collection = "leads"
	FollowUps          Collection = "followups"
	Payments           Collection = "payments"
	AdvancePayments    Collection = "advance_payments"
	Deleted            Collection = "deleted"
	Groups             Collection = "groups"
	Students           Collection = "students" // flat student index
	AttendanceSessions Collection = "attendance_sessions"
	Debts              Collection = "debts"
)

const rosterPrefix = "groups/"
const rosterSuffix = "/students"

// Roster returns the per-group roster sub-collection of a group.
func Roster(groupID string) Collection {
	return Collection(rosterPrefix + groupID + rosterSuffix)
}

// RosterGroupID reports the owning group id of a roster sub-collection.
func RosterGroupID(c Collection) (string, bool) {
	s := string(c)
	if !strings.HasPrefix(s, rosterPrefix) || !strings.HasSuffix(s, rosterSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(s, rosterPrefix), rosterSuffix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Document is the schemaless field set of a stored record. Stores always
// return the record id under the "id" key.
type Document map[string]interface{}

// ID returns the "id" field of the document, or "" when absent.
func (d Document) ID() string {
	if v, ok := d[FieldID].(string); ok {
		return v
	}
	return ""
}

// FieldID is the document key carrying the record id.
const FieldID = "id"

// Store is the document database the core reads and mutates. Every call may
// fail with a transport error.
type Store interface {
	ListAll(ctx context.Context, c Collection) ([]Document, error)
	// ListWhere returns documents whose field equals value.
	ListWhere(ctx context.Context, c Collection, field string, value interface{}) ([]Document, error)
	// GetByID returns ErrNotFound when the id is absent.
	GetByID(ctx context.Context, c Collection, id string) (Document, error)
	// Upsert replaces the document stored under id, creating it if needed.
	Upsert(ctx context.Context, c Collection, id string, fields Document) error
	// Insert stores fields under a freshly generated id.
	Insert(ctx context.Context, c Collection, fields Document) (string, error)
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, c Collection, id string) error
}

// Transactional is implemented by stores that can apply several writes as a
// single unit. fn receives a Store bound to the transaction; returning an
// error from fn rolls every write back.
type Transactional interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

package attendance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
	Excused Status = "excused"
)

var (
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrReasonRequired   = errors.New("excused mark requires a reason")
	ErrUnexpectedReason = errors.New("only excused marks carry a reason")
)

// Mark is the attendance of one student in one session: a bare Present or
// Absent, or Excused with a mandatory reason. The zero Mark is invalid.
type Mark struct {
	status Status
	reason string
}

// NewMark validates status and reason. Reason is trimmed; it must be non-empty
// for Excused and empty otherwise.
func NewMark(status Status, reason string) (Mark, error) {
	reason = strings.TrimSpace(reason)
	switch status {
	case Present, Absent:
		if reason != "" {
			return Mark{}, ErrUnexpectedReason
		}
		return Mark{status: status}, nil
	case Excused:
		if reason == "" {
			return Mark{}, ErrReasonRequired
		}
		return Mark{status: Excused, reason: reason}, nil
	default:
		return Mark{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

// PresentMark is the default mark of a newly opened session.
func PresentMark() Mark { return Mark{status: Present} }

func AbsentMark() Mark { return Mark{status: Absent} }

// ExcusedMark is a shorthand for NewMark(Excused, reason).
func ExcusedMark(reason string) (Mark, error) { return NewMark(Excused, reason) }

func (m Mark) Status() Status { return m.status }

func (m Mark) Reason() string { return m.reason }

func (m Mark) Valid() bool {
	_, err := NewMark(m.status, m.reason)
	return err == nil
}

type excusedJSON struct {
	Status Status `json:"status"`
	Reason string `json:"reason"`
}

// MarshalJSON writes Present/Absent as a bare string and Excused as an
// object with its reason.
func (m Mark) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("marshal attendance mark: %w", ErrInvalidStatus)
	}
	if m.status == Excused {
		return json.Marshal(excusedJSON{Status: Excused, Reason: m.reason})
	}
	return json.Marshal(string(m.status))
}

func (m *Mark) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		parsed, err := NewMark(Status(bare), "")
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	var obj excusedJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal attendance mark: %w", err)
	}
	parsed, err := NewMark(obj.Status, obj.Reason)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

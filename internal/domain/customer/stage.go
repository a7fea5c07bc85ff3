package customer

import (
	"github.com/google/uuid"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

// Stage is the life-stage of a customer record. A record's stage is the
// collection currently holding it.
type Stage string

const (
	StageLead        Stage = "lead"
	StageFollowUp    Stage = "followup"
	StagePaid        Stage = "paid"
	StageAdvancePaid Stage = "advance_paid"
	StageDeleted     Stage = "deleted"
	// StagePurged has no collection: the record is gone for good.
	StagePurged Stage = "purged"
)

// Collection returns the stage-collection holding records of this stage.
func (s Stage) Collection() (record.Collection, bool) {
	switch s {
	case StageLead:
		return record.Leads, true
	case StageFollowUp:
		return record.FollowUps, true
	case StagePaid:
		return record.Payments, true
	case StageAdvancePaid:
		return record.AdvancePayments, true
	case StageDeleted:
		return record.Deleted, true
	default:
		return "", false
	}
}

// Trigger is an operator action that moves a record between stages.
type Trigger string

const (
	TriggerFollowUp       Trigger = "mark-for-followup"
	TriggerFullPayment    Trigger = "full-payment"
	TriggerAdvancePayment Trigger = "advance-payment"
	TriggerSoftDelete     Trigger = "soft-delete"
	TriggerRestore        Trigger = "restore"
	TriggerPurge          Trigger = "purge"
)

var transitions = map[Stage]map[Trigger]Stage{
	StageLead: {
		TriggerFollowUp:       StageFollowUp,
		TriggerFullPayment:    StagePaid,
		TriggerAdvancePayment: StageAdvancePaid,
		TriggerSoftDelete:     StageDeleted,
	},
	StageFollowUp: {
		TriggerFullPayment: StagePaid,
		TriggerSoftDelete:  StageDeleted,
	},
	StageDeleted: {
		TriggerRestore: StageLead,
		TriggerPurge:   StagePurged,
	},
}

// Next returns the destination stage of trigger t fired in stage from.
func Next(from Stage, t Trigger) (Stage, bool) {
	to, ok := transitions[from][t]
	return to, ok
}

// Stages lists every stage that owns a collection, in lifecycle order.
func Stages() []Stage {
	return []Stage{StageLead, StageFollowUp, StagePaid, StageAdvancePaid, StageDeleted}
}

var transitionNamespace = uuid.MustParse("6f1c3f0e-5b0a-4c59-9d1e-2a7b9e3c4d10")

// TransitionID derives the identity of firing t on the record sourceID held in
// stage from. Re-running the same transition yields the same id, which is
// also used as the destination record id.
func TransitionID(from Stage, sourceID string, t Trigger) string {
	key := string(from) + ":" + sourceID + ":" + string(t)
	return uuid.NewSHA1(transitionNamespace, []byte(key)).String()
}

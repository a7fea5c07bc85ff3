package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Stage
		trigger Trigger
		want    Stage
		ok      bool
	}{
		{StageLead, TriggerFollowUp, StageFollowUp, true},
		{StageLead, TriggerFullPayment, StagePaid, true},
		{StageLead, TriggerAdvancePayment, StageAdvancePaid, true},
		{StageLead, TriggerSoftDelete, StageDeleted, true},
		{StageFollowUp, TriggerFullPayment, StagePaid, true},
		{StageFollowUp, TriggerSoftDelete, StageDeleted, true},
		{StageDeleted, TriggerRestore, StageLead, true},
		{StageDeleted, TriggerPurge, StagePurged, true},
		{StageFollowUp, TriggerFollowUp, "", false},
		{StageFollowUp, TriggerAdvancePayment, "", false},
		{StagePaid, TriggerSoftDelete, "", false},
		{StageAdvancePaid, TriggerFullPayment, "", false},
		{StageLead, TriggerRestore, "", false},
		{StageLead, TriggerPurge, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trigger), func(t *testing.T) {
			got, ok := Next(tt.from, tt.trigger)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransitionID(t *testing.T) {
	id := TransitionID(StageLead, "abc", TriggerFollowUp)

	assert.Equal(t, id, TransitionID(StageLead, "abc", TriggerFollowUp))
	assert.NotEqual(t, id, TransitionID(StageLead, "abc", TriggerSoftDelete))
	assert.NotEqual(t, id, TransitionID(StageLead, "abd", TriggerFollowUp))
	assert.Len(t, id, 36)
}

func TestStageCollections(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Stages() {
		c, ok := s.Collection()
		assert.True(t, ok, s)
		assert.False(t, seen[string(c)], "collection %s reused", c)
		seen[string(c)] = true
	}
	_, ok := StagePurged.Collection()
	assert.False(t, ok)
}

func TestBareKeepsContactOnly(t *testing.T) {
	r := Record{ID: "x", FullName: "Aziz", Phone: "+998", SecondaryContact: "@aziz", OriginID: "y", OriginStage: StageLead}

	assert.Equal(t, Record{FullName: "Aziz", Phone: "+998", SecondaryContact: "@aziz"}, r.Bare())
}

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

func TestReconcilerRemovesStaleSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lead := newLead(t, f, "Aziz", "+998901112233")
	f.store.fail("delete", record.Leads)

	_, err := f.engine.AdvancePayment(ctx, admin, lead.ID, app.AdvanceInput{Amount: "1000"})
	require.Error(t, err)
	require.Equal(t, 1, f.mem.Count(record.Leads))

	f.store.heal()
	rep, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.StaleSources)
	assert.Equal(t, 0, f.mem.Count(record.Leads))
	assert.Equal(t, 1, f.mem.Count(record.AdvancePayments))
	assert.NotEmpty(t, f.notifier.Messages())
}

func TestReconcilerRepairsEnrollments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	g, ids := enrolledGroup(t, f)

	// index entry lost
	require.NoError(t, f.mem.Delete(ctx, record.Students, ids[0]))
	// index entry diverged from the roster
	doc, err := f.mem.GetByID(ctx, record.Students, ids[1])
	require.NoError(t, err)
	doc["tariff"] = "standard"
	require.NoError(t, f.mem.Upsert(ctx, record.Students, ids[1], doc))
	// roster entry lost
	require.NoError(t, f.mem.Delete(ctx, record.Roster(g.ID), ids[2]))

	rep, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.IndexRepaired)
	assert.Equal(t, 1, rep.Overwritten)
	assert.Equal(t, 1, rep.RosterRepaired)
	assert.Zero(t, rep.MissingEnrollments)

	students, err := f.groups.Students(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)
	for _, s := range students {
		assert.Equal(t, "premium", s.Tariff)
	}
	assert.Equal(t, 3, f.mem.Count(record.Roster(g.ID)))

	again, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Repaired())
}

func TestReconcilerReportsMissingEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	g, ids := enrolledGroup(t, f)
	require.NoError(t, f.mem.Delete(ctx, record.Students, ids[0]))
	require.NoError(t, f.mem.Delete(ctx, record.Roster(g.ID), ids[0]))

	rep, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.MissingEnrollments)
	require.Len(t, rep.Problems, 1)
	assert.Contains(t, rep.Problems[0], g.ID)
	assert.Equal(t, 2, f.mem.Count(record.Students))
}

func TestReconcilerLeavesUnlinkedEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	g := newGroup(t, f, "G1")
	stray := group.Enrollment{ID: "manual-1", Name: "Walk-in", GroupID: g.ID, EnrolledAt: time.Now().UTC()}
	doc, err := record.Encode(stray)
	require.NoError(t, err)
	require.NoError(t, f.mem.Upsert(ctx, record.Roster(g.ID), stray.ID, doc))

	rep, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Unlinked)
	assert.Zero(t, rep.Repaired())
	assert.Equal(t, 0, f.mem.Count(record.Students))
}

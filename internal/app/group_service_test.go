package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/group"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.groups.Create(ctx, admin, app.GroupInput{Name: " "})
	assert.True(t, app.IsValidation(err))

	_, err = f.groups.Create(ctx, operator.Session{Role: operator.RoleTeacher, TeacherID: "t1"}, app.GroupInput{Name: "G1"})
	assert.ErrorIs(t, err, app.ErrNotAuthorized)

	g := newGroup(t, f, "G1")
	assert.NotEmpty(t, g.ID)
	assert.Nil(t, g.TeacherID)

	_, err = f.groups.Create(ctx, admin, app.GroupInput{Name: "g1"})
	assert.ErrorIs(t, err, app.ErrGroupAlreadyExists)

	got, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "G1", got.Name)

	_, err = f.groups.Get(ctx, "missing")
	assert.ErrorIs(t, err, app.ErrGroupNotFound)
}

func TestListGroupsByRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.groups.Create(ctx, admin, app.GroupInput{Name: "Morning", TeacherID: "t1"})
	require.NoError(t, err)
	_, err = f.groups.Create(ctx, admin, app.GroupInput{Name: "Evening", TeacherID: "t2"})
	require.NoError(t, err)

	tests := []struct {
		name string
		op   operator.Session
		want []string
		err  error
	}{
		{"admin sees all", admin, []string{"Morning", "Evening"}, nil},
		{"manager sees all", operator.Session{Role: operator.RoleManager}, []string{"Morning", "Evening"}, nil},
		{"teacher sees own", operator.Session{Role: operator.RoleTeacher, TeacherID: "t2"}, []string{"Evening"}, nil},
		{"signed out", operator.Session{Role: operator.RoleUnauthenticated}, nil, app.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := f.groups.List(ctx, tt.op)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, g := range groups {
				names = append(names, g.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDeleteGroupPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("orphan keeps dependents", func(t *testing.T) {
		f := newFixture()
		g, _ := enrolledGroup(t, f)
		sess, err := f.attendance.OpenSession(ctx, admin, g.ID, jan10)
		require.NoError(t, err)
		_, err = f.attendance.Save(ctx, admin, sess)
		require.NoError(t, err)

		require.NoError(t, f.groups.Delete(ctx, admin, g.ID, group.Orphan))
		assert.Equal(t, 0, f.mem.Count(record.Groups))
		assert.Equal(t, 3, f.mem.Count(record.Roster(g.ID)))
		assert.Equal(t, 3, f.mem.Count(record.Students))
		assert.Equal(t, 1, f.mem.Count(record.AttendanceSessions))
	})

	t.Run("cascade removes dependents", func(t *testing.T) {
		f := newFixture()
		g, _ := enrolledGroup(t, f)
		sess, err := f.attendance.OpenSession(ctx, admin, g.ID, jan10)
		require.NoError(t, err)
		_, err = f.attendance.Save(ctx, admin, sess)
		require.NoError(t, err)

		require.NoError(t, f.groups.Delete(ctx, admin, g.ID, group.Cascade))
		assert.Equal(t, 0, f.mem.Count(record.Groups))
		assert.Equal(t, 0, f.mem.Count(record.Roster(g.ID)))
		assert.Equal(t, 0, f.mem.Count(record.Students))
		assert.Equal(t, 0, f.mem.Count(record.AttendanceSessions))
		assert.Equal(t, 3, f.mem.Count(record.Payments))

		payments, err := f.leads.ListPayments(ctx)
		require.NoError(t, err)
		for _, p := range payments {
			assert.Empty(t, p.StudentID)
		}
	})

	t.Run("policy is required", func(t *testing.T) {
		f := newFixture()
		g := newGroup(t, f, "G1")
		err := f.groups.Delete(ctx, admin, g.ID, 0)
		assert.True(t, app.IsValidation(err))
		assert.Equal(t, 1, f.mem.Count(record.Groups))
	})

	t.Run("missing group", func(t *testing.T) {
		f := newFixture()
		assert.NoError(t, f.groups.Delete(ctx, admin, "missing", group.Orphan))
	})
}

func TestDeleteEnrollmentScopes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		scope      group.DeleteScope
		wantRoster int
		wantIndex  int
	}{
		{group.RosterOnly, 2, 3},
		{group.IndexOnly, 3, 2},
		{group.Both, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.scope.String(), func(t *testing.T) {
			f := newFixture()
			g, ids := enrolledGroup(t, f)

			require.NoError(t, f.groups.DeleteEnrollment(ctx, admin, g.ID, ids[0], tt.scope))
			assert.Equal(t, tt.wantRoster, f.mem.Count(record.Roster(g.ID)))
			assert.Equal(t, tt.wantIndex, f.mem.Count(record.Students))

			rep, err := f.reconciler.Run(ctx)
			require.NoError(t, err)
			assert.Zero(t, rep.Repaired(), "a deliberate delete must not be undone")
			assert.Zero(t, rep.MissingEnrollments)
			assert.Equal(t, tt.wantRoster, f.mem.Count(record.Roster(g.ID)))
			assert.Equal(t, tt.wantIndex, f.mem.Count(record.Students))
		})
	}

	t.Run("scope is required", func(t *testing.T) {
		f := newFixture()
		g, ids := enrolledGroup(t, f)
		err := f.groups.DeleteEnrollment(ctx, admin, g.ID, ids[0], 0)
		assert.True(t, app.IsValidation(err))
	})
}

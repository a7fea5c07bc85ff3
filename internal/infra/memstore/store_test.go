package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, record.Leads, record.Document{"full_name": "Aziz", "phone": "+998901112233"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.GetByID(ctx, record.Leads, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, "Aziz", doc["full_name"])

	doc["full_name"] = "mutated"
	again, err := s.GetByID(ctx, record.Leads, id)
	require.NoError(t, err)
	assert.Equal(t, "Aziz", again["full_name"], "returned documents must be copies")

	require.NoError(t, s.Upsert(ctx, record.Leads, id, record.Document{"full_name": "Aziz K."}))
	again, err = s.GetByID(ctx, record.Leads, id)
	require.NoError(t, err)
	assert.Equal(t, "Aziz K.", again["full_name"])
	assert.NotContains(t, again, "phone", "upsert replaces the whole document")

	require.NoError(t, s.Delete(ctx, record.Leads, id))
	_, err = s.GetByID(ctx, record.Leads, id)
	assert.ErrorIs(t, err, record.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, record.Leads, id), "deleting a missing id is a no-op")
	assert.NoError(t, s.Delete(ctx, record.Groups, "nope"))
}

func TestStoreListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, record.Groups, id, record.Document{"name": id}))
	}
	require.NoError(t, s.Upsert(ctx, record.Groups, "c", record.Document{"name": "c2"}))

	docs, err := s.ListAll(ctx, record.Groups)
	require.NoError(t, err)
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID())
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	empty, err := s.ListAll(ctx, record.Debts)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreListWhere(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Upsert(ctx, record.Debts, "1", record.Document{"group_id": "g1", "n": 5}))
	require.NoError(t, s.Upsert(ctx, record.Debts, "2", record.Document{"group_id": "g2", "n": 5.0}))
	require.NoError(t, s.Upsert(ctx, record.Debts, "3", record.Document{"group_id": "g1"}))

	byGroup, err := s.ListWhere(ctx, record.Debts, "group_id", "g1")
	require.NoError(t, err)
	assert.Len(t, byGroup, 2)

	byNumber, err := s.ListWhere(ctx, record.Debts, "n", 5)
	require.NoError(t, err)
	assert.Len(t, byNumber, 2)

	none, err := s.ListWhere(ctx, record.Debts, "missing", "x")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTxStoreRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewTransactional()
	require.NoError(t, s.Upsert(ctx, record.Leads, "l1", record.Document{"full_name": "Aziz"}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx record.Store) error {
		require.NoError(t, tx.Upsert(ctx, record.FollowUps, "f1", record.Document{"reason": "later"}))
		require.NoError(t, tx.Delete(ctx, record.Leads, "l1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Count(record.Leads))
	assert.Equal(t, 0, s.Count(record.FollowUps))

	err = s.WithinTx(ctx, func(ctx context.Context, tx record.Store) error {
		if err := tx.Upsert(ctx, record.FollowUps, "f1", record.Document{"reason": "later"}); err != nil {
			return err
		}
		return tx.Delete(ctx, record.Leads, "l1")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count(record.Leads))
	assert.Equal(t, 1, s.Count(record.FollowUps))
}

func TestRosterCollections(t *testing.T) {
	c := record.Roster("g1")
	id, ok := record.RosterGroupID(c)
	assert.True(t, ok)
	assert.Equal(t, "g1", id)

	_, ok = record.RosterGroupID(record.Students)
	assert.False(t, ok)
}

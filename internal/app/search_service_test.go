package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/customer"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

func TestShortQueryDoesNotReadStore(t *testing.T) {
	f := newFixture()
	before := f.store.Calls()

	for _, q := range []string{"", " ", "a", " b "} {
		found, err := f.search.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, found)
	}
	assert.Equal(t, before, f.store.Calls())
}

func TestSearchAcrossCollections(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	newGroup(t, f, "G1")

	newLead(t, f, "Ali Vali", "+998901234567")
	newLead(t, f, "Valiyev Sardor", "+998935556677")
	paid := newLead(t, f, "Aziz Karimov", "+998971112233")
	_, err := f.engine.FullPayment(ctx, admin, customer.StageLead, paid.ID, premiumPayment("G1"))
	require.NoError(t, err)
	_, err = f.debts.Create(ctx, admin, app.DebtInput{Name: "Ali", Surname: "Usmonov", Phone: "+998990001122", GroupID: "g1", Amount: "1000"})
	require.NoError(t, err)

	tests := []struct {
		query string
		want  map[record.Collection]int
	}{
		{"ali", map[record.Collection]int{record.Leads: 1, record.Debts: 1}},
		{"usmonov ali", map[record.Collection]int{record.Debts: 1}},
		{"aziz karimov", map[record.Collection]int{record.Payments: 1, record.Students: 1}},
		{"karimov", map[record.Collection]int{record.Payments: 1, record.Students: 1}},
		{"0123", map[record.Collection]int{record.Leads: 1}},
		{"99", map[record.Collection]int{}},
		{"nobody", map[record.Collection]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			found, err := f.search.Search(ctx, tt.query)
			require.NoError(t, err)
			got := map[record.Collection]int{}
			for _, e := range found {
				got[e.Collection]++
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchReportsTransportErrors(t *testing.T) {
	f := newFixture()
	f.store.fail("list", record.Debts)

	_, err := f.search.Search(context.Background(), "ali")
	var terr *app.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, record.Debts, terr.Collection)
}

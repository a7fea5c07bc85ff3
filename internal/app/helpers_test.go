package app_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/operator"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/infra/memstore"
)

var errInjected = errors.New("injected transport failure")

var admin = operator.Session{Role: operator.RoleAdmin, Name: "Nodira"}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// faultStore fails one operation on one collection and counts every call.
type faultStore struct {
	record.Store

	mu       sync.Mutex
	failOp   string
	failColl record.Collection
	calls    int
}

func newFaultStore(inner record.Store) *faultStore {
	return &faultStore{Store: inner}
}

func (f *faultStore) fail(op string, c record.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOp, f.failColl = op, c
}

func (f *faultStore) heal() { f.fail("", "") }

func (f *faultStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faultStore) hit(op string, c record.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if op == f.failOp && c == f.failColl {
		return errInjected
	}
	return nil
}

func (f *faultStore) ListAll(ctx context.Context, c record.Collection) ([]record.Document, error) {
	if err := f.hit("list", c); err != nil {
		return nil, err
	}
	return f.Store.ListAll(ctx, c)
}

func (f *faultStore) ListWhere(ctx context.Context, c record.Collection, field string, value interface{}) ([]record.Document, error) {
	if err := f.hit("list", c); err != nil {
		return nil, err
	}
	return f.Store.ListWhere(ctx, c, field, value)
}

func (f *faultStore) GetByID(ctx context.Context, c record.Collection, id string) (record.Document, error) {
	if err := f.hit("get", c); err != nil {
		return nil, err
	}
	return f.Store.GetByID(ctx, c, id)
}

func (f *faultStore) Upsert(ctx context.Context, c record.Collection, id string, fields record.Document) error {
	if err := f.hit("upsert", c); err != nil {
		return err
	}
	return f.Store.Upsert(ctx, c, id, fields)
}

func (f *faultStore) Insert(ctx context.Context, c record.Collection, fields record.Document) (string, error) {
	if err := f.hit("insert", c); err != nil {
		return "", err
	}
	return f.Store.Insert(ctx, c, fields)
}

func (f *faultStore) Delete(ctx context.Context, c record.Collection, id string) error {
	if err := f.hit("delete", c); err != nil {
		return err
	}
	return f.Store.Delete(ctx, c, id)
}

// recordingNotifier keeps every message it was asked to send.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// fixture wires every service on top of one in-memory store.
type fixture struct {
	mem        *memstore.Store
	store      *faultStore
	notifier   *recordingNotifier
	leads      *app.LeadService
	engine     *app.LifecycleEngine
	groups     *app.GroupService
	attendance *app.AttendanceService
	debts      *app.DebtService
	search     *app.SearchService
	reconciler *app.Reconciler
}

func newFixture() *fixture {
	mem := memstore.New()
	store := newFaultStore(mem)
	notifier := &recordingNotifier{}
	log := quietLogger()
	groups := app.NewGroupService(store, log)
	return &fixture{
		mem:        mem,
		store:      store,
		notifier:   notifier,
		leads:      app.NewLeadService(store, log),
		engine:     app.NewLifecycleEngine(store, app.NewEnroller(log), notifier, log),
		groups:     groups,
		attendance: app.NewAttendanceService(store, groups, log),
		debts:      app.NewDebtService(store, log),
		search:     app.NewSearchService(store, log),
		reconciler: app.NewReconciler(store, notifier, log),
	}
}

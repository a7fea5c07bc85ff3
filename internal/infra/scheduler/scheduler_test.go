package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/app"
)

type sweeperFunc func(ctx context.Context) (app.Report, error)

func (f sweeperFunc) Run(ctx context.Context) (app.Report, error) { return f(ctx) }

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	var deadline time.Time
	s := NewReconcileScheduler(sweeperFunc(func(ctx context.Context) (app.Report, error) {
		deadline, _ = ctx.Deadline()
		return app.Report{StaleSources: 2}, nil
	}), quietEntry(), "*/30 * * * *", time.Minute)

	rep, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Repaired())
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestRunOnceReturnsSweepError(t *testing.T) {
	boom := errors.New("boom")
	s := NewReconcileScheduler(sweeperFunc(func(context.Context) (app.Report, error) {
		return app.Report{}, boom
	}), quietEntry(), "*/30 * * * *", time.Minute)

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewReconcileScheduler(sweeperFunc(func(context.Context) (app.Report, error) {
		return app.Report{}, nil
	}), quietEntry(), "not a spec", time.Minute)

	assert.Error(t, s.Start())
}

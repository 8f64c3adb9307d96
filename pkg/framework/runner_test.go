package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitCancel(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(waitCancel), NamedRun("b", RunFunc(waitCancel)), nil)
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerFailureStopsOthers(t *testing.T) {
	failure := errors.New("device gone")
	r := NewRunner()
	r.Go(
		NamedRun("waiter", RunFunc(waitCancel)),
		NamedRun("broken", RunFunc(func(context.Context) error { return failure })),
	)
	err := r.Wait()
	require.ErrorIs(t, err, failure)
	require.Equal(t, "broken: device gone", err.Error())
	require.Error(t, r.Context.Err())
}

func TestRunnerOptional(t *testing.T) {
	r := NewRunner()
	failed := make(chan struct{})
	r.Go(
		Optional(NamedRun("mdns", RunFunc(func(context.Context) error {
			defer close(failed)
			return errors.New("no multicast")
		}))),
		RunFunc(waitCancel),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Wait() }()
	<-failed
	select {
	case <-r.Context.Done():
		t.Fatal("optional failure stopped the runner")
	case <-time.After(20 * time.Millisecond):
	}
	r.Stop()
	require.NoError(t, <-errCh)
}

func TestNameOf(t *testing.T) {
	require.Equal(t, "x", NameOf(NamedRun("x", RunFunc(waitCancel)), "0"))
	require.Equal(t, "0", NameOf(RunFunc(waitCancel), "0"))
	require.Equal(t, "x", NameOf(Optional(NamedRun("x", RunFunc(waitCancel))), "0"))
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	e1, e2 := errors.New("one"), errors.New("two")
	errs.Add(e1)
	require.Equal(t, "one", errs.Aggregate().Error())
	errs.Add(e2)
	err := errs.Aggregate()
	require.Equal(t, "Multiple errors:\none\ntwo", err.Error())
	require.ErrorIs(t, err, e2)
}

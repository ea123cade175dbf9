package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func TestRunnerEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx)

	var calls atomic.Int32
	r.Every(5*time.Millisecond, "test_tick", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	r.Every(5*time.Millisecond, "test_panic", func(context.Context) error {
		panic("boom")
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(jobErrors.WithLabelValues("test_panic")) >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	assert.GreaterOrEqual(t, testutil.ToFloat64(jobRuns.WithLabelValues("test_tick")), 3.0)
}

type fakeReminders struct {
	due    []models.JuryView
	marked []int64
	within time.Duration
}

func (f *fakeReminders) DueForReminder(_ context.Context, within time.Duration, batch int) ([]models.JuryView, error) {
	f.within = within
	if batch < len(f.due) {
		return f.due[:batch], nil
	}
	return f.due, nil
}

func (f *fakeReminders) MarkReminded(_ context.Context, ids []int64) error {
	f.marked = append(f.marked, ids...)
	return nil
}

type fakeNotifier struct{ failFor int64 }

func (f fakeNotifier) Reminder(_ context.Context, j models.JuryView) error {
	if j.ID == f.failFor {
		return errors.New("unreachable")
	}
	return nil
}

func TestJuryRemindersMarksOnlyDelivered(t *testing.T) {
	store := &fakeReminders{due: []models.JuryView{
		{Jury: models.Jury{ID: 1}}, {Jury: models.Jury{ID: 2}}, {Jury: models.Jury{ID: 3}},
	}}
	job := JuryReminders(store, fakeNotifier{failFor: 2}, 24*time.Hour)

	err := job(context.Background())
	require.Error(t, err)
	assert.Equal(t, []int64{1, 3}, store.marked)
	assert.Equal(t, 24*time.Hour, store.within)
}

func TestJuryRemindersNothingDue(t *testing.T) {
	store := &fakeReminders{}
	require.NoError(t, JuryReminders(store, fakeNotifier{}, time.Hour)(context.Background()))
	assert.Empty(t, store.marked)
}

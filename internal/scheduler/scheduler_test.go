package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func() error
	runs int
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run() error {
	j.runs++
	if j.run == nil {
		return nil
	}
	return j.run()
}

func newTestScheduler(t *testing.T) (*Scheduler, *events.Subscription) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()
	sub := bus.Subscribe(16, events.JobStarted, events.JobCompleted, events.JobFailed)
	t.Cleanup(func() { bus.Unsubscribe(sub) })
	return New(events.NewManager(bus, log), log), sub
}

func nextEvent(t *testing.T, sub *events.Subscription) events.Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected event")
		return events.Event{}
	}
}

func TestAddJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NoError(t, s.AddJob("0 */5 * * * *", &funcJob{name: "b"}))
	require.NoError(t, s.AddJob("@hourly", &funcJob{name: "a"}))

	err := s.AddJob("@hourly", &funcJob{name: "a"})
	assert.Error(t, err, "duplicate names are rejected")

	err = s.AddJob("not a schedule", &funcJob{name: "c"})
	assert.Error(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@hourly", jobs[0].Schedule)
	assert.Equal(t, "b", jobs[1].Name)
}

func TestRunNow_EmitsLifecycleEvents(t *testing.T) {
	s, sub := newTestScheduler(t)
	job := &funcJob{name: "ok"}
	require.NoError(t, s.AddJob("@daily", job))

	require.NoError(t, s.RunNow("ok"))
	assert.Equal(t, 1, job.runs)

	started := nextEvent(t, sub)
	assert.Equal(t, events.JobStarted, started.Type)
	completed := nextEvent(t, sub)
	assert.Equal(t, events.JobCompleted, completed.Type)
	data, ok := completed.Data.(*events.JobStatusData)
	require.True(t, ok)
	assert.Equal(t, "ok", data.JobType)
}

func TestRunNow_Failure(t *testing.T) {
	s, sub := newTestScheduler(t)
	require.NoError(t, s.AddJob("@daily", &funcJob{name: "bad", run: func() error {
		return errors.New("upstream down")
	}}))

	err := s.RunNow("bad")
	require.Error(t, err)

	nextEvent(t, sub)
	failed := nextEvent(t, sub)
	assert.Equal(t, events.JobFailed, failed.Type)
	data := failed.Data.(*events.JobStatusData)
	assert.Equal(t, "upstream down", data.Error)
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.AddJob("@daily", &funcJob{name: "boom", run: func() error {
		panic("nil map")
	}}))

	err := s.RunNow("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRunNow_UnknownJob(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownJob)
}

func TestMarketHours(t *testing.T) {
	m := NewMarketHours()

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"before open", time.Date(2026, 1, 6, 9, 14, 0, 0, IST), false},
		{"at open", time.Date(2026, 1, 6, 9, 15, 0, 0, IST), true},
		{"midday", time.Date(2026, 1, 6, 12, 0, 0, 0, IST), true},
		{"at close", time.Date(2026, 1, 6, 15, 30, 0, 0, IST), false},
		{"saturday", time.Date(2026, 1, 10, 11, 0, 0, 0, IST), false},
		{"republic day", time.Date(2026, 1, 26, 11, 0, 0, 0, IST), false},
		{"utc input converted", time.Date(2026, 1, 6, 4, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, m.IsOpen(tt.at))
		})
	}

	assert.True(t, m.IsTradingDay(time.Date(2026, 1, 6, 20, 0, 0, 0, IST)))
	assert.False(t, m.IsTradingDay(time.Date(2026, 12, 25, 10, 0, 0, 0, IST)))
}

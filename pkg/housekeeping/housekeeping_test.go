package housekeeping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNewServiceRejectsBadSchedule(t *testing.T) {
	_, err := NewService("every tuesday", nil)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	past, err := st.CreateMeeting(ctx, store.Meeting{
		Title: "Standup", Status: store.MeetingScheduled, StartsAt: noon.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = st.CreateMeeting(ctx, store.Meeting{
		Title: "Retro", Status: store.MeetingScheduled, StartsAt: noon.Add(time.Hour),
	})
	require.NoError(t, err)

	clock := func() time.Time { return noon }
	sessions := session.NewStore(time.Minute, session.WithClock(clock))
	sessions.Put(session.Session{
		Key:       session.RoomKey(session.KindMeetingSchedule, "r1", "a1"),
		Kind:      session.KindMeetingSchedule,
		CreatedAt: noon.Add(-2 * time.Minute),
	})
	sessions.Put(session.Session{
		Key:  session.RoomKey(session.KindMeetingSchedule, "r2", "a2"),
		Kind: session.KindMeetingSchedule,
	})

	svc, err := NewService("*/15 * * * *", st, WithSessions(sessions), WithClock(clock))
	require.NoError(t, err)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{MeetingsCompleted: 1, SessionsSwept: 1}, res)
	assert.Equal(t, 1, sessions.Len())

	list, err := st.ListMeetings(ctx)
	require.NoError(t, err)
	for _, m := range list {
		if m.ID == past {
			assert.Equal(t, store.MeetingCompleted, m.Status)
		} else {
			assert.Equal(t, store.MeetingScheduled, m.Status)
		}
	}
}

type failingStore struct{ store.MeetingStore }

func (failingStore) CompletePastMeetings(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestRunOnceReportsStoreError(t *testing.T) {
	svc, err := NewService("@hourly", failingStore{})
	require.NoError(t, err)
	_, err = svc.RunOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

type countingStore struct {
	store.MeetingStore
	runs chan time.Time
}

func (c countingStore) CompletePastMeetings(_ context.Context, now time.Time) (int64, error) {
	c.runs <- now
	return 0, nil
}

func TestRunWaitsForNextTick(t *testing.T) {
	cs := countingStore{runs: make(chan time.Time, 4)}
	waits := make(chan time.Duration, 4)
	fire := make(chan time.Time)

	svc, err := NewService("*/15 * * * *", cs,
		WithClock(func() time.Time { return noon.Add(5 * time.Minute) }),
		withAfter(func(d time.Duration) <-chan time.Time {
			waits <- d
			return fire
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Equal(t, 10*time.Minute, <-waits)
	fire <- noon
	<-cs.runs
	<-waits

	cancel()
	require.NoError(t, <-done)
}

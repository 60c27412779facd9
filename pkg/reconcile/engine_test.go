package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/meetings"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

type sent struct{ room, text string }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []sent
}

func (n *recordingNotifier) SendText(_ context.Context, room, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, sent{room, text})
	return nil
}

type stubGetter struct {
	m   meetings.Meeting
	err error
}

func (g stubGetter) Get(context.Context, string) (meetings.Meeting, error) { return g.m, g.err }

type fixture struct {
	sessions *session.Store
	store    *store.SQLiteStore
	notify   *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T, getter MeetingGetter) *fixture {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		sessions: session.NewStore(time.Hour),
		store:    st,
		notify:   &recordingNotifier{},
	}
	f.engine = NewEngine("webex", f.sessions, st, f.notify, getter)
	return f
}

// pending stores the paired form and identity sessions the way the
// dispatcher does for "schedule meeting <title>".
func (f *fixture) pending(room, actor, email, title string) {
	form := session.RoomKey(session.KindMeetingSchedule, room, actor)
	ident := session.IdentityKey(email, title)
	base := session.Session{
		Kind:           session.KindMeetingSchedule,
		RequestedTitle: title,
		RoomID:         room,
		ActorID:        actor,
		ActorEmail:     email,
	}
	a, b := base, base
	a.Key, a.Pair = form, ident
	b.Key, b.Pair = ident, form
	f.sessions.Put(a)
	f.sessions.Put(b)
}

func TestReconcile_Match(t *testing.T) {
	f := newFixture(t, nil)
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")

	start := time.Date(2025, 11, 1, 14, 0, 0, 0, time.UTC)
	out := f.engine.Reconcile(context.Background(), events.MeetingDescriptor{
		ID:        "mtg1",
		Title:     "sprint review (weekly)",
		HostEmail: "Alice@Example.com",
		WebLink:   "https://x.webex.com/mtg1",
		Start:     start,
	})

	require.True(t, out.Matched)
	require.NoError(t, out.Err)
	assert.Equal(t, "room1", out.RoomID)
	assert.Equal(t, 0, f.sessions.Len(), "both paired sessions are consumed")

	tasks, err := f.store.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Title, "Sprint Review")
	assert.Equal(t, "https://x.webex.com/mtg1", tasks[0].MeetingLink)
	assert.False(t, tasks[0].Completed)

	mtgs, err := f.store.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, mtgs, 1)
	assert.Equal(t, "mtg1", mtgs[0].ProviderID)

	require.Len(t, f.notify.msgs, 1)
	assert.Equal(t, "room1", f.notify.msgs[0].room)
	assert.Contains(t, f.notify.msgs[0].text, "OK:")
}

func TestReconcile_NoMatch(t *testing.T) {
	f := newFixture(t, nil)
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")

	tests := []events.MeetingDescriptor{
		{ID: "m", Title: "Sprint Review", HostEmail: "bob@example.com"},
		{ID: "m", Title: "Budget", HostEmail: "alice@example.com"},
	}
	for _, m := range tests {
		out := f.engine.Reconcile(context.Background(), m)
		assert.False(t, out.Matched)
	}

	assert.Equal(t, 2, f.sessions.Len())
	tasks, err := f.store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, f.notify.msgs)
}

func TestReconcile_FirstInsertedWins(t *testing.T) {
	f := newFixture(t, nil)
	f.pending("room-a", "alice", "alice@example.com", "Team Sync")
	f.pending("room-b", "alice", "alice@example.com", "Team Sync Weekly")

	m := events.MeetingDescriptor{ID: "m1", Title: "team sync weekly", HostEmail: "alice@example.com"}

	first := f.engine.Reconcile(context.Background(), m)
	require.True(t, first.Matched)
	assert.Equal(t, "room-a", first.RoomID)

	second := f.engine.Reconcile(context.Background(), m)
	require.True(t, second.Matched)
	assert.Equal(t, "room-b", second.RoomID)

	third := f.engine.Reconcile(context.Background(), m)
	assert.False(t, third.Matched)
}

func TestReconcile_ConcurrentCallbacksCreateOneTask(t *testing.T) {
	f := newFixture(t, nil)
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")
	m := events.MeetingDescriptor{ID: "m1", Title: "Sprint Review", HostEmail: "alice@example.com"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.Reconcile(context.Background(), m)
		}()
	}
	wg.Wait()

	tasks, err := f.store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestReconcile_FillsMissingTitle(t *testing.T) {
	f := newFixture(t, stubGetter{m: meetings.Meeting{
		ID:        "m1",
		Title:     "Sprint Review",
		HostEmail: "alice@example.com",
		WebLink:   "https://x.webex.com/m1",
	}})
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")

	out := f.engine.Reconcile(context.Background(), events.MeetingDescriptor{ID: "m1"})
	assert.True(t, out.Matched)
}

func TestReconcile_LookupFailureDrops(t *testing.T) {
	f := newFixture(t, stubGetter{err: errors.New("boom")})
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")

	out := f.engine.Reconcile(context.Background(), events.MeetingDescriptor{ID: "m1", HostEmail: "alice@example.com"})
	assert.False(t, out.Matched)
	assert.Equal(t, 2, f.sessions.Len())
}

func TestReconcile_ExpiredSessionIgnored(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, nil)
	f.sessions = session.NewStore(time.Minute, session.WithClock(func() time.Time { return now }))
	f.engine = NewEngine("webex", f.sessions, f.store, f.notify, nil)
	f.pending("room1", "alice", "alice@example.com", "Sprint Review")

	now = now.Add(2 * time.Minute)
	out := f.engine.Reconcile(context.Background(), events.MeetingDescriptor{Title: "Sprint Review", HostEmail: "alice@example.com"})
	assert.False(t, out.Matched)
	assert.Equal(t, 0, f.sessions.Len(), "expired sessions are swept before matching")
}

package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/live"
	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/mcdev12/tagchase/go/internal/querycache"
	"github.com/mcdev12/tagchase/go/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
	settle  = 100 * time.Millisecond
)

type fakeAPI struct {
	settings      atomic.Int32
	holder        atomic.Int32
	leaderboard   atomic.Int32
	tags          atomic.Int32
	achievements  atomic.Int32
	notifications atomic.Int32
	unread        atomic.Int32
	createTag     atomic.Int32
	markRead      atomic.Int32

	createErr error
}

func (f *fakeAPI) Login(_ context.Context, creds models.Credentials) (models.TokenPair, error) {
	if creds.Password != "secret" {
		return models.TokenPair{}, api.ErrUnauthorized
	}
	return models.TokenPair{Access: "access", Refresh: "refresh", User: &models.User{ID: 1, Username: creds.Username}}, nil
}

func (f *fakeAPI) Settings(context.Context) (models.GameSettings, error) {
	f.settings.Add(1)
	return models.GameSettings{ID: 1, IsGameActive: true}, nil
}

func (f *fakeAPI) CurrentHolder(context.Context) (models.CurrentHolder, error) {
	f.holder.Add(1)
	return models.CurrentHolder{User: &models.User{Username: "rest-holder", FullName: "Rest Holder"}}, nil
}

func (f *fakeAPI) Leaderboard(context.Context) ([]models.Standing, error) {
	f.leaderboard.Add(1)
	return []models.Standing{{Rank: 1, User: models.User{Username: "rest-leader"}}}, nil
}

func (f *fakeAPI) Tags(_ context.Context, filter api.TagFilter) ([]models.Tag, error) {
	f.tags.Add(1)
	if filter.PageSize != recentTagsPageSize {
		return nil, errors.New("unexpected page size")
	}
	return []models.Tag{{ID: 2, TaggerName: "alice", TaggedName: "bob"}, {ID: 1}}, nil
}

func (f *fakeAPI) Achievements(context.Context, int) ([]models.Achievement, error) {
	f.achievements.Add(1)
	return nil, nil
}

func (f *fakeAPI) CreateTag(_ context.Context, req models.CreateTagRequest) (models.CreateTagResponse, error) {
	f.createTag.Add(1)
	if f.createErr != nil {
		return models.CreateTagResponse{}, f.createErr
	}
	return models.CreateTagResponse{Message: "Tag created successfully", Tag: models.Tag{ID: 3, TaggedID: req.TaggedUserID}}, nil
}

func (f *fakeAPI) Notifications(context.Context) ([]models.Notification, error) {
	f.notifications.Add(1)
	return []models.Notification{{ID: 1, Title: "Tagged!"}}, nil
}

func (f *fakeAPI) UnreadCount(context.Context) (int, error) {
	f.unread.Add(1)
	return 3, nil
}

func (f *fakeAPI) MarkRead(context.Context, int) error {
	f.markRead.Add(1)
	return nil
}

func (f *fakeAPI) MarkAllRead(context.Context) error {
	f.markRead.Add(1)
	return nil
}

// fakeLive lets tests drive connection states directly
type fakeLive struct {
	connects atomic.Int32
	closes   atomic.Int32
	updates  chan live.Snapshot

	mu   sync.Mutex
	snap live.Snapshot
}

func newFakeLive() *fakeLive {
	return &fakeLive{updates: make(chan live.Snapshot, 16)}
}

func (f *fakeLive) Connect() { f.connects.Add(1) }

func (f *fakeLive) Close() {
	f.closes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = live.Snapshot{}
}

func (f *fakeLive) Snapshot() live.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeLive) Subscribe(int) (<-chan live.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeLive) set(snap live.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeLive) push(state live.ConnectionState) {
	f.updates <- live.Snapshot{State: state}
}

type fixture struct {
	app     *App
	api     *fakeAPI
	live    *fakeLive
	session *session.Store
	cache   *querycache.Cache
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	f := &fixture{
		api:     &fakeAPI{},
		live:    newFakeLive(),
		session: session.New(),
		cache:   querycache.New(querycache.WithClock(clock)),
		clock:   clock,
	}
	f.app = NewApp(f.api, f.session, f.live, f.cache)
	t.Cleanup(f.cache.Stop)
	return f
}

// run starts the app and returns a func that stops it and waits for Run
func (f *fixture) run(t *testing.T) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("Run did not return")
		}
	}
	t.Cleanup(stop)
	return stop
}

func TestApp_SpectatorSessionStartsAndStopsEverything(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	assert.Never(t, func() bool { return f.live.connects.Load() > 0 }, settle, tick, "inactive session must not connect")

	f.app.Spectate()
	require.Eventually(t, func() bool { return f.live.connects.Load() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool {
		return f.api.leaderboard.Load() == 1 && f.api.holder.Load() == 1 && f.api.tags.Load() == 1
	}, waitFor, tick)
	assert.True(t, f.cache.Running())

	// spectators have no notifications
	assert.Never(t, func() bool { return f.api.notifications.Load() > 0 || f.api.unread.Load() > 0 }, settle, tick)

	f.app.SignOut()
	require.Eventually(t, func() bool { return f.live.closes.Load() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return !f.cache.Running() }, waitFor, tick)
	_, ok := f.cache.Get(KeyLeaderboard)
	assert.False(t, ok, "cache is cleared on sign out")
}

func TestApp_ActiveSessionConnectsOnRun(t *testing.T) {
	f := newFixture(t)
	f.session.Spectate()

	stop := f.run(t)
	require.Eventually(t, func() bool { return f.live.connects.Load() == 1 }, waitFor, tick)

	stop()
	assert.EqualValues(t, 1, f.live.closes.Load())
	assert.False(t, f.cache.Running())
}

func TestApp_SignInFetchesNotifications(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	_, err := f.app.SignIn(context.Background(), models.Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, f.session.Active())

	user, err := f.app.SignIn(context.Background(), models.Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.Eventually(t, func() bool { return f.app.UnreadCount() == 3 }, waitFor, tick)
	require.Eventually(t, func() bool { return f.api.notifications.Load() == 1 }, waitFor, tick)

	require.NoError(t, f.app.MarkRead(context.Background(), 1))
	require.Eventually(t, func() bool {
		return f.api.notifications.Load() == 2 && f.api.unread.Load() == 2
	}, waitFor, tick)

	require.NoError(t, f.app.MarkAllRead(context.Background()))
	require.Eventually(t, func() bool { return f.api.notifications.Load() == 3 }, waitFor, tick)
	assert.EqualValues(t, 2, f.api.markRead.Load())
}

func TestApp_ReconnectRefreshesLiveBackedQueries(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	f.app.Spectate()

	require.Eventually(t, func() bool {
		return f.api.leaderboard.Load() == 1 && f.api.settings.Load() == 1
	}, waitFor, tick)

	f.live.push(live.Connecting)
	f.live.push(live.Connected)
	assert.Never(t, func() bool { return f.api.leaderboard.Load() > 1 }, settle, tick, "first connect is not a reconnect")

	f.live.push(live.Disconnected)
	f.live.push(live.Connecting)
	f.live.push(live.Connected)

	require.Eventually(t, func() bool {
		return f.api.leaderboard.Load() == 2 && f.api.tags.Load() == 2 && f.api.holder.Load() == 2
	}, waitFor, tick)
	assert.Never(t, func() bool { return f.api.settings.Load() > 1 || f.api.achievements.Load() > 1 }, settle, tick)
}

func TestApp_CreateTagInvalidatesGameQueries(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	f.app.Spectate()

	require.Eventually(t, func() bool {
		return f.api.leaderboard.Load() == 1 && f.api.tags.Load() == 1 && f.api.holder.Load() == 1 && f.api.achievements.Load() == 1
	}, waitFor, tick)

	out, err := f.app.CreateTag(context.Background(), models.CreateTagRequest{TaggedUserID: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Tag.TaggedID)

	require.Eventually(t, func() bool {
		return f.api.leaderboard.Load() == 2 && f.api.tags.Load() == 2 && f.api.holder.Load() == 2
	}, waitFor, tick)
	assert.EqualValues(t, 1, f.api.achievements.Load())
}

func TestApp_CreateTagFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	f.api.createErr = &api.APIError{Status: 403, Message: "Only the current tag holder can tag someone else"}
	f.run(t)
	f.app.Spectate()

	require.Eventually(t, func() bool { return f.api.leaderboard.Load() == 1 }, waitFor, tick)

	_, err := f.app.CreateTag(context.Background(), models.CreateTagRequest{TaggedUserID: 2})
	assert.ErrorIs(t, err, api.ErrForbidden)
	assert.Never(t, func() bool { return f.api.leaderboard.Load() > 1 }, settle, tick)
}

func TestApp_NewerLiveDataWinsOverCache(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	f.app.Spectate()

	require.Eventually(t, func() bool { return len(f.app.Leaderboard()) == 1 }, waitFor, tick)
	assert.Equal(t, "rest-leader", f.app.Leaderboard()[0].User.Username)

	require.Eventually(t, func() bool { return len(f.app.RecentTags()) == 2 }, waitFor, tick)
	assert.Equal(t, "bob", f.app.RecentTags()[0].TaggedName)

	require.Eventually(t, func() bool { return f.app.CurrentHolder() == "Rest Holder" }, waitFor, tick)

	f.live.set(live.Snapshot{
		State:         live.Connected,
		RecentTags:    []models.TagEvent{{ID: 9, TaggedName: "Carol King"}},
		Leaderboard:   []models.Standing{{Rank: 1, User: models.User{Username: "live-leader"}}},
		CurrentHolder: "Carol King",
		UpdatedAt:     f.clock.Now().Add(time.Second),
	})
	assert.Equal(t, "live-leader", f.app.Leaderboard()[0].User.Username)
	assert.Equal(t, 9, f.app.RecentTags()[0].ID)
	assert.Equal(t, "Carol King", f.app.CurrentHolder())

	view := f.app.View()
	assert.Equal(t, live.Connected, view.State)
	assert.Equal(t, "live-leader", view.Leaderboard[0].User.Username)
	assert.Equal(t, "Carol King", view.CurrentHolder)
}

func TestApp_RefreshedRESTDataReplacesStaleLiveData(t *testing.T) {
	f := newFixture(t)

	f.live.set(live.Snapshot{
		State:         live.Connected,
		RecentTags:    []models.TagEvent{{ID: 1, TaggedName: "stale"}},
		Leaderboard:   []models.Standing{{Rank: 1, User: models.User{Username: "stale-live"}}},
		CurrentHolder: "stale",
		UpdatedAt:     f.clock.Now().Add(-time.Minute),
	})
	assert.Equal(t, "stale-live", f.app.Leaderboard()[0].User.Username, "live data wins before any REST result")

	for _, key := range liveBackedKeys {
		_, err := f.cache.Fetch(context.Background(), key)
		require.NoError(t, err)
	}

	assert.Equal(t, "rest-leader", f.app.Leaderboard()[0].User.Username)
	assert.Equal(t, 2, f.app.RecentTags()[0].ID)
	assert.Equal(t, "Rest Holder", f.app.CurrentHolder())

	view := f.app.View()
	assert.Equal(t, "rest-leader", view.Leaderboard[0].User.Username)
	assert.Equal(t, "Rest Holder", view.CurrentHolder)

	// a live push after the refetch takes over again
	f.live.set(live.Snapshot{
		State:       live.Connected,
		Leaderboard: []models.Standing{{Rank: 1, User: models.User{Username: "fresh-live"}}},
		UpdatedAt:   f.clock.Now().Add(time.Second),
	})
	assert.Equal(t, "fresh-live", f.app.Leaderboard()[0].User.Username)
}

func TestApp_SettingsFetchedOnDemand(t *testing.T) {
	f := newFixture(t)

	settings, err := f.app.Settings(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.IsGameActive)

	_, err = f.app.Settings(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.api.settings.Load())
}

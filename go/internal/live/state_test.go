package live

import (
	"fmt"
	"testing"
	"time"

	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagEvent(id int) models.TagEvent {
	return models.TagEvent{
		ID:         id,
		TaggerName: fmt.Sprintf("player-%d", id),
		TaggedName: fmt.Sprintf("player-%d", id+1),
		OccurredAt: time.Unix(int64(id), 0),
	}
}

func standing(name string, holder bool) models.Standing {
	return models.Standing{User: models.User{Username: name}, IsCurrentHolder: holder}
}

func TestStore_RetainsLastTenNewestFirst(t *testing.T) {
	st := newStore(10)
	for id := 1; id <= 15; id++ {
		st.apply(NewTag{Event: tagEvent(id)}, time.Now())
	}

	recent := st.Snapshot().RecentTags
	require.Len(t, recent, 10)
	for i, event := range recent {
		assert.Equal(t, 15-i, event.ID)
	}
}

func TestStore_LeaderboardReplacedWholesale(t *testing.T) {
	st := newStore(10)
	a, b, c := standing("a", false), standing("b", false), standing("c", false)

	st.apply(LeaderboardUpdate{Standings: []models.Standing{a, b, c}}, time.Now())
	st.apply(LeaderboardUpdate{Standings: []models.Standing{b, a}}, time.Now())

	assert.Equal(t, []models.Standing{b, a}, st.Snapshot().Leaderboard)
}

func TestStore_LeaderboardIsCopied(t *testing.T) {
	st := newStore(10)
	standings := []models.Standing{standing("a", false)}
	st.apply(LeaderboardUpdate{Standings: standings}, time.Now())

	standings[0].User.Username = "mutated"
	assert.Equal(t, "a", st.Snapshot().Leaderboard[0].User.Username)
}

func TestStore_IgnoresUnretainedMessages(t *testing.T) {
	st := newStore(10)
	st.apply(NewTag{Event: tagEvent(1)}, time.Now())
	st.apply(LeaderboardUpdate{Standings: []models.Standing{standing("a", true)}}, time.Now())
	before := st.Snapshot()

	for _, msg := range []Message{Unknown{Name: "unknown_future_type"}, GameUpdate{}, Pong{}} {
		assert.False(t, st.apply(msg, time.Now().Add(time.Hour)))
	}

	assert.Equal(t, before, st.Snapshot())
}

func TestStore_TracksCurrentHolder(t *testing.T) {
	st := newStore(10)

	st.apply(LeaderboardUpdate{Standings: []models.Standing{standing("a", false), standing("b", true)}}, time.Now())
	assert.Equal(t, "b", st.Snapshot().CurrentHolder)

	st.apply(NewTag{Event: models.TagEvent{ID: 1, TaggerName: "b", TaggedName: "c"}}, time.Now())
	assert.Equal(t, "c", st.Snapshot().CurrentHolder)
}

func TestStore_ClearKeepsState(t *testing.T) {
	st := newStore(10)
	st.setState(Connected)
	st.apply(NewTag{Event: tagEvent(1)}, time.Now())

	st.clear()

	snap := st.Snapshot()
	assert.Equal(t, Connected, snap.State)
	assert.Empty(t, snap.RecentTags)
	assert.Empty(t, snap.Leaderboard)
	assert.Empty(t, snap.CurrentHolder)
	assert.True(t, snap.UpdatedAt.IsZero())
}

func TestStore_SubscribeReceivesLatest(t *testing.T) {
	st := newStore(10)
	updates, unsubscribe := st.Subscribe(1)
	defer unsubscribe()

	st.setState(Connecting)
	st.setState(Connected)
	st.apply(NewTag{Event: tagEvent(7)}, time.Now())

	snap := <-updates
	assert.Equal(t, Connected, snap.State)
	require.Len(t, snap.RecentTags, 1)
	assert.Equal(t, 7, snap.RecentTags[0].ID)
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	st := newStore(10)
	updates, unsubscribe := st.Subscribe(1)

	unsubscribe()
	unsubscribe()

	_, ok := <-updates
	assert.False(t, ok)
	st.setState(Connected)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}

package live

import (
	"sync"
	"time"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// ConnectionState is the lifecycle state of the live connection
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the live game view. Its slices are
// copies shared between subscribers and must be treated as read-only.
type Snapshot struct {
	State         ConnectionState
	RecentTags    []models.TagEvent // newest first
	Leaderboard   []models.Standing
	CurrentHolder string // display name, empty until known
	UpdatedAt     time.Time
}

// View is the read-only surface handed to consumers of the live state
type View interface {
	State() ConnectionState
	Snapshot() Snapshot
	Subscribe(buffer int) (<-chan Snapshot, func())
}

// store holds the state derived from live messages. Only the Synchronizer
// mutates it.
type store struct {
	mu          sync.RWMutex
	limit       int
	state       ConnectionState
	recent      []models.TagEvent
	leaderboard []models.Standing
	holder      string
	updatedAt   time.Time

	subscribers map[int]chan Snapshot
	nextSubID   int
}

func newStore(limit int) *store {
	return &store{
		limit:       limit,
		recent:      make([]models.TagEvent, 0, limit),
		leaderboard: []models.Standing{},
		subscribers: make(map[int]chan Snapshot),
	}
}

// apply folds one message into the state and reports whether it changed
func (st *store) apply(msg Message, at time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch m := msg.(type) {
	case NewTag:
		recent := make([]models.TagEvent, 0, st.limit)
		recent = append(recent, m.Event)
		recent = append(recent, st.recent...)
		if len(recent) > st.limit {
			recent = recent[:st.limit]
		}
		st.recent = recent
		if m.Event.TaggedName != "" {
			st.holder = m.Event.TaggedName
		}

	case LeaderboardUpdate:
		st.leaderboard = append([]models.Standing(nil), m.Standings...)
		for _, standing := range m.Standings {
			if standing.IsCurrentHolder {
				st.holder = standing.User.DisplayName()
				break
			}
		}

	default:
		// GameUpdate, Pong and Unknown carry nothing this view retains
		return false
	}

	st.updatedAt = at
	st.publishLocked()
	return true
}

func (st *store) setState(state ConnectionState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state == state {
		return
	}
	st.state = state
	st.publishLocked()
}

// clear drops all retained game data but keeps the connection state
func (st *store) clear() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.recent = make([]models.TagEvent, 0, st.limit)
	st.leaderboard = []models.Standing{}
	st.holder = ""
	st.updatedAt = time.Time{}
	st.publishLocked()
}

func (st *store) State() ConnectionState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

func (st *store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change. A
// subscriber that falls behind only ever sees the latest snapshot. The
// returned func unsubscribes and closes the channel.
func (st *store) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	id := st.nextSubID
	st.nextSubID++
	ch := make(chan Snapshot, buffer)
	st.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			delete(st.subscribers, id)
			close(ch)
		})
	}
}

func (st *store) snapshotLocked() Snapshot {
	return Snapshot{
		State:         st.state,
		RecentTags:    append([]models.TagEvent(nil), st.recent...),
		Leaderboard:   append([]models.Standing(nil), st.leaderboard...),
		CurrentHolder: st.holder,
		UpdatedAt:     st.updatedAt,
	}
}

func (st *store) publishLocked() {
	if len(st.subscribers) == 0 {
		return
	}

	snap := st.snapshotLocked()
	for _, ch := range st.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot to make room for the latest one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

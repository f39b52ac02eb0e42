package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/live"
	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/mcdev12/tagchase/go/internal/querycache"
	"github.com/rs/zerolog/log"
)

// API defines what the app layer needs from the REST client
type API interface {
	Login(ctx context.Context, creds models.Credentials) (models.TokenPair, error)
	Settings(ctx context.Context) (models.GameSettings, error)
	CurrentHolder(ctx context.Context) (models.CurrentHolder, error)
	Leaderboard(ctx context.Context) ([]models.Standing, error)
	Tags(ctx context.Context, filter api.TagFilter) ([]models.Tag, error)
	Achievements(ctx context.Context, userID int) ([]models.Achievement, error)
	CreateTag(ctx context.Context, req models.CreateTagRequest) (models.CreateTagResponse, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) error
}

// Session defines what the app layer needs from the identity store
type Session interface {
	Active() bool
	Authenticated() bool
	SignIn(tokens models.TokenPair)
	Spectate()
	SignOut()
	Subscribe() (<-chan bool, func())
}

// Live defines what the app layer needs from the live synchronizer
type Live interface {
	Connect()
	Close()
	Snapshot() live.Snapshot
	Subscribe(buffer int) (<-chan live.Snapshot, func())
}

// App ties the live connection and the REST backstop to the session: both
// run exactly while the session is active.
type App struct {
	api     API
	session Session
	live    Live
	cache   *querycache.Cache

	mu      sync.Mutex
	active  bool
	seen    bool
	dropped bool
}

// NewApp creates a new game App and registers its queries
func NewApp(client API, session Session, synchronizer Live, cache *querycache.Cache) *App {
	a := &App{
		api:     client,
		session: session,
		live:    synchronizer,
		cache:   cache,
	}
	a.registerQueries()
	return a
}

// Run follows the session until ctx is done, then tears everything down
func (a *App) Run(ctx context.Context) error {
	transitions, unsubscribe := a.session.Subscribe()
	defer unsubscribe()
	snapshots, unsubscribeLive := a.live.Subscribe(16)
	defer unsubscribeLive()

	if a.session.Active() {
		a.activate(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			a.deactivate()
			return nil
		case active, ok := <-transitions:
			if !ok {
				a.deactivate()
				return nil
			}
			if active {
				a.activate(ctx)
			} else {
				a.deactivate()
			}
		case snap := <-snapshots:
			a.observe(snap.State)
		}
	}
}

// SignIn logs in and stores the tokens in the session
func (a *App) SignIn(ctx context.Context, creds models.Credentials) (*models.User, error) {
	tokens, err := a.api.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	a.session.SignIn(tokens)
	return tokens.User, nil
}

// Spectate follows the game without an account
func (a *App) Spectate() {
	a.session.Spectate()
}

// SignOut ends the session, which disconnects the live channel
func (a *App) SignOut() {
	a.session.SignOut()
}

// CreateTag tags another player and refreshes everything the tag changes
func (a *App) CreateTag(ctx context.Context, req models.CreateTagRequest) (models.CreateTagResponse, error) {
	out, err := a.api.CreateTag(ctx, req)
	if err != nil {
		return models.CreateTagResponse{}, fmt.Errorf("failed to create tag: %w", err)
	}

	a.cache.Invalidate(KeyCurrentHolder, KeyLeaderboard, KeyRecentTags)
	log.Info().Int("tag_id", out.Tag.ID).Str("tagged", out.Tag.TaggedName).Msg("tag created")
	return out, nil
}

// MarkRead marks a notification read
func (a *App) MarkRead(ctx context.Context, id int) error {
	if err := a.api.MarkRead(ctx, id); err != nil {
		return err
	}
	a.cache.Invalidate(KeyNotifications)
	return nil
}

// MarkAllRead marks every notification read
func (a *App) MarkAllRead(ctx context.Context) error {
	if err := a.api.MarkAllRead(ctx); err != nil {
		return err
	}
	a.cache.Invalidate(KeyNotifications)
	return nil
}

// Snapshot returns the live view
func (a *App) Snapshot() live.Snapshot {
	return a.live.Snapshot()
}

// View returns the live snapshot with its data replaced by the merged
// accessors, so REST results newer than the last live message show through.
func (a *App) View() live.Snapshot {
	snap := a.live.Snapshot()
	snap.Leaderboard = a.leaderboard(snap)
	snap.RecentTags = a.recentTags(snap)
	snap.CurrentHolder = a.currentHolder(snap)
	return snap
}

// Leaderboard returns the newer of the live standings and the last REST
// result.
func (a *App) Leaderboard() []models.Standing {
	return a.leaderboard(a.live.Snapshot())
}

// RecentTags returns the newer of the live feed and the last REST result
func (a *App) RecentTags() []models.TagEvent {
	return a.recentTags(a.live.Snapshot())
}

// CurrentHolder returns the display name of the player holding the tag,
// empty when unknown.
func (a *App) CurrentHolder() string {
	return a.currentHolder(a.live.Snapshot())
}

func (a *App) leaderboard(snap live.Snapshot) []models.Standing {
	if board, ok := querycache.Lookup[[]models.Standing](a.cache, KeyLeaderboard); ok &&
		(len(snap.Leaderboard) == 0 || a.restNewer(KeyLeaderboard, snap)) {
		return board
	}
	return snap.Leaderboard
}

func (a *App) recentTags(snap live.Snapshot) []models.TagEvent {
	tags, ok := querycache.Lookup[[]models.Tag](a.cache, KeyRecentTags)
	if !ok || (len(snap.RecentTags) > 0 && !a.restNewer(KeyRecentTags, snap)) {
		return snap.RecentTags
	}
	events := make([]models.TagEvent, 0, len(tags))
	for _, tag := range tags {
		events = append(events, tag.Event())
	}
	return events
}

func (a *App) currentHolder(snap live.Snapshot) string {
	holder, ok := querycache.Lookup[models.CurrentHolder](a.cache, KeyCurrentHolder)
	if !ok || (snap.CurrentHolder != "" && !a.restNewer(KeyCurrentHolder, snap)) {
		return snap.CurrentHolder
	}
	if holder.User == nil {
		return ""
	}
	return holder.User.DisplayName()
}

// restNewer reports whether key was fetched after the last live message
func (a *App) restNewer(key string, snap live.Snapshot) bool {
	entry, ok := a.cache.Get(key)
	return ok && entry.UpdatedAt.After(snap.UpdatedAt)
}

// Settings returns the cached game settings, fetching them if needed
func (a *App) Settings(ctx context.Context) (models.GameSettings, error) {
	if settings, ok := querycache.Lookup[models.GameSettings](a.cache, KeySettings); ok {
		return settings, nil
	}
	entry, err := a.cache.Fetch(ctx, KeySettings)
	if err != nil {
		return models.GameSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	settings, _ := entry.Data.(models.GameSettings)
	return settings, nil
}

// UnreadCount returns the cached unread notification count
func (a *App) UnreadCount() int {
	count, _ := querycache.Lookup[int](a.cache, KeyUnreadCount)
	return count
}

func (a *App) activate(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active {
		return
	}
	a.active = true
	a.seen = false
	a.dropped = false

	log.Info().Bool("authenticated", a.session.Authenticated()).Msg("session active, starting live game")
	a.live.Connect()
	a.cache.Start(ctx)
}

func (a *App) deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}
	a.active = false

	log.Info().Msg("session inactive, stopping live game")
	a.live.Close()
	a.cache.Stop()
	a.cache.Clear()
}

// observe invalidates the live-backed queries once the connection is back
// after a drop, covering events missed while disconnected.
func (a *App) observe(state live.ConnectionState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}

	switch state {
	case live.Connected:
		if a.seen && a.dropped {
			log.Info().Msg("live connection restored, refreshing game data")
			a.cache.Invalidate(liveBackedKeys...)
		}
		a.seen = true
		a.dropped = false
	default:
		if a.seen {
			a.dropped = true
		}
	}
}

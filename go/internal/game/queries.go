package game

import (
	"context"
	"time"

	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/querycache"
)

// Query keys of the REST backstop
const (
	KeySettings      = "game-settings"
	KeyCurrentHolder = "current-holder"
	KeyLeaderboard   = "leaderboard"
	KeyRecentTags    = "recent-tags"
	KeyAchievements  = "achievements"
	KeyNotifications = "notifications"
	KeyUnreadCount   = "notifications/unread-count"
)

const (
	currentHolderInterval = 10 * time.Second
	recentTagsInterval    = 15 * time.Second
	leaderboardInterval   = 30 * time.Second
	unreadCountInterval   = 30 * time.Second

	recentTagsPageSize = 5
)

// liveBackedKeys are refetched after the live connection comes back
var liveBackedKeys = []string{KeyLeaderboard, KeyRecentTags, KeyCurrentHolder}

func (a *App) registerQueries() {
	a.cache.Register(querycache.Query{
		Key: KeySettings,
		Fetch: func(ctx context.Context) (any, error) {
			return a.api.Settings(ctx)
		},
	})
	a.cache.Register(querycache.Query{
		Key:      KeyCurrentHolder,
		Interval: currentHolderInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return a.api.CurrentHolder(ctx)
		},
	})
	a.cache.Register(querycache.Query{
		Key:      KeyLeaderboard,
		Interval: leaderboardInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return a.api.Leaderboard(ctx)
		},
	})
	a.cache.Register(querycache.Query{
		Key:      KeyRecentTags,
		Interval: recentTagsInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return a.api.Tags(ctx, api.TagFilter{PageSize: recentTagsPageSize})
		},
	})
	a.cache.Register(querycache.Query{
		Key: KeyAchievements,
		Fetch: func(ctx context.Context) (any, error) {
			return a.api.Achievements(ctx, 0)
		},
	})

	// spectators have no notifications; their fetch yields no data
	a.cache.Register(querycache.Query{
		Key: KeyNotifications,
		Fetch: func(ctx context.Context) (any, error) {
			if !a.session.Authenticated() {
				return nil, nil
			}
			return a.api.Notifications(ctx)
		},
	})
	a.cache.Register(querycache.Query{
		Key:      KeyUnreadCount,
		Interval: unreadCountInterval,
		Fetch: func(ctx context.Context) (any, error) {
			if !a.session.Authenticated() {
				return nil, nil
			}
			return a.api.UnreadCount(ctx)
		},
	})
}

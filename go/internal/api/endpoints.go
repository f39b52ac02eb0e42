package api

const (
	// DefaultBaseURL is used when TAG_API_URL is unset
	DefaultBaseURL = "http://localhost:8000/api"

	// Users
	TokenEndpoint          = "/users/token/"
	TokenRefreshEndpoint   = "/users/token/refresh/"
	RegisterEndpoint       = "/users/register/"
	ProfileEndpoint        = "/users/me/"
	UpdateProfileEndpoint  = "/users/update_profile/"
	ChangePasswordEndpoint = "/users/change_password/"
	UsersEndpoint          = "/users/"

	// Game
	SettingsEndpoint      = "/game/settings/current/"
	TagsEndpoint          = "/game/tags/"
	CreateTagEndpoint     = "/game/tags/create_tag/"
	CurrentHolderEndpoint = "/game/tags/current_holder/"
	LeaderboardEndpoint   = "/game/leaderboard/"
	AchievementsEndpoint  = "/game/achievements/"

	// Notifications
	NotificationsEndpoint = "/notifications/"
	UnreadEndpoint        = "/notifications/unread/"
	UnreadCountEndpoint   = "/notifications/unread_count/"
	MarkAllReadEndpoint   = "/notifications/mark_all_read/"
	markReadEndpoint      = "/notifications/%d/mark_read/"
)

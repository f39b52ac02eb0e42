package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoToken is returned when claims are requested without an access token
	ErrNoToken = errors.New("no access token")
	// ErrInvalidClaims is returned when the access token has no usable user id
	ErrInvalidClaims = errors.New("invalid token claims")
)

// claims are the fields the backend puts into its access tokens
type claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Store holds the identity of the current user in memory. The live game
// connection is allowed whenever Active reports true.
type Store struct {
	mu           sync.RWMutex
	user         *models.User
	accessToken  string
	refreshToken string
	spectator    bool

	subscribers map[int]chan bool
	nextSubID   int
}

// New creates an empty, inactive session
func New() *Store {
	return &Store{subscribers: make(map[int]chan bool)}
}

// Active reports whether the user is signed in or spectating
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

// Authenticated reports whether the session carries an access token
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// Spectator reports whether the session is an anonymous viewer
func (s *Store) Spectator() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectator
}

// User returns a copy of the signed in user, or nil
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn stores the token pair and the user it belongs to
func (s *Store) SignIn(tokens models.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.activeLocked()
	s.accessToken = tokens.Access
	s.refreshToken = tokens.Refresh
	s.spectator = false
	if tokens.User != nil {
		u := *tokens.User
		s.user = &u
	}

	log.Info().Str("user", s.usernameLocked()).Msg("signed in")
	s.notifyLocked(was)
}

// SetUser replaces the cached profile of the signed in user
func (s *Store) SetUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

// Spectate enters the anonymous viewing mode. It keeps an existing sign in.
func (s *Store) Spectate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" {
		return
	}
	was := s.activeLocked()
	s.spectator = true
	log.Info().Msg("spectating")
	s.notifyLocked(was)
}

// SignOut forgets the user and all tokens
func (s *Store) SignOut() {
	s.Clear()
}

// Clear drops every credential. The api client calls it when a token
// refresh is rejected.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.activeLocked()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.spectator = false

	if was {
		log.Info().Msg("signed out")
	}
	s.notifyLocked(was)
}

// AccessToken returns the current access token, empty when signed out
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, empty when signed out
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SetAccessToken replaces the access token after a refresh
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.activeLocked()
	s.accessToken = token
	if token != "" {
		s.spectator = false
	}
	s.notifyLocked(was)
}

// UserID reads the user id claim of the access token. The signature is not
// verified; the backend remains the authority.
func (s *Store) UserID() (int, error) {
	c, err := s.claims()
	if err != nil {
		return 0, err
	}
	if c.UserID == 0 {
		return 0, ErrInvalidClaims
	}
	return c.UserID, nil
}

// AccessExpired reports whether the access token carries an exp claim at or
// before now. A token without exp never expires.
func (s *Store) AccessExpired(now time.Time) (bool, error) {
	c, err := s.claims()
	if err != nil {
		return false, err
	}
	if c.ExpiresAt == nil {
		return false, nil
	}
	return !now.Before(c.ExpiresAt.Time), nil
}

// Subscribe returns a channel receiving the new Active value on every
// transition. Only the latest value is kept for slow readers.
func (s *Store) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan bool, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *Store) claims() (*claims, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, ErrNoToken
	}

	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return c, nil
}

func (s *Store) activeLocked() bool {
	return s.accessToken != "" || s.spectator
}

func (s *Store) usernameLocked() string {
	if s.user == nil {
		return ""
	}
	return s.user.Username
}

func (s *Store) notifyLocked(was bool) {
	now := s.activeLocked()
	if now == was {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- now:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- now:
			default:
			}
		}
	}
}

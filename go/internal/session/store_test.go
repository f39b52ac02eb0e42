package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, userID int, exp time.Time) string {
	t.Helper()

	c := claims{UserID: userID}
	if !exp.IsZero() {
		c.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no session transition published")
		return false
	}
}

func TestStore_SignInAndOut(t *testing.T) {
	s := New()
	assert.False(t, s.Active())
	assert.Nil(t, s.User())

	s.SignIn(models.TokenPair{
		Access:  signToken(t, 7, time.Time{}),
		Refresh: "refresh-token",
		User:    &models.User{ID: 7, Username: "alice"},
	})

	assert.True(t, s.Active())
	assert.True(t, s.Authenticated())
	assert.False(t, s.Spectator())
	assert.Equal(t, "refresh-token", s.RefreshToken())
	require.NotNil(t, s.User())
	assert.Equal(t, "alice", s.User().Username)

	id, err := s.UserID()
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	s.SignOut()
	assert.False(t, s.Active())
	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
	assert.Nil(t, s.User())
}

func TestStore_UserReturnsCopy(t *testing.T) {
	s := New()
	s.SignIn(models.TokenPair{Access: "a", User: &models.User{Username: "alice"}})

	u := s.User()
	u.Username = "mallory"
	assert.Equal(t, "alice", s.User().Username)
}

func TestStore_Spectate(t *testing.T) {
	s := New()
	s.Spectate()
	assert.True(t, s.Active())
	assert.True(t, s.Spectator())
	assert.False(t, s.Authenticated())

	_, err := s.UserID()
	assert.ErrorIs(t, err, ErrNoToken)

	s.SignIn(models.TokenPair{Access: "a"})
	assert.False(t, s.Spectator())

	// spectating never downgrades a signed in user
	s.Spectate()
	assert.False(t, s.Spectator())
	assert.True(t, s.Authenticated())
}

func TestStore_SubscribePublishesTransitionsOnly(t *testing.T) {
	s := New()
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Spectate()
	assert.True(t, receive(t, ch))

	// spectator to signed in stays active
	s.SignIn(models.TokenPair{Access: "a"})
	select {
	case v := <-ch:
		t.Fatalf("unexpected transition %v", v)
	default:
	}

	s.Clear()
	assert.False(t, receive(t, ch))
}

func TestStore_SubscribeKeepsLatest(t *testing.T) {
	s := New()
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Spectate()
	s.SignOut()

	assert.False(t, receive(t, ch))
}

func TestStore_UnsubscribeIsIdempotent(t *testing.T) {
	s := New()
	ch, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, s.Spectate)
}

func TestStore_SetAccessToken(t *testing.T) {
	s := New()
	s.SignIn(models.TokenPair{Access: "old", Refresh: "r"})
	s.SetAccessToken(signToken(t, 3, time.Time{}))

	id, err := s.UserID()
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, "r", s.RefreshToken())
}

func TestStore_AccessExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New()

	_, err := s.AccessExpired(now)
	assert.ErrorIs(t, err, ErrNoToken)

	s.SignIn(models.TokenPair{Access: signToken(t, 1, now.Add(time.Minute))})
	expired, err := s.AccessExpired(now)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = s.AccessExpired(now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, expired)

	s.SetAccessToken(signToken(t, 1, time.Time{}))
	expired, err = s.AccessExpired(now.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestStore_InvalidTokens(t *testing.T) {
	s := New()
	s.SignIn(models.TokenPair{Access: "not-a-jwt"})

	_, err := s.UserID()
	assert.Error(t, err)

	s.SetAccessToken(signToken(t, 0, time.Time{}))
	_, err = s.UserID()
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

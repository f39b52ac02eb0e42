package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":                  0,
		"00:00:00":          0,
		"01:02:03":          time.Hour + 2*time.Minute + 3*time.Second,
		"2 03:00:00":        51 * time.Hour,
		"00:00:01.500000":   1500 * time.Millisecond,
		"1 00:00:00.000001": 24*time.Hour + time.Microsecond,
	}

	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, in := range []string{"abc", "1:2", "x 00:00:00", "00:aa:00"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestStandingDecodesDuration(t *testing.T) {
	raw := `{"rank":1,"user":{"id":7,"username":"zuzka","full_name":"Zuzka K"},"points":120,` +
		`"tags_given":4,"tags_received":2,"time_held":"1 02:00:00","is_current_holder":true}`

	var s Standing
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, 26*time.Hour, s.TimeHeld.Duration)
	assert.Equal(t, "Zuzka K", s.User.DisplayName())
	assert.True(t, s.IsCurrentHolder)
}

func TestDurationNull(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Zero(t, d.Duration)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:05:09", FormatDuration(5*time.Minute+9*time.Second))
	assert.Equal(t, "3 01:00:00", FormatDuration(73*time.Hour))
}

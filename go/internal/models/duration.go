package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration decodes the backend's duration strings ("[D ]HH:MM:SS[.ffffff]")
type Duration struct {
	time.Duration
}

// ParseDuration parses a "[D ]HH:MM:SS[.ffffff]" duration string
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var days int64
	if i := strings.IndexByte(s, ' '); i >= 0 {
		d, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid days in duration %q: %w", s, err)
		}
		days = d
		s = s[i+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hours in duration %q: %w", s, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in duration %q: %w", s, err)
	}
	secPart, fracPart, _ := strings.Cut(parts[2], ".")
	seconds, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in duration %q: %w", s, err)
	}

	var micros int64
	if fracPart != "" {
		// the backend always sends microsecond precision; pad shorter fractions
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		micros, err = strconv.ParseInt(fracPart+strings.Repeat("0", 6-len(fracPart)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fraction in duration %q: %w", s, err)
		}
	}

	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(micros)*time.Microsecond
	return total, nil
}

// UnmarshalJSON accepts a duration string or null
func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Duration = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalJSON writes the backend's duration format
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatDuration(d.Duration))
}

// FormatDuration renders a duration as "[D ]HH:MM:SS"
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	hms := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if days != 0 {
		return fmt.Sprintf("%d %s", days, hms)
	}
	return hms
}

package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("duration must be in HH:MM:SS format")

// Deficit returns scheduled - paid. Positive means the employee fell short.
func Deficit(scheduled, paid time.Duration) time.Duration {
	return truncate(scheduled) - truncate(paid)
}

// Overtime returns paid - scheduled. Always equal to -Deficit(scheduled, paid).
func Overtime(paid, scheduled time.Duration) time.Duration {
	return truncate(paid) - truncate(scheduled)
}

// Logged returns the time between clock in and clock out.
// ok is false while the record is still open.
func Logged(clockIn time.Time, clockOut *time.Time) (d time.Duration, ok bool) {
	if clockOut == nil {
		return 0, false
	}
	return truncate(clockOut.Sub(clockIn)), true
}

// Hours converts whole scheduled hours into a duration.
func Hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}

// Seconds returns the signed whole-second count of d.
func Seconds(d time.Duration) int64 {
	return int64(truncate(d) / time.Second)
}

// FromSeconds converts stored seconds back into a duration.
func FromSeconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// Format renders d as a signed "+HH:MM:SS" / "-HH:MM:SS" delta.
func Format(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	return sign + FormatUnsigned(d)
}

// FormatUnsigned renders the absolute value of d as "HH:MM:SS".
// Hours are not wrapped at 24.
func FormatUnsigned(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Parse reads "HH:MM:SS" or "HH:MM", optionally prefixed with + or -.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidFormat
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidFormat
	}

	values := make([]int64, 3)
	for i, p := range parts {
		if p == "" {
			return 0, ErrInvalidFormat
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, ErrInvalidFormat
		}
		if i > 0 && v > 59 {
			return 0, ErrInvalidFormat
		}
		values[i] = v
	}

	d := time.Duration(values[0])*time.Hour +
		time.Duration(values[1])*time.Minute +
		time.Duration(values[2])*time.Second
	if neg {
		d = -d
	}
	return d, nil
}

func truncate(d time.Duration) time.Duration {
	return d.Truncate(time.Second)
}

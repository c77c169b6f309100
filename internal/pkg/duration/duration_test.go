package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOvertimeIsNegatedDeficit(t *testing.T) {
	cases := []struct {
		scheduled time.Duration
		paid      time.Duration
	}{
		{8 * time.Hour, 9 * time.Hour},
		{8 * time.Hour, 7*time.Hour + 30*time.Minute},
		{8 * time.Hour, 8 * time.Hour},
		{0, 45 * time.Second},
		{12 * time.Hour, 0},
		{8 * time.Hour, 8*time.Hour + 1500*time.Millisecond},
	}
	for _, c := range cases {
		assert.Equal(t, -Deficit(c.scheduled, c.paid), Overtime(c.paid, c.scheduled),
			"scheduled=%s paid=%s", c.scheduled, c.paid)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "+00:00:00"},
		{time.Hour, "+01:00:00"},
		{-time.Hour, "-01:00:00"},
		{9 * time.Hour, "+09:00:00"},
		{-(30*time.Minute + 5*time.Second), "-00:30:05"},
		{49*time.Hour + 2*time.Minute + 3*time.Second, "+49:02:03"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.in))
	}
}

func TestLogged(t *testing.T) {
	in := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	_, ok := Logged(in, nil)
	assert.False(t, ok, "open record has no logged time")

	out := time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)
	d, ok := Logged(in, &out)
	require.True(t, ok)
	assert.Equal(t, 9*time.Hour, d)
	assert.Equal(t, "+09:00:00", Format(d))
	assert.Equal(t, int64(3600), Seconds(Overtime(d, Hours(8))))
}

func TestParse(t *testing.T) {
	valid := map[string]time.Duration{
		"08:00:00":  8 * time.Hour,
		"09:00":     9 * time.Hour,
		"+01:30:15": time.Hour + 30*time.Minute + 15*time.Second,
		"-00:45:00": -45 * time.Minute,
		"100:00:00": 100 * time.Hour,
	}
	for in, want := range valid {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	invalid := []string{"", "8", "08:60:00", "aa:bb:cc", "08::00", "1:2:3:4", "08:00:-1"}
	for _, in := range invalid {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, in)
	}
}

func TestRoundTripThroughFormat(t *testing.T) {
	for _, d := range []time.Duration{0, 8 * time.Hour, -3*time.Hour - 7*time.Second} {
		got, err := Parse(Format(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

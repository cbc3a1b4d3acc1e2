package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-10-10T10:10:10Z", time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)},
		{"2024-10-10T10:10:10.5Z", time.Date(2024, 10, 10, 10, 10, 10, 500_000_000, time.UTC)},
		{strconv.FormatInt(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC).Unix(), 10), time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		require.True(t, ok, tc.in)
		require.True(t, tc.want.Equal(got), "%s: got %v", tc.in, got)
	}

	for _, bad := range []string{"", "  ", "yesterday", "-5", "03/05/2024"} {
		_, ok := ParseTime(bad)
		require.False(t, ok, bad)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	require.Equal(t, def, ParseTimeDefault("", def))
	require.Equal(t, def, ParseTimeDefault("nope", def))
}

func TestParseDayRange(t *testing.T) {
	start, end, err := ParseDayRange("2024-01-02", "2024-01-31T23:00:00-05:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), start)
	// 23:00 at -05:00 is already Feb 1st in UTC
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	start, end, err = ParseDayRange("", "")
	require.NoError(t, err)
	require.True(t, start.IsZero())
	require.True(t, end.IsZero())

	_, _, err = ParseDayRange("2024-01-02", "bad")
	require.ErrorContains(t, err, "to:")
}

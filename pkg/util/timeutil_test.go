package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2025-02-30")
	require.Error(t, err)
	_, err = ParseDate("28/02/2025")
	require.Error(t, err)
}

func TestTruncateDay(t *testing.T) {
	in := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), TruncateDay(in))
}

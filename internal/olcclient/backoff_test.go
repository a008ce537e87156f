package olcclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollInterval(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 400 * time.Millisecond},
		{100, 400 * time.Millisecond},
		{101, 5 * time.Second},
		{300, 5 * time.Second},
		{301, 30 * time.Second},
		{1000, 30 * time.Second},
	}

	for _, c := range cases {
		require.Equal(t, c.want, PollInterval(c.attempt), "attempt %d", c.attempt)
	}
}

package scrapeerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransport(t *testing.T) {
	require.Nil(t, Transport(context.Background(), "op", nil))

	err := Transport(context.Background(), "fetch suggestions", errors.New("connection reset"))
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrCancelled)
	require.True(t, Recoverable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Transport(ctx, "fetch suggestions", errors.New("whatever"))
	require.ErrorIs(t, err, ErrCancelled)
	require.False(t, Recoverable(err))

	err = Transport(context.Background(), "geohash", context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

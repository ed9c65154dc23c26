package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/worldcal/internal/testutil"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	s := miniredis.RunT(t)
	return "redis://" + s.Addr()
}

func TestInvalidator_FansOut(t *testing.T) {
	url := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewMapSource(testutil.ClockCalendar())

	// Two processes, each with its own cache.
	local := New(src, WithLogger(quietLogger()))
	remote := New(src, WithLogger(quietLogger()))

	localClient, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer localClient.Close()
	remoteClient, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer remoteClient.Close()

	publisher := NewInvalidator(localClient, local, WithInvalidatorLogger(quietLogger()))
	listener := NewInvalidator(remoteClient, remote, WithInvalidatorLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	select {
	case <-listener.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not subscribe")
	}

	_, err = local.Get(ctx, "clock")
	require.NoError(t, err)
	_, err = remote.Get(ctx, "clock")
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, "clock"))

	assert.Equal(t, 0, local.Len(), "publisher evicts locally")
	assert.Eventually(t, func() bool { return remote.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestInvalidator_CustomChannel(t *testing.T) {
	url := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	c := New(NewMapSource(testutil.ClockCalendar()), WithLogger(quietLogger()))
	listener := NewInvalidator(client, c, WithChannel("other"), WithInvalidatorLogger(quietLogger()))
	go func() { _ = listener.Run(ctx) }()
	<-listener.Ready()

	_, err = c.Get(ctx, "clock")
	require.NoError(t, err)

	// A message on the default channel is not for this listener.
	require.NoError(t, client.Publish(ctx, DefaultChannel, "clock").Err())
	require.NoError(t, client.Publish(ctx, "other", "clock").Err())

	assert.Eventually(t, func() bool { return c.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}

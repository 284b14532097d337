package busclient

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simcesplatform/simulation-tools/errors"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	assert.Equal(t, "simulation-component", c.name)
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 2*time.Second, c.reconnectWait)
	assert.False(t, c.IsClosed())
}

func TestNewClientOptions(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithName("grid-component"),
		WithCredentials("user", "pass"),
		WithMaxReconnects(5),
		WithReconnectWait(500*time.Millisecond),
		WithLogger(slog.Default()),
	)
	require.NoError(t, err)
	assert.Equal(t, "grid-component", c.name)
	assert.Equal(t, "user", c.username)
	assert.Equal(t, 5, c.maxReconnects)
	assert.Equal(t, 500*time.Millisecond, c.reconnectWait)
}

func TestNewClientInvalidOptions(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithName(""))
	assert.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithLogger(nil))
	assert.Error(t, err)
}

func TestPublishOnClosedClient(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	assert.True(t, c.IsClosed())

	err = c.Publish(context.Background(), "Status.Ready", []byte("{}"))
	assert.ErrorIs(t, err, errors.ErrClientClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.True(t, c.IsClosed())
}

func TestSubscribeWithoutConnection(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = c.Subscribe(context.Background(), []string{"Epoch"}, func(string, []byte) {})
	assert.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

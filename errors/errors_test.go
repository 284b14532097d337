package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFollowsContextPattern(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Client", "Connect", "establish connection")
	require.Error(t, err)
	assert.Equal(t, "Client.Connect: establish connection failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.Nil(t, Wrap(nil, "Client", "Connect", "establish connection"))
}

func TestClassifiedWrappers(t *testing.T) {
	base := stderrors.New("boom")

	transient := WrapTransient(base, "Client", "Publish", "publish message")
	assert.True(t, IsTransient(transient))
	assert.False(t, IsInvalid(transient))
	assert.False(t, IsFatal(transient))

	invalid := WrapInvalid(base, "Config", "Validate", "check values")
	assert.True(t, IsInvalid(invalid))

	fatal := WrapFatal(base, "Coordinator", "SendError", "create error message")
	assert.True(t, IsFatal(fatal))
	assert.Equal(t, ErrorFatal, Classify(fatal))

	// The base error stays reachable through the chain.
	assert.True(t, Is(transient, base))
	var ce *ClassifiedError
	require.True(t, As(fatal, &ce))
	assert.Equal(t, "Coordinator", ce.Component)
	assert.Equal(t, "SendError", ce.Operation)
}

func TestInvalidCarriesSentinel(t *testing.T) {
	err := Invalid(ErrInvalidDate, "'yesterday' is not a datetime")
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidDate))
	assert.True(t, IsInvalid(err))
	assert.Contains(t, err.Error(), "yesterday")
}

func TestBareSentinelClassification(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidMessageID))
	assert.True(t, IsTransient(ErrNoConnection))
	assert.True(t, IsFatal(ErrMissingConfig))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
}

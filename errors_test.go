package fibsterm

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := IOError("reader", io.EOF)
	assert.Equal(t, KindIO, KindOf(err))
	assert.True(t, IsKind(err, KindIO))
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, io.EOF, errors.Cause(err))
	assert.Equal(t, "reader: I/O error: EOF", err.Error())

	err = ResolutionError("nowhere.invalid", "no such host")
	assert.Equal(t, KindAddressResolution, KindOf(err))
	assert.Contains(t, err.Error(), "nowhere.invalid: no such host")

	err = DisconnectedError("bytes")
	assert.Equal(t, KindChannelDisconnected, KindOf(err))
	assert.Equal(t, "bytes: channel disconnected: peer exited", err.Error())

	err = ConfigError(errors.New("bad port"))
	assert.Equal(t, KindMalformedConfiguration, KindOf(err))
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := errors.Wrap(DisconnectedError("bytes"), "session loop")
	assert.True(t, IsKind(err, KindChannelDisconnected))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "bytes", e.Source)

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindUnknown))
}

func TestErrorWithoutCause(t *testing.T) {
	err := &Error{Kind: KindIO, Source: "terminal"}
	assert.Equal(t, "terminal: I/O error", err.Error())
	assert.Equal(t, "unknown error", Kind(99).String())
}

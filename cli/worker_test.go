package cli

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerReturnsError(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := spawn(log, "reader", func() error { return errors.New("boom") })

	r, ok := w.join(time.Second)
	require.True(t, ok)
	assert.Equal(t, "reader", r.Name)
	assert.EqualError(t, r.Err, "boom")
	assert.Nil(t, r.Panic)
}

func TestWorkerRecoversPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	w := spawn(log, "renderer", func() error { panic("bad frame") })

	r, ok := w.join(time.Second)
	require.True(t, ok)
	assert.Equal(t, "renderer", r.Name)
	assert.Equal(t, "bad frame", r.Panic)
	assert.NotEmpty(t, r.Stack)
	assert.NoError(t, r.Err)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "renderer", hook.LastEntry().Data["worker"])
}

func TestWorkerJoinTimeout(t *testing.T) {
	log, _ := test.NewNullLogger()
	release := make(chan struct{})
	w := spawn(log, "relay", func() error {
		<-release
		return nil
	})

	r, ok := w.join(20 * time.Millisecond)
	assert.False(t, ok)
	assert.Equal(t, "relay", r.Name)

	close(release)
	<-w.Done()
	_, ok = w.join(time.Second)
	assert.True(t, ok)
}

package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phroun/fibsterm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBanner = "\r\nWelcome to Foo.\r\n\r\nlogin: "

// lockedBuffer is a bytes.Buffer safe for concurrent use
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeConsole stands in for the host terminal. Keys are written to keys.
type fakeConsole struct {
	mu     sync.Mutex
	starts int
	stops  int

	startErr error
	input    io.Reader
	keys     *io.PipeWriter
	out      lockedBuffer
}

func newFakeConsole(t *testing.T) *fakeConsole {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	return &fakeConsole{input: pr, keys: pw}
}

func (c *fakeConsole) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return c.startErr
}

func (c *fakeConsole) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeConsole) Input() io.Reader       { return c.input }
func (c *fakeConsole) Output() io.Writer      { return &c.out }
func (c *fakeConsole) Size() (cols, rows int) { return 80, 24 }

func (c *fakeConsole) counts() (starts, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

func (c *fakeConsole) typeKeys(s string) {
	go io.WriteString(c.keys, s)
}

// startServer accepts one connection and hands it to handle
func startServer(t *testing.T, handle func(conn net.Conn)) fibsterm.Config {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	cfg := fibsterm.DefaultConfig()
	cfg.Hostname = "127.0.0.1"
	cfg.Port = uint16(ln.Addr().(*net.TCPAddr).Port)
	cfg.DialTimeout = 2 * time.Second
	return cfg
}

func newTestClient(cfg fibsterm.Config, console Console, opts ...ClientOption) (*Client, *bytes.Buffer) {
	log, _ := test.NewNullLogger()
	var diag bytes.Buffer
	opts = append([]ClientOption{WithLogger(log), WithDiagnostics(&diag)}, opts...)
	return NewClient(cfg, console, opts...), &diag
}

func runClient(ctx context.Context, c *Client) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("client did not return")
		return nil
	}
}

func TestClientLoginRoundTrip(t *testing.T) {
	lines := make(chan string, 1)
	cfg := startServer(t, func(conn net.Conn) {
		io.WriteString(conn, testBanner)
		line, err := bufio.NewReader(conn).ReadString('\r')
		if err != nil {
			return
		}
		lines <- line
		io.WriteString(conn, "password: ")
	})

	console := newFakeConsole(t)
	client, diag := newTestClient(cfg, console)
	done := runClient(context.Background(), client)
	console.typeKeys("bob\r")

	require.NoError(t, waitRun(t, done))

	select {
	case line := <-lines:
		assert.Equal(t, "bob\r", line)
	default:
		t.Fatal("server did not receive the login line")
	}

	out := console.out.String()
	assert.Contains(t, out, "Welcome to Foo.")
	assert.Contains(t, out, "password:")
	assert.Empty(t, diag.String())

	starts, stops := console.counts()
	assert.Equal(t, 1, starts)
	assert.GreaterOrEqual(t, stops, 1)
}

func TestClientDisconnectDuringBanner(t *testing.T) {
	cfg := startServer(t, func(conn net.Conn) {
		io.WriteString(conn, "Welcome to")
	})

	console := newFakeConsole(t)
	client, _ := newTestClient(cfg, console)
	err := waitRun(t, runClient(context.Background(), client))

	require.Error(t, err)
	assert.Equal(t, fibsterm.KindChannelDisconnected, fibsterm.KindOf(err))
	_, stops := console.counts()
	assert.GreaterOrEqual(t, stops, 1)
}

func TestClientQuitKey(t *testing.T) {
	cfg := startServer(t, func(conn net.Conn) {
		io.WriteString(conn, testBanner)
		io.Copy(io.Discard, conn)
	})

	console := newFakeConsole(t)
	client, _ := newTestClient(cfg, console)
	done := runClient(context.Background(), client)

	require.Eventually(t, func() bool {
		return strings.Contains(console.out.String(), "Welcome to Foo.")
	}, 5*time.Second, 10*time.Millisecond)
	console.typeKeys("\x03")

	require.NoError(t, waitRun(t, done))
}

func TestClientContextCanceled(t *testing.T) {
	cfg := startServer(t, func(conn net.Conn) {
		io.WriteString(conn, testBanner)
		io.Copy(io.Discard, conn)
	})

	console := newFakeConsole(t)
	client, _ := newTestClient(cfg, console)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runClient(ctx, client)

	require.Eventually(t, func() bool {
		return strings.Contains(console.out.String(), "Welcome to Foo.")
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	require.NoError(t, waitRun(t, done))
	_, stops := console.counts()
	assert.GreaterOrEqual(t, stops, 1)
}

type failingResolver struct{}

func (failingResolver) ResolveIPv4(ctx context.Context, host string, port uint16) (*net.TCPAddr, error) {
	return nil, fibsterm.ResolutionError(host, "no such host")
}

func TestClientResolutionFailure(t *testing.T) {
	console := newFakeConsole(t)
	client, _ := newTestClient(fibsterm.DefaultConfig(), console, WithResolver(failingResolver{}))

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, fibsterm.KindAddressResolution, fibsterm.KindOf(err))

	starts, stops := console.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestClientConsoleStartFailure(t *testing.T) {
	console := newFakeConsole(t)
	console.startErr = fibsterm.IOError("terminal", errors.New("standard input is not a terminal"))
	client, _ := newTestClient(fibsterm.DefaultConfig(), console, WithResolver(failingResolver{}))

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, fibsterm.KindIO, fibsterm.KindOf(err))
	_, stops := console.counts()
	assert.Equal(t, 1, stops)
}

func TestClientReportsStuckWorker(t *testing.T) {
	cfg := startServer(t, func(conn net.Conn) {
		io.WriteString(conn, testBanner+"password: ")
	})

	console := newFakeConsole(t)
	// Neither closable nor interruptible, so the relay cannot be stopped
	console.input = struct{ io.Reader }{console.input}
	client, diag := newTestClient(cfg, console, WithJoinTimeout(50*time.Millisecond))

	require.NoError(t, waitRun(t, runClient(context.Background(), client)))
	assert.Contains(t, diag.String(), "fibsterm: relay did not stop within 50ms")
}

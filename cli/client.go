package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/phroun/fibsterm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultJoinTimeout is how long shutdown waits for each worker goroutine
const DefaultJoinTimeout = 2 * time.Second

// Console is the host terminal the client takes over while it runs
type Console interface {
	Start() error
	Stop() error
	Input() io.Reader
	Output() io.Writer
	Size() (cols, rows int)
}

// resizeNotifier is implemented by consoles that report host size changes
type resizeNotifier interface {
	SetOnResize(fn func(cols, rows int))
}

// Client connects to the server and runs one session on a console
type Client struct {
	cfg         fibsterm.Config
	console     Console
	options     Options
	resolver    fibsterm.Resolver
	log         logrus.FieldLogger
	diag        io.Writer
	joinTimeout time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithResolver replaces the system resolver
func WithResolver(r fibsterm.Resolver) ClientOption {
	return func(c *Client) { c.resolver = r }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithDiagnostics sets where worker panics and join timeouts are reported
// after the terminal has been restored (default: stderr)
func WithDiagnostics(w io.Writer) ClientOption {
	return func(c *Client) { c.diag = w }
}

// WithJoinTimeout sets how long shutdown waits for each worker
func WithJoinTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.joinTimeout = d }
}

// WithOptions overrides the screen options derived from the configuration
func WithOptions(opts Options) ClientOption {
	return func(c *Client) { c.options = opts }
}

// NewClient creates a client for cfg drawing on console
func NewClient(cfg fibsterm.Config, console Console, opts ...ClientOption) *Client {
	c := &Client{
		cfg:         cfg,
		console:     console,
		options:     OptionsFromConfig(cfg),
		resolver:    fibsterm.SystemResolver{},
		log:         fibsterm.DiscardLogger(),
		diag:        os.Stderr,
		joinTimeout: DefaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.ReadBuffer < 1 {
		c.cfg.ReadBuffer = 1
	}
	return c
}

// Run takes over the console, connects and runs the session until the server
// hangs up, the user quits or ctx is canceled. The console is always restored
// before Run returns.
func (c *Client) Run(ctx context.Context) error {
	if err := c.console.Start(); err != nil {
		c.stopConsole()
		return err
	}

	log := c.log.WithFields(logrus.Fields{
		"host": fibsterm.SanitizeForLog(c.cfg.Hostname),
		"port": c.cfg.Port,
	})

	addr, err := c.resolver.ResolveIPv4(ctx, c.cfg.Hostname, c.cfg.Port)
	if err != nil {
		log.WithError(err).Error("address resolution failed")
		c.stopConsole()
		return err
	}
	conn, err := fibsterm.Dial(ctx, addr, c.cfg.DialTimeout)
	if err != nil {
		log.WithError(err).Error("connect failed")
		c.stopConsole()
		return err
	}
	log.WithField("addr", addr.String()).Info("connected")

	bytesCh := make(chan byte, c.cfg.ReadBuffer)
	queue := fibsterm.NewUpdateQueue()
	if rn, ok := c.console.(resizeNotifier); ok {
		rn.SetOnResize(func(cols, rows int) {
			queue.Send(fibsterm.Update{Kind: fibsterm.UpdateResize})
		})
	}

	session := fibsterm.NewSession(queue, c.log)
	renderer := NewRenderer(c.console.Output(), c.console.Size, c.options)
	relay := NewRelay(c.console.Input(), conn, queue, c.log)

	reader := spawn(c.log, "reader", func() error { return fibsterm.ReadLoop(conn, bytesCh) })
	display := spawn(c.log, "renderer", func() error { return renderer.Run(queue) })
	input := spawn(c.log, "relay", relay.Run)

	loopErr := c.loop(ctx, session, bytesCh, relay.Quit(), display.Done(), input.Done())
	log.WithField("phase", session.Phase().String()).WithError(loopErr).Info("session ended")

	// Shutdown order matters: the socket first so the reader returns, then the
	// keyboard, then the display
	conn.CloseRead()
	conn.CloseWrite()
	go func() {
		// Unblock a reader waiting on a full channel
		for range bytesCh {
		}
	}()
	relay.Cancel()
	queue.Close()
	c.stopConsole()

	results := c.joinAll(reader, display, input)
	conn.Close()

	if loopErr != nil {
		return loopErr
	}
	for _, r := range results {
		if r.Err != nil && !expectedAtShutdown(r.Err) {
			return r.Err
		}
	}
	return nil
}

// loop feeds received bytes to the session until it is done, the byte channel
// closes, the user quits, ctx is canceled or a display-side worker stops
func (c *Client) loop(ctx context.Context, s *fibsterm.Session, in <-chan byte, quit <-chan struct{},
	rendererDone, relayDone <-chan struct{}) error {

	for s.Phase() != fibsterm.PhaseDone {
		select {
		case b, ok := <-in:
			if !ok {
				return s.Disconnected()
			}
			s.Feed(b)

			// Take whatever else has already arrived before updating the display
		drain:
			for i := 0; i < c.cfg.ReadBuffer; i++ {
				select {
				case b, ok := <-in:
					if !ok {
						return s.Disconnected()
					}
					s.Feed(b)
				default:
					break drain
				}
			}
			s.Flush()

		case <-quit:
			s.Finish()
			return nil

		case <-ctx.Done():
			c.log.WithError(ctx.Err()).Info("context canceled")
			s.Finish()
			return nil

		case <-rendererDone:
			return nil

		case <-relayDone:
			return nil
		}
	}
	return nil
}

func (c *Client) stopConsole() {
	if err := c.console.Stop(); err != nil {
		c.log.WithError(err).Error("failed to restore terminal")
		fmt.Fprintf(c.diag, "fibsterm: %v\n", err)
	}
}

// joinAll waits for every worker and reports panics and timeouts as diagnostics
func (c *Client) joinAll(workers ...*worker) []Result {
	results := make([]Result, 0, len(workers))
	for _, w := range workers {
		r, ok := w.join(c.joinTimeout)
		log := c.log.WithField("worker", r.Name)
		switch {
		case !ok:
			log.WithField("timeout", c.joinTimeout.String()).Warn("worker did not stop")
			fmt.Fprintf(c.diag, "fibsterm: %s did not stop within %s\n", r.Name, c.joinTimeout)
		case r.Panic != nil:
			log.WithField("stack", string(r.Stack)).Error("worker panic")
			fmt.Fprintf(c.diag, "fibsterm: %s panicked: %v\n", r.Name, r.Panic)
		}
		results = append(results, r)
	}
	return results
}

// expectedAtShutdown reports errors caused by the orderly close of the socket
func expectedAtShutdown(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

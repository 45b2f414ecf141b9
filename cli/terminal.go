package cli

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/phroun/fibsterm"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// BorderStyle defines the visual style for the panel borders
type BorderStyle int

const (
	BorderNone    BorderStyle = iota // No border
	BorderSingle                     // Single-line box drawing characters
	BorderDouble                     // Double-line box drawing characters
	BorderHeavy                      // Heavy/thick box drawing characters
	BorderRounded                    // Rounded corners (single line)
)

// ParseBorderStyle maps a FIBS_BORDER value to a BorderStyle. Unknown names
// give BorderRounded.
func ParseBorderStyle(name string) BorderStyle {
	switch strings.ToLower(name) {
	case "none":
		return BorderNone
	case "single":
		return BorderSingle
	case "double":
		return BorderDouble
	case "heavy":
		return BorderHeavy
	default:
		return BorderRounded
	}
}

// DefaultPrompt is shown in front of the input line
const DefaultPrompt = "> "

// Options configures the screen layout
type Options struct {
	ScrollbackSize int                  // Number of content lines kept (default: 10000)
	Scheme         fibsterm.ColorScheme // Colors of the frame (default: DefaultColorScheme())

	// Display options
	BorderStyle    BorderStyle // Border style around both panels
	Title          string      // Shown centered in the top border, followed by the session phase
	ShowInputPanel bool        // Draw the input line in its own bordered panel
	Prompt         string      // Prompt in front of the input line (default: "> ")
}

// OptionsFromConfig builds screen options from the client configuration. The
// hostname is stripped of control characters before it goes into the title.
func OptionsFromConfig(cfg fibsterm.Config) Options {
	return Options{
		ScrollbackSize: cfg.Scrollback,
		Scheme:         fibsterm.DefaultColorScheme(),
		BorderStyle:    ParseBorderStyle(cfg.Border),
		Title:          "FIBS " + fibsterm.SanitizeForLog(cfg.Hostname),
		ShowInputPanel: cfg.InputPanel,
		Prompt:         DefaultPrompt,
	}
}

func (o Options) withDefaults() Options {
	if o.ScrollbackSize <= 0 {
		o.ScrollbackSize = fibsterm.DefaultScrollback
	}
	if o.Scheme == (fibsterm.ColorScheme{}) {
		o.Scheme = fibsterm.DefaultColorScheme()
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	return o
}

// Terminal is the host terminal the client draws on. It owns raw mode, the
// alternate screen and the resize watcher, and guards output so nothing is
// written after Stop.
type Terminal struct {
	mu sync.Mutex

	in  *os.File
	out *os.File

	// input is a second descriptor for the controlling tty in non-blocking mode,
	// so a pending read can be interrupted with a deadline
	input *os.File

	// Original terminal state for restoration
	oldState *term.State

	started bool
	stopped bool
	done    chan struct{}

	// Called when the host terminal is resized
	onResize func(cols, rows int)
}

// NewTerminal creates a terminal on stdin and stdout
func NewTerminal() *Terminal {
	return &Terminal{
		in:   os.Stdin,
		out:  os.Stdout,
		done: make(chan struct{}),
	}
}

// getHostTerminalSize returns the current size of the host terminal
func getHostTerminalSize(f *os.File) (cols, rows int) {
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}

// Start enters raw mode, switches to the alternate screen and starts watching
// for resizes. Calling Start again has no effect.
func (t *Terminal) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return fibsterm.IOError("terminal", errors.New("standard input is not a terminal"))
	}

	// Enter raw mode
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fibsterm.IOError("terminal", errors.Wrap(err, "failed to enter raw mode"))
	}
	t.oldState = oldState
	t.started = true

	t.input = openInput()

	// Hide host cursor, enable alternate screen buffer, clear screen
	t.out.WriteString("\033[?25l\033[?1049h\033[2J\033[H")

	go t.handleSIGWINCH()
	return nil
}

// openInput opens the controlling tty a second time in non-blocking mode. The
// file is registered with the runtime poller, which makes SetReadDeadline work.
// It returns nil when the tty cannot be opened that way.
func openInput() *os.File {
	fd, err := unix.Open("/dev/tty", unix.O_RDONLY|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil
	}
	return os.NewFile(uintptr(fd), "/dev/tty")
}

// handleSIGWINCH listens for terminal resize signals
func (t *Terminal) handleSIGWINCH() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, unix.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			t.handleResize()
		case <-t.done:
			return
		}
	}
}

// handleResize reports the new host size to the resize callback
func (t *Terminal) handleResize() {
	t.mu.Lock()
	fn := t.onResize
	stopped := t.stopped
	t.mu.Unlock()

	if fn == nil || stopped {
		return
	}
	fn(t.Size())
}

// SetOnResize sets a callback for host terminal resize events
func (t *Terminal) SetOnResize(fn func(cols, rows int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onResize = fn
}

// Size returns the host terminal size in columns and rows
func (t *Terminal) Size() (cols, rows int) {
	return getHostTerminalSize(t.out)
}

// Input returns the keyboard reader. When the tty could be reopened in
// non-blocking mode the reader supports SetReadDeadline; otherwise it is plain
// stdin, which is never closed by readers.
func (t *Terminal) Input() io.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.input != nil {
		return t.input
	}
	return struct{ io.Reader }{t.in}
}

// Output returns a writer to the host terminal that discards writes after Stop
func (t *Terminal) Output() io.Writer {
	return guardedWriter{t}
}

type guardedWriter struct {
	t *Terminal
}

func (w guardedWriter) Write(p []byte) (int, error) {
	w.t.mu.Lock()
	defer w.t.mu.Unlock()
	if w.t.stopped {
		return len(p), nil
	}
	return w.t.out.Write(p)
}

// Stop restores the original terminal state. It is safe to call more than once
// and before Start.
func (t *Terminal) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return nil
	}
	t.stopped = true
	close(t.done)

	if !t.started {
		return nil
	}

	if t.input != nil {
		t.input.Close()
	}

	// Reset attributes, show cursor, disable alternate screen buffer
	t.out.WriteString("\033[0m\033[?25h\033[?1049l")

	// Restore terminal mode
	if t.oldState != nil {
		if err := term.Restore(int(t.in.Fd()), t.oldState); err != nil {
			return fibsterm.IOError("terminal", errors.Wrap(err, "failed to restore terminal mode"))
		}
	}
	return nil
}

// Close is an alias for Stop
func (t *Terminal) Close() error {
	return t.Stop()
}

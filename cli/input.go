package cli

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/phroun/fibsterm"
	"github.com/sirupsen/logrus"
)

// Special key constants for internal handling
const (
	keyNone = iota
	keyUp
	keyDown
	keyLeft
	keyRight
	keyHome
	keyEnd
	keyPageUp
	keyPageDown
	keyInsert
	keyDelete
	keyF1
	keyF2
	keyF3
	keyF4
)

// Modifier flags
const (
	modShift = 1 << iota
	modAlt
	modCtrl
)

// Control bytes with a meaning of their own
const (
	ctrlC     = 0x03
	ctrlD     = 0x04
	backspace = 0x08
	escape    = 0x1b
	del       = 0x7f
)

// maxEscapeLen bounds an escape sequence; longer ones are dropped
const maxEscapeLen = 32

// Relay reads keystrokes from the keyboard, keeps the line being typed, echoes
// it to the display and sends each finished line to the server
type Relay struct {
	in   io.Reader
	conn io.Writer
	sink fibsterm.Sink
	log  logrus.FieldLogger

	line         []rune
	utf8Buffer   []byte
	escapeBuffer []byte
	lastCR       bool

	escapeTimeout time.Duration
	lastEscape    time.Time

	quit     chan struct{}
	quitOnce sync.Once
	canceled atomic.Bool
}

// NewRelay creates a relay reading keys from in and writing lines to conn
func NewRelay(in io.Reader, conn io.Writer, sink fibsterm.Sink, log logrus.FieldLogger) *Relay {
	return &Relay{
		in:            in,
		conn:          conn,
		sink:          sink,
		log:           log,
		escapeBuffer:  make([]byte, 0, maxEscapeLen),
		escapeTimeout: 50 * time.Millisecond,
		quit:          make(chan struct{}),
	}
}

// Quit is closed when the user asks to leave (Ctrl-C, Ctrl-D or end of input)
func (h *Relay) Quit() <-chan struct{} {
	return h.quit
}

// Cancel interrupts a pending read so Run returns. It uses a read deadline when
// the input supports one and closes the input otherwise.
func (h *Relay) Cancel() {
	h.canceled.Store(true)
	if d, ok := h.in.(interface{ SetReadDeadline(time.Time) error }); ok {
		if err := d.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	if c, ok := h.in.(io.Closer); ok {
		c.Close()
	}
}

func (h *Relay) quitting() bool {
	select {
	case <-h.quit:
		return true
	default:
		return false
	}
}

func (h *Relay) requestQuit(reason string) {
	h.quitOnce.Do(func() {
		h.log.WithField("reason", reason).Info("quit requested")
		close(h.quit)
	})
}

// Run reads and processes keyboard input until quit, cancellation or a failure
func (h *Relay) Run() error {
	buf := make([]byte, 256)

	for {
		n, err := h.in.Read(buf)
		if n > 0 {
			if perr := h.processInput(buf[:n]); perr != nil {
				return perr
			}
			if h.quitting() {
				return nil
			}
		}
		if err != nil {
			if h.canceled.Load() {
				return nil
			}
			if err == io.EOF {
				h.requestQuit("end of input")
				return nil
			}
			return fibsterm.IOError("relay", err)
		}
	}
}

// processInput handles raw input bytes. An escape sequence may arrive split
// over several reads; its bytes are kept until the sequence completes.
func (h *Relay) processInput(data []byte) error {
	if len(h.escapeBuffer) > 0 && time.Since(h.lastEscape) > h.escapeTimeout {
		// The pending ESC was a key press of its own
		h.escapeBuffer = h.escapeBuffer[:0]
	}

	for i := 0; i < len(data); i++ {
		b := data[i]

		if len(h.escapeBuffer) > 0 {
			h.escapeBuffer = append(h.escapeBuffer, b)
			key, mods, consumed := parseEscapeSequence(h.escapeBuffer)
			if consumed == 0 {
				if len(h.escapeBuffer) >= maxEscapeLen {
					h.escapeBuffer = h.escapeBuffer[:0]
				}
				continue
			}
			if key != keyNone {
				h.handleSpecialKey(key, mods)
			}
			// Bytes the sequence did not use are examined again
			i -= len(h.escapeBuffer) - consumed
			h.escapeBuffer = h.escapeBuffer[:0]
			continue
		}

		if b == escape {
			h.escapeBuffer = append(h.escapeBuffer, b)
			h.lastEscape = time.Now()
			continue
		}

		if err := h.handleRegularInput(b); err != nil {
			return err
		}
		if h.quitting() {
			return nil
		}
	}
	return nil
}

// parseEscapeSequence attempts to parse an escape sequence.
// Returns: key code, modifiers, bytes consumed (0 while incomplete)
func parseEscapeSequence(seq []byte) (key int, mods int, consumed int) {
	if len(seq) < 2 {
		return keyNone, 0, 0
	}

	switch {
	case seq[1] == '[':
		return parseCSISequence(seq)
	case seq[1] == 'O':
		return parseSS3Sequence(seq)
	case seq[1] >= 0x20 && seq[1] < 0x7f:
		// Alt+key
		return keyNone, modAlt, 2
	}
	// ESC followed by a control or non-ASCII byte: only the ESC is used
	return keyNone, 0, 1
}

// parseCSISequence parses CSI (ESC [) sequences such as ESC [ 5 ; 2 ~ and
// ESC [ 1 ; 2 A
func parseCSISequence(seq []byte) (key int, mods int, consumed int) {
	if len(seq) < 3 {
		return keyNone, 0, 0
	}

	lastByte := seq[len(seq)-1]
	if lastByte >= '0' && lastByte <= '9' || lastByte == ';' {
		return keyNone, 0, 0 // Need more data
	}
	if lastByte < 0x20 {
		// Broken sequence; the control byte is a key of its own
		return keyNone, 0, len(seq) - 1
	}

	params := strings.Split(string(seq[2:len(seq)-1]), ";")
	switch lastByte {
	case 'A':
		key = keyUp
	case 'B':
		key = keyDown
	case 'C':
		key = keyRight
	case 'D':
		key = keyLeft
	case 'H':
		key = keyHome
	case 'F':
		key = keyEnd
	case '~':
		switch params[0] {
		case "1", "7":
			key = keyHome
		case "2":
			key = keyInsert
		case "3":
			key = keyDelete
		case "4", "8":
			key = keyEnd
		case "5":
			key = keyPageUp
		case "6":
			key = keyPageDown
		}
	}

	// Modifier parameter: ESC [ <n> ; <mod> <final>
	if len(params) >= 2 {
		if modNum, err := strconv.Atoi(params[1]); err == nil && modNum >= 2 && modNum <= 8 {
			modNum--
			if modNum&1 != 0 {
				mods |= modShift
			}
			if modNum&2 != 0 {
				mods |= modAlt
			}
			if modNum&4 != 0 {
				mods |= modCtrl
			}
		}
	}

	return key, mods, len(seq)
}

// parseSS3Sequence parses SS3 (ESC O) sequences
func parseSS3Sequence(seq []byte) (key int, mods int, consumed int) {
	if len(seq) < 3 {
		return keyNone, 0, 0
	}

	switch seq[2] {
	case 'A':
		key = keyUp
	case 'B':
		key = keyDown
	case 'C':
		key = keyRight
	case 'D':
		key = keyLeft
	case 'H':
		key = keyHome
	case 'F':
		key = keyEnd
	case 'P':
		key = keyF1
	case 'Q':
		key = keyF2
	case 'R':
		key = keyF3
	case 'S':
		key = keyF4
	}
	return key, 0, 3
}

// handleSpecialKey handles scrollback navigation; other special keys are ignored
func (h *Relay) handleSpecialKey(key int, mods int) {
	if mods&modShift == 0 {
		return
	}
	delta := 0
	switch key {
	case keyPageUp:
		delta = fibsterm.ScrollPageUp
	case keyPageDown:
		delta = fibsterm.ScrollPageDown
	case keyUp:
		delta = 1
	case keyDown:
		delta = -1
	case keyHome:
		delta = fibsterm.ScrollTop
	case keyEnd:
		delta = fibsterm.ScrollBottom
	default:
		return
	}
	h.sink.Send(fibsterm.Update{Kind: fibsterm.UpdateScroll, Delta: delta})
}

// handleRegularInput handles regular (non-escape) input
func (h *Relay) handleRegularInput(b byte) error {
	afterCR := h.lastCR
	h.lastCR = false

	switch {
	case b == ctrlC:
		h.requestQuit("ctrl-c")
	case b == ctrlD:
		h.requestQuit("ctrl-d")
	case b == '\r':
		h.lastCR = true
		return h.submit()
	case b == '\n':
		if afterCR {
			return nil
		}
		return h.submit()
	case b == del || b == backspace:
		if n := len(h.line); n > 0 {
			h.line = h.line[:n-1]
			h.sink.Send(fibsterm.Update{Kind: fibsterm.UpdateErase})
		}
	case b < 0x20:
		// Other control keys are not sent
	case b < utf8.RuneSelf:
		h.echo(rune(b))
	default:
		h.handleMultibyte(b)
	}
	return nil
}

// handleMultibyte assembles UTF-8 sequences into runes
func (h *Relay) handleMultibyte(b byte) {
	if utf8.RuneStart(b) {
		h.utf8Buffer = h.utf8Buffer[:0]
	} else if len(h.utf8Buffer) == 0 {
		return // Stray continuation byte
	}
	h.utf8Buffer = append(h.utf8Buffer, b)
	if !utf8.FullRune(h.utf8Buffer) {
		return
	}
	r, size := utf8.DecodeRune(h.utf8Buffer)
	h.utf8Buffer = h.utf8Buffer[:0]
	if r == utf8.RuneError && size <= 1 {
		return
	}
	h.echo(r)
}

func (h *Relay) echo(r rune) {
	h.line = append(h.line, r)
	h.sink.Send(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: r})
}

// submit sends the accumulated line to the server, terminated by CR
func (h *Relay) submit() error {
	data := string(h.line) + "\r"
	if _, err := io.WriteString(h.conn, data); err != nil {
		return fibsterm.IOError("relay", err)
	}
	h.line = h.line[:0]
	h.sink.Send(fibsterm.Update{Kind: fibsterm.UpdateSubmit})
	h.log.WithField("bytes", len(data)).Debug("line sent")
	return nil
}

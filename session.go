package fibsterm

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// Phase is the protocol phase of a session. Phases only move forward.
type Phase int

const (
	PhaseCollectingBanner Phase = iota
	PhaseAwaitingLogin
	PhaseAwaitingPassword
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseCollectingBanner:
		return "collecting banner"
	case PhaseAwaitingLogin:
		return "awaiting login"
	case PhaseAwaitingPassword:
		return "awaiting password"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// PasswordPromptLine is the content line shown when the server asks for a password
const PasswordPromptLine = "password:"

// Session sequences scanner results into protocol phases and decides what reaches
// the display. It is owned by a single goroutine; nothing in it is shared.
type Session struct {
	phase Phase
	table *Table
	state int

	banner  []byte // collected while phase == PhaseCollectingBanner
	pending []byte // live traffic not yet flushed to the display

	sink Sink
	log  logrus.FieldLogger
}

// NewSession creates a session in PhaseCollectingBanner that reports to sink
func NewSession(sink Sink, log logrus.FieldLogger) *Session {
	return &Session{
		phase: PhaseCollectingBanner,
		table: BannerBoundary(),
		sink:  sink,
		log:   log,
	}
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	return s.phase
}

// Feed processes one byte received from the server
func (s *Session) Feed(b byte) {
	switch s.phase {
	case PhaseCollectingBanner:
		next, matched := s.table.Advance(s.state, b)
		if s.state == 0 && next == 0 {
			// still inside the leading blank lines
			return
		}
		s.state = next
		s.banner = append(s.banner, b)
		if matched {
			s.finishBanner()
		}

	case PhaseAwaitingLogin:
		var matched bool
		s.state, matched = s.table.Advance(s.state, b)
		if matched {
			s.sink.Send(Update{Kind: UpdateLine, Text: PasswordPromptLine})
			s.sink.Send(Update{Kind: UpdateMask, Mask: true})
			s.enter(PhaseAwaitingPassword, LoginPrompt())
		}

	case PhaseAwaitingPassword:
		s.pending = append(s.pending, b)
		var matched bool
		s.state, matched = s.table.Advance(s.state, b)
		if matched {
			s.log.Debug("server repeated the login prompt")
		}
	}
}

// Flush sends buffered live traffic to the display. An incomplete trailing UTF-8
// sequence, or a CR that may be the first half of CRLF, is kept for the next call.
func (s *Session) Flush() {
	if len(s.pending) == 0 {
		return
	}
	complete, rest := SplitComplete(s.pending)
	if n := len(complete); n > 0 && complete[n-1] == '\r' {
		complete, rest = complete[:n-1], s.pending[n-1:]
	}
	if len(complete) > 0 {
		if text := DecodeText(complete); text != "" {
			s.sink.Send(Update{Kind: UpdateAppend, Text: text})
		}
	}
	s.pending = append(s.pending[:0], rest...)
}

// Finish flushes everything still pending and moves to PhaseDone
func (s *Session) Finish() {
	if s.phase == PhaseDone {
		return
	}
	if len(s.pending) > 0 {
		if text := DecodeText(s.pending); text != "" {
			s.sink.Send(Update{Kind: UpdateAppend, Text: text})
		}
		s.pending = nil
	}
	s.enter(PhaseDone, nil)
}

// Disconnected is called when the byte stream ends. Once the password prompt
// has been reached the session ends normally; before that the disconnect is an
// error.
func (s *Session) Disconnected() error {
	switch s.phase {
	case PhaseAwaitingPassword, PhaseDone:
		s.Finish()
		return nil
	}
	s.log.WithField("phase", s.phase.String()).Warn("byte stream closed")
	return DisconnectedError("bytes")
}

func (s *Session) finishBanner() {
	text := s.banner[:len(s.banner)-len(s.table.Marker())]
	text = bytes.TrimRight(text, "\r\n")
	banner := DecodeText(text)
	s.sink.Send(Update{Kind: UpdateBanner, Text: banner})
	s.log.WithField("bytes", len(text)).Debug("banner complete")
	s.enter(PhaseAwaitingLogin, PasswordPrompt())
}

func (s *Session) enter(p Phase, table *Table) {
	s.log.WithFields(logrus.Fields{
		"from": s.phase.String(),
		"to":   p.String(),
	}).Info("session phase")
	s.phase = p
	s.table = table
	s.state = 0
	s.banner = nil
	s.sink.Send(Update{Kind: UpdatePhase, Phase: p})
}

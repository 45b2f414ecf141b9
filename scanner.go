// Package fibsterm contains the protocol core of a terminal client for FIBS-style
// talker servers.
//
// This package contains:
//   - Prompt scanner tables that find literal prompt markers in an unframed stream
//   - The session state machine (banner, login prompt, password prompt)
//   - Display-update events and the unbounded queue that carries them
//   - The display buffer rendered by the cli package
//   - Network reading, address resolution, configuration and error kinds
//
// The cli package provides the terminal renderer, the keyboard relay and the
// coordinator that wires everything together.
package fibsterm

// NoDefault marks a state without its own fallback; unmapped bytes return to state 0
const NoDefault = -1

// Prompt markers sent by the server
const (
	LoginMarker    = "login: "
	PasswordMarker = "password: "
)

// StateSpec describes one scanner state: where specific bytes lead, and where every
// other byte falls back to
type StateSpec struct {
	Default int
	Edges   map[byte]int
}

// Table is an immutable byte-transition table recognizing one literal marker.
// State 0 is the initial state; reaching the target state is a match.
type Table struct {
	next   [][256]int
	target int
	marker string
}

// NewTable builds a table from per-state specs. Edges pointing outside the table
// are redirected to state 0.
func NewTable(target int, marker string, states ...StateSpec) *Table {
	t := &Table{
		next:   make([][256]int, len(states)+1),
		target: target,
		marker: marker,
	}
	n := len(t.next)
	for s, spec := range states {
		def := spec.Default
		if def < 0 || def >= n {
			def = 0
		}
		for b := 0; b < 256; b++ {
			t.next[s][b] = def
		}
		for b, to := range spec.Edges {
			if to < 0 || to >= n {
				to = 0
			}
			t.next[s][b] = to
		}
	}
	// The target row restarts scanning like state 0
	if target >= len(states) && target < n {
		t.next[target] = t.next[0]
	}
	return t
}

// NewMarkerTable builds a chain of states matching marker, where every state falls
// back to 0 on a mismatching byte
func NewMarkerTable(marker string) *Table {
	states := make([]StateSpec, len(marker))
	for i := 0; i < len(marker); i++ {
		states[i] = StateSpec{
			Default: NoDefault,
			Edges:   map[byte]int{marker[i]: i + 1},
		}
	}
	return NewTable(len(marker), marker, states...)
}

// NewBoundaryTable builds a table with a skip state (0), a content state (1) and a
// chain for marker. Bytes in skip keep state 0; anything else moves into content.
// Chain states fall back to the content state rather than to 0, so a broken partial
// match never re-enters the skip state.
func NewBoundaryTable(marker string, skip string) *Table {
	const content = 1
	states := make([]StateSpec, 0, len(marker)+2)

	first := map[byte]int{marker[0]: 2}
	for i := 0; i < len(skip); i++ {
		first[skip[i]] = 0
	}
	states = append(states,
		StateSpec{Default: content, Edges: first},
		StateSpec{Default: content, Edges: map[byte]int{marker[0]: 2}},
	)
	for i := 1; i < len(marker); i++ {
		states = append(states, StateSpec{
			Default: content,
			Edges:   map[byte]int{marker[i]: i + 2},
		})
	}
	return NewTable(len(marker)+1, marker, states...)
}

// BannerBoundary finds the end of the message of the day: the login prompt
// following it, after skipping leading blank lines
func BannerBoundary() *Table {
	return NewBoundaryTable(LoginMarker, "\r\n")
}

// PasswordPrompt finds the password prompt that follows a submitted login name
func PasswordPrompt() *Table {
	return NewMarkerTable(PasswordMarker)
}

// LoginPrompt finds a repeated login prompt, which the server sends after a
// rejected login
func LoginPrompt() *Table {
	return NewMarkerTable(LoginMarker)
}

// Advance returns the state reached from state on input b, and whether that state
// is the target. Unknown states behave as state 0.
func (t *Table) Advance(state int, b byte) (next int, matched bool) {
	if state < 0 || state >= len(t.next) {
		state = 0
	}
	next = t.next[state][b]
	return next, next == t.target
}

// Scan feeds data through Advance one byte at a time and returns the final state
// along with the offset of every byte that completed a match
func (t *Table) Scan(state int, data []byte) (next int, matches []int) {
	next = state
	for i, b := range data {
		var ok bool
		next, ok = t.Advance(next, b)
		if ok {
			matches = append(matches, i)
		}
	}
	return next, matches
}

// Target returns the match state
func (t *Table) Target() int {
	return t.target
}

// Marker returns the literal this table recognizes
func (t *Table) Marker() string {
	return t.marker
}

// States returns the number of states in the table
func (t *Table) States() int {
	return len(t.next)
}

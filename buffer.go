package fibsterm

import "strings"

// DefaultScrollback is the number of lines kept when no limit is given
const DefaultScrollback = 10000

// DisplayBuffer holds the text shown in the content panel: an ordered list of
// lines, the last of which may still be open for appends, and a scroll offset
// selecting which part of it is visible. It is owned by the renderer goroutine
// and has no locking of its own.
type DisplayBuffer struct {
	lines    []string
	open     bool // last line still accepts AppendText
	maxLines int

	scrollOffset int // lines scrolled back from the bottom

	dirty bool
}

// NewDisplayBuffer creates an empty buffer keeping at most maxLines lines
func NewDisplayBuffer(maxLines int) *DisplayBuffer {
	if maxLines <= 0 {
		maxLines = DefaultScrollback
	}
	return &DisplayBuffer{
		maxLines: maxLines,
		dirty:    true,
	}
}

// --- Content Methods ---

// AppendText appends s to the current line. Each '\n' ends the current line;
// text after it starts a new one. CR characters are ignored.
func (b *DisplayBuffer) AppendText(s string) {
	s = strings.ReplaceAll(s, "\r", "")
	for {
		i := strings.IndexByte(s, '\n')
		seg := s
		if i >= 0 {
			seg = s[:i]
		}
		if seg != "" || i >= 0 {
			b.extend(seg)
		}
		if i < 0 {
			return
		}
		b.open = false
		s = s[i+1:]
	}
}

// AppendLine adds s as a complete line of its own. A multi-line s adds one line
// per '\n'-separated part.
func (b *DisplayBuffer) AppendLine(s string) {
	s = strings.ReplaceAll(s, "\r", "")
	for _, line := range strings.Split(s, "\n") {
		b.push(line)
	}
	b.open = false
}

// GetLineCount returns the number of lines held
func (b *DisplayBuffer) GetLineCount() int {
	return len(b.lines)
}

// GetLine returns line i, or "" when i is out of range
func (b *DisplayBuffer) GetLine(i int) string {
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return b.lines[i]
}

// IsDirty reports whether content or scroll position changed since ClearDirty
func (b *DisplayBuffer) IsDirty() bool {
	return b.dirty
}

// ClearDirty marks the current content as rendered
func (b *DisplayBuffer) ClearDirty() {
	b.dirty = false
}

func (b *DisplayBuffer) markDirty() {
	b.dirty = true
}

// extend appends seg to the open line, opening a new line when needed
func (b *DisplayBuffer) extend(seg string) {
	if !b.open || len(b.lines) == 0 {
		b.push("")
		b.open = true
	}
	b.lines[len(b.lines)-1] += seg
	b.markDirty()
}

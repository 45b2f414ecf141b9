package fibsterm

import "strings"

// --- Scrollback Management Methods ---

// push adds a line at the bottom, trimming the oldest lines beyond maxLines.
// While scrolled back, the offset grows with the new line so the view stays put.
func (b *DisplayBuffer) push(line string) {
	b.lines = append(b.lines, line)
	if b.scrollOffset > 0 {
		b.scrollOffset++
	}
	if over := len(b.lines) - b.maxLines; over > 0 {
		copy(b.lines, b.lines[over:])
		for i := len(b.lines) - over; i < len(b.lines); i++ {
			b.lines[i] = ""
		}
		b.lines = b.lines[:len(b.lines)-over]
	}
	if b.scrollOffset > len(b.lines) {
		b.scrollOffset = len(b.lines)
	}
	b.markDirty()
}

// GetScrollbackLimit returns the maximum number of lines kept
func (b *DisplayBuffer) GetScrollbackLimit() int {
	return b.maxLines
}

// Clear removes every line and resets the scroll position
func (b *DisplayBuffer) Clear() {
	b.lines = nil
	b.open = false
	b.scrollOffset = 0
	b.markDirty()
}

// SaveText returns the buffer content as plain text, one line per row
func (b *DisplayBuffer) SaveText() string {
	var result strings.Builder
	for _, line := range b.lines {
		result.WriteString(line)
		result.WriteString("\n")
	}
	return result.String()
}

package fibsterm

// --- Vertical Scroll Methods ---

// GetScrollOffset returns how many lines the view is scrolled back from the bottom
func (b *DisplayBuffer) GetScrollOffset() int {
	return b.scrollOffset
}

// GetMaxScrollOffset returns the largest useful scroll offset for a view of rows lines
func (b *DisplayBuffer) GetMaxScrollOffset(rows int) int {
	if rows < 1 {
		rows = 1
	}
	max := len(b.lines) - rows
	if max < 0 {
		return 0
	}
	return max
}

// SetScrollOffset sets how many lines we're scrolled back, clamped for a view of
// rows lines
func (b *DisplayBuffer) SetScrollOffset(offset, rows int) {
	maxOffset := b.GetMaxScrollOffset(rows)
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset != b.scrollOffset {
		b.scrollOffset = offset
		b.markDirty()
	}
}

// Scroll moves the view by delta lines; positive deltas scroll back into history.
// ScrollTop and ScrollBottom jump to either end, ScrollPageUp and ScrollPageDown
// move by one page of rows lines less one.
func (b *DisplayBuffer) Scroll(delta, rows int) {
	page := rows - 1
	if page < 1 {
		page = 1
	}
	switch delta {
	case ScrollTop:
		b.ScrollToTop(rows)
	case ScrollBottom:
		b.ScrollToBottom()
	case ScrollPageUp:
		b.SetScrollOffset(b.scrollOffset+page, rows)
	case ScrollPageDown:
		b.SetScrollOffset(b.scrollOffset-page, rows)
	default:
		b.SetScrollOffset(b.scrollOffset+delta, rows)
	}
}

// ScrollToTop scrolls to the oldest line
func (b *DisplayBuffer) ScrollToTop(rows int) {
	b.SetScrollOffset(b.GetMaxScrollOffset(rows), rows)
}

// ScrollToBottom scrolls to the newest line
func (b *DisplayBuffer) ScrollToBottom() {
	if b.scrollOffset != 0 {
		b.scrollOffset = 0
		b.markDirty()
	}
}

// Window returns the visible slice of the buffer for a view of rows lines as a
// start index and a length
func (b *DisplayBuffer) Window(rows int) (start, length int) {
	if rows < 1 {
		return len(b.lines), 0
	}
	offset := b.scrollOffset
	if max := b.GetMaxScrollOffset(rows); offset > max {
		offset = max
	}
	end := len(b.lines) - offset
	start = end - rows
	if start < 0 {
		start = 0
	}
	return start, end - start
}

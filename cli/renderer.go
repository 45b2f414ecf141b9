package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/phroun/fibsterm"
)

// Renderer draws the content panel and the input line on the host terminal.
// It owns the display buffer; all state changes arrive as fibsterm.Update values.
type Renderer struct {
	out     io.Writer
	size    func() (cols, rows int)
	options Options

	// Model
	buffer *fibsterm.DisplayBuffer
	input  []rune
	mask   bool
	phase  fibsterm.Phase

	// Render state
	layout      layout
	lastRows    []string // Content rows of the previous frame for differential rendering
	lastOffset  int
	fullRender  bool
	borderDirty bool
	inputDirty  bool

	// Output buffer for batching writes
	output strings.Builder

	// Border characters
	borderChars borderCharSet
}

// borderCharSet contains the characters for drawing borders
type borderCharSet struct {
	topLeft     rune
	topRight    rune
	bottomLeft  rune
	bottomRight rune
	horizontal  rune
	vertical    rune
	titleLeft   rune
	titleRight  rune
}

var borderStyles = map[BorderStyle]borderCharSet{
	BorderSingle: {
		topLeft: '┌', topRight: '┐', bottomLeft: '└', bottomRight: '┘',
		horizontal: '─', vertical: '│', titleLeft: '┤', titleRight: '├',
	},
	BorderDouble: {
		topLeft: '╔', topRight: '╗', bottomLeft: '╚', bottomRight: '╝',
		horizontal: '═', vertical: '║', titleLeft: '╡', titleRight: '╞',
	},
	BorderHeavy: {
		topLeft: '┏', topRight: '┓', bottomLeft: '┗', bottomRight: '┛',
		horizontal: '━', vertical: '┃', titleLeft: '┫', titleRight: '┣',
	},
	BorderRounded: {
		topLeft: '╭', topRight: '╮', bottomLeft: '╰', bottomRight: '╯',
		horizontal: '─', vertical: '│', titleLeft: '┤', titleRight: '├',
	},
}

// layout is the screen geometry for one host size. Rows and columns are 0-based.
type layout struct {
	cols, rows int // Host terminal size
	border     int // 1 when panels have a border

	contentCols int
	contentRows int

	inputRow      int
	inputBordered bool
}

func computeLayout(cols, rows int, opts Options) layout {
	l := layout{cols: cols, rows: rows}
	if opts.BorderStyle != BorderNone {
		l.border = 1
	}
	inputHeight := 1
	if opts.ShowInputPanel {
		inputHeight += 2 * l.border
		l.inputBordered = l.border == 1
	}

	l.contentCols = cols - 2*l.border
	if l.contentCols < 1 {
		l.contentCols = 1
	}
	l.contentRows = rows - 2*l.border - inputHeight
	if l.contentRows < 1 {
		l.contentRows = 1
	}

	l.inputRow = l.contentRows + 2*l.border
	if l.inputBordered {
		l.inputRow++
	}
	return l
}

// NewRenderer creates a renderer writing frames to out. size reports the host
// terminal size and is consulted on every frame.
func NewRenderer(out io.Writer, size func() (cols, rows int), opts Options) *Renderer {
	opts = opts.withDefaults()
	r := &Renderer{
		out:        out,
		size:       size,
		options:    opts,
		buffer:     fibsterm.NewDisplayBuffer(opts.ScrollbackSize),
		phase:      fibsterm.PhaseCollectingBanner,
		fullRender: true,
	}

	if opts.BorderStyle != BorderNone {
		r.borderChars = borderStyles[opts.BorderStyle]
	}

	return r
}

// Run draws the first frame, then applies queued updates in batches and redraws
// once per batch. It returns nil once the queue is closed and drained.
func (r *Renderer) Run(q *fibsterm.UpdateQueue) error {
	if err := r.Render(); err != nil {
		return err
	}
	for {
		batch, ok := q.ReceiveBatch()
		if !ok {
			return nil
		}
		for _, u := range batch {
			r.Apply(u)
		}
		if err := r.Render(); err != nil {
			return err
		}
	}
}

// Apply changes the model according to u without drawing anything
func (r *Renderer) Apply(u fibsterm.Update) {
	switch u.Kind {
	case fibsterm.UpdateBanner:
		if u.Text != "" {
			r.buffer.AppendLine(u.Text)
		}
	case fibsterm.UpdateAppend:
		r.buffer.AppendText(u.Text)
	case fibsterm.UpdateLine:
		r.buffer.AppendLine(u.Text)
	case fibsterm.UpdatePhase:
		r.phase = u.Phase
		r.borderDirty = true
	case fibsterm.UpdateMask:
		r.mask = u.Mask
		r.inputDirty = true
	case fibsterm.UpdateEcho:
		r.input = append(r.input, u.Rune)
		r.inputDirty = true
		// Typing scrolls back to current output
		r.buffer.ScrollToBottom()
	case fibsterm.UpdateErase:
		if n := len(r.input); n > 0 {
			r.input = r.input[:n-1]
			r.inputDirty = true
		}
	case fibsterm.UpdateSubmit:
		r.input = r.input[:0]
		r.mask = false
		r.inputDirty = true
		r.buffer.ScrollToBottom()
	case fibsterm.UpdateScroll:
		r.buffer.Scroll(u.Delta, r.currentLayout().contentRows)
	case fibsterm.UpdateResize:
		r.ForceFullRedraw()
	}
}

// ForceFullRedraw clears the cached frame so the next Render draws everything
func (r *Renderer) ForceFullRedraw() {
	r.fullRender = true
}

// Buffer returns the content panel's display buffer
func (r *Renderer) Buffer() *fibsterm.DisplayBuffer {
	return r.buffer
}

// InputText returns the input line as typed, unmasked
func (r *Renderer) InputText() string {
	return string(r.input)
}

// Masked reports whether input echo is currently masked
func (r *Renderer) Masked() bool {
	return r.mask
}

// Phase returns the session phase shown in the title
func (r *Renderer) Phase() fibsterm.Phase {
	return r.phase
}

func (r *Renderer) currentLayout() layout {
	cols, rows := r.size()
	return computeLayout(cols, rows, r.options)
}

func (r *Renderer) title() string {
	if r.options.Title == "" {
		return r.phase.String()
	}
	return r.options.Title + " - " + r.phase.String()
}

// Render draws a full or differential frame. The frame is sent to the output
// with a single Write.
func (r *Renderer) Render() error {
	l := r.currentLayout()
	if l != r.layout {
		r.layout = l
		r.fullRender = true
	}

	offset := r.buffer.GetScrollOffset()
	if offset != r.lastOffset || (offset > 0 && r.buffer.IsDirty()) {
		// The scroll thumb moved
		r.borderDirty = true
	}

	full := r.fullRender
	if !full && !r.borderDirty && !r.inputDirty && !r.buffer.IsDirty() {
		return nil
	}

	// Reset output buffer
	r.output.Reset()

	// Hide cursor during rendering to prevent flicker
	r.output.WriteString("\033[?25l")

	if full {
		r.output.WriteString("\033[0m\033[2J")
		r.lastRows = nil
	}

	if l.border == 1 && (full || r.borderDirty) {
		r.renderBorder(0, 0, l.contentCols, l.contentRows, r.title(), offset)
	}
	if full || r.buffer.IsDirty() {
		r.renderContent(l)
	}
	if l.inputBordered && full {
		r.renderBorder(0, l.inputRow-1, l.contentCols, 1, "", 0)
	}
	cursorCol := r.renderInput(l)

	// Reset attributes, then park the visible cursor at the end of the input line
	r.output.WriteString("\033[0m")
	r.output.WriteString(fmt.Sprintf("\033[%d;%dH", l.inputRow+1, cursorCol+1))
	r.output.WriteString("\033[?25h")

	if _, err := io.WriteString(r.out, r.output.String()); err != nil {
		return fibsterm.IOError("renderer", err)
	}

	r.fullRender = false
	r.borderDirty = false
	r.inputDirty = false
	r.lastOffset = offset
	r.buffer.ClearDirty()
	return nil
}

// renderContent draws the visible window of the display buffer, skipping rows
// that are unchanged since the previous frame
func (r *Renderer) renderContent(l layout) {
	start, n := r.buffer.Window(l.contentRows)
	rows := make([]string, l.contentRows)
	for y := range rows {
		line := ""
		if y < n {
			line = expandTabs(r.buffer.GetLine(start + y))
		}
		text, width := fibsterm.ClipToWidth(line, l.contentCols)
		rows[y] = text + strings.Repeat(" ", l.contentCols-width)
	}

	prev := r.lastRows
	for y, row := range rows {
		if len(prev) == len(rows) && prev[y] == row {
			continue
		}
		r.output.WriteString(fmt.Sprintf("\033[%d;%dH", l.border+y+1, l.border+1))
		r.output.WriteString("\033[0m")
		r.output.WriteString(row)
	}
	r.lastRows = rows
}

// renderInput draws the prompt and the input line, and returns the 0-based
// column where the cursor belongs
func (r *Renderer) renderInput(l layout) int {
	scheme := r.options.Scheme
	prompt, promptWidth := fibsterm.ClipToWidth(r.options.Prompt, l.contentCols)

	text := string(r.input)
	if r.mask {
		text = strings.Repeat("*", len(r.input))
	}

	// Keep one column free for the cursor; long input shows its tail
	avail := l.contentCols - promptWidth - 1
	if avail < 0 {
		avail = 0
	}
	shown := fibsterm.ClipTailToWidth(text, avail)
	shownWidth := fibsterm.StringWidth(shown)

	x := 0
	if l.inputBordered {
		x = l.border
	}
	r.output.WriteString(fmt.Sprintf("\033[%d;%dH", l.inputRow+1, x+1))
	r.output.WriteString(scheme.Prompt.Foreground())
	r.output.WriteString(prompt)
	r.output.WriteString("\033[0m")
	if r.mask {
		r.output.WriteString(scheme.Mask.Foreground())
	}
	r.output.WriteString(shown)
	r.output.WriteString("\033[0m")

	width := l.contentCols
	if !l.inputBordered {
		width = l.cols
	}
	if pad := width - promptWidth - shownWidth; pad > 0 {
		r.output.WriteString(strings.Repeat(" ", pad))
	}
	return x + promptWidth + shownWidth
}

// renderBorder draws a panel border with the title centered in the top edge
// and, when scrolled back, a reverse-video thumb on the right edge
func (r *Renderer) renderBorder(x, y, innerCols, innerRows int, title string, scrollOffset int) {
	bc := r.borderChars
	scheme := r.options.Scheme
	totalWidth := innerCols + 2

	// Top border
	r.output.WriteString(fmt.Sprintf("\033[%d;%dH", y+1, x+1))
	r.output.WriteString("\033[0m")
	r.output.WriteString(scheme.Border.Foreground())

	r.output.WriteRune(bc.topLeft)

	title, titleWidth := fibsterm.ClipToWidth(title, innerCols-4)
	if titleWidth > 0 {
		padding := (innerCols - titleWidth - 4) / 2
		for i := 0; i < padding; i++ {
			r.output.WriteRune(bc.horizontal)
		}
		r.output.WriteRune(bc.titleRight)
		r.output.WriteString(" ")
		r.output.WriteString(scheme.Title.Foreground())
		r.output.WriteString(title)
		r.output.WriteString(scheme.Border.Foreground())
		r.output.WriteString(" ")
		r.output.WriteRune(bc.titleLeft)
		remaining := innerCols - padding - titleWidth - 4
		for i := 0; i < remaining; i++ {
			r.output.WriteRune(bc.horizontal)
		}
	} else {
		for i := 0; i < innerCols; i++ {
			r.output.WriteRune(bc.horizontal)
		}
	}
	r.output.WriteRune(bc.topRight)

	thumbRow := -1
	if scrollOffset > 0 {
		if maxScroll := r.buffer.GetMaxScrollOffset(innerRows); maxScroll > 0 {
			if scrollOffset > maxScroll {
				scrollOffset = maxScroll
			}
			scrollPos := float64(maxScroll-scrollOffset) / float64(maxScroll)
			thumbRow = int(scrollPos * float64(innerRows-1))
		}
	}

	// Side borders
	for row := 0; row < innerRows; row++ {
		// Left border
		r.output.WriteString(fmt.Sprintf("\033[%d;%dH", y+row+2, x+1))
		r.output.WriteRune(bc.vertical)

		// Right border with optional scrollbar
		r.output.WriteString(fmt.Sprintf("\033[%d;%dH", y+row+2, x+totalWidth))
		if row == thumbRow {
			r.output.WriteString("\033[7m") // Reverse video
			r.output.WriteRune(bc.vertical)
			r.output.WriteString("\033[27m") // Normal video
		} else {
			r.output.WriteRune(bc.vertical)
		}
	}

	// Bottom border
	r.output.WriteString(fmt.Sprintf("\033[%d;%dH", y+innerRows+2, x+1))
	r.output.WriteRune(bc.bottomLeft)
	for i := 0; i < innerCols; i++ {
		r.output.WriteRune(bc.horizontal)
	}
	r.output.WriteRune(bc.bottomRight)
	r.output.WriteString("\033[0m")
}

// expandTabs replaces tabs with spaces up to the next multiple of 8 columns
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, ch := range s {
		if ch == '\t' {
			n := 8 - col%8
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(ch)
		col += fibsterm.RuneWidth(ch)
	}
	return sb.String()
}

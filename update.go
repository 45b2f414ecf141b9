package fibsterm

// UpdateKind identifies what a display update changes
type UpdateKind int

const (
	UpdateBanner UpdateKind = iota // Message of the day, shown as lines in the content panel
	UpdateAppend                   // Text appended to the current line; '\n' starts a new one
	UpdateLine                     // One complete new line
	UpdatePhase                    // Session phase changed
	UpdateMask                     // Mask input echo until the next submit
	UpdateEcho                     // Rune typed into the input panel
	UpdateErase                    // Last typed rune removed
	UpdateSubmit                   // Input line sent to the server
	UpdateScroll                   // Content view scrolled by Delta lines
	UpdateResize                   // Host terminal size changed
)

// Scroll deltas that jump to either end of the scrollback, or move by one
// screenful of the content panel
const (
	ScrollTop      = int(^uint(0) >> 1)
	ScrollBottom   = -ScrollTop
	ScrollPageUp   = ScrollTop - 1
	ScrollPageDown = -ScrollPageUp
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateBanner:
		return "banner"
	case UpdateAppend:
		return "append"
	case UpdateLine:
		return "line"
	case UpdatePhase:
		return "phase"
	case UpdateMask:
		return "mask"
	case UpdateEcho:
		return "echo"
	case UpdateErase:
		return "erase"
	case UpdateSubmit:
		return "submit"
	case UpdateScroll:
		return "scroll"
	case UpdateResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Update is one renderable change sent to the display renderer
type Update struct {
	Kind  UpdateKind
	Text  string // Banner, Append, Line
	Rune  rune   // Echo
	Phase Phase  // Phase
	Delta int    // Scroll: positive scrolls back into history
	Mask  bool   // Mask
}

// Sink accepts display updates without blocking
type Sink interface {
	Send(u Update)
}

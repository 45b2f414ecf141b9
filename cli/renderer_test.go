package cli

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/phroun/fibsterm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingWriter records every Write call separately
type countingWriter struct {
	writes []string
	err    error
}

func (w *countingWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func (w *countingWriter) last() string {
	if len(w.writes) == 0 {
		return ""
	}
	return w.writes[len(w.writes)-1]
}

var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// lastText returns the last frame with escape sequences removed
func (w *countingWriter) lastText() string {
	return ansiSequence.ReplaceAllString(w.last(), "")
}

func testOptions() Options {
	return Options{
		BorderStyle:    BorderRounded,
		Title:          "FIBS",
		ShowInputPanel: true,
		Scheme:         fibsterm.PlainColorScheme(),
	}
}

func newTestRenderer(cols, rows int) (*Renderer, *countingWriter) {
	out := &countingWriter{}
	size := func() (int, int) { return cols, rows }
	return NewRenderer(out, size, testOptions()), out
}

func TestComputeLayout(t *testing.T) {
	l := computeLayout(80, 24, Options{BorderStyle: BorderRounded, ShowInputPanel: true})
	assert.Equal(t, 78, l.contentCols)
	assert.Equal(t, 19, l.contentRows)
	assert.Equal(t, 22, l.inputRow)
	assert.True(t, l.inputBordered)

	l = computeLayout(80, 24, Options{BorderStyle: BorderNone, ShowInputPanel: true})
	assert.Equal(t, 80, l.contentCols)
	assert.Equal(t, 23, l.contentRows)
	assert.Equal(t, 23, l.inputRow)
	assert.False(t, l.inputBordered)

	l = computeLayout(80, 24, Options{BorderStyle: BorderSingle})
	assert.Equal(t, 21, l.contentRows)
	assert.Equal(t, 23, l.inputRow)

	l = computeLayout(3, 2, Options{BorderStyle: BorderDouble, ShowInputPanel: true})
	assert.Equal(t, 1, l.contentCols)
	assert.Equal(t, 1, l.contentRows)
}

func TestRenderFirstFrameIsFull(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	require.NoError(t, r.Render())
	require.Len(t, out.writes, 1)

	frame := out.last()
	assert.Contains(t, frame, "\033[2J")
	assert.Contains(t, frame, "╭")
	assert.Contains(t, out.lastText(), "FIBS - collecting banner")
	assert.Contains(t, frame, "> ")
	assert.True(t, strings.HasSuffix(frame, "\033[?25h"))
}

func TestRenderNothingChangedWritesNothing(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	require.NoError(t, r.Render())
	require.NoError(t, r.Render())
	assert.Len(t, out.writes, 1)
}

func TestEchoOrder(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: 'a'})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: 'b'})
	require.NoError(t, r.Render())

	assert.Equal(t, "ab", r.InputText())
	assert.Contains(t, out.lastText(), "> ab")
}

func TestEchoOnlyBatchRedrawsInputOnly(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateBanner, Text: "Welcome to Foo."})
	require.NoError(t, r.Render())
	assert.Contains(t, out.last(), "Welcome to Foo.")

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: 'q'})
	require.NoError(t, r.Render())
	frame := out.last()
	assert.NotContains(t, frame, "Welcome to Foo.")
	assert.NotContains(t, frame, "╭")
	assert.Contains(t, out.lastText(), "> q")
}

func TestDifferentialContentRows(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: "first"})
	require.NoError(t, r.Render())

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: "second"})
	require.NoError(t, r.Render())
	frame := out.last()
	assert.Contains(t, frame, "second")
	assert.NotContains(t, frame, "first")
}

func TestAppendTextJoinsLine(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateAppend, Text: "hel"})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateAppend, Text: "lo\nworld"})
	require.NoError(t, r.Render())

	assert.Equal(t, 2, r.Buffer().GetLineCount())
	assert.Equal(t, "hello", r.Buffer().GetLine(0))
	assert.Contains(t, out.last(), "hello")
	assert.Contains(t, out.last(), "world")
}

func TestMaskedInput(t *testing.T) {
	r, out := newTestRenderer(40, 12)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: fibsterm.PasswordPromptLine})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateMask, Mask: true})
	for _, ch := range "xq" {
		r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: ch})
	}
	require.NoError(t, r.Render())

	assert.True(t, r.Masked())
	frame := out.last()
	assert.Contains(t, out.lastText(), "> **")
	assert.NotContains(t, frame, "xq")

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateSubmit})
	assert.False(t, r.Masked())
	assert.Equal(t, "", r.InputText())
}

func TestEraseRemovesLastRune(t *testing.T) {
	r, _ := newTestRenderer(40, 12)
	for _, ch := range "héé" {
		r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: ch})
	}
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateErase})
	assert.Equal(t, "hé", r.InputText())

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateErase})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateErase})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateErase})
	assert.Equal(t, "", r.InputText())
}

func TestLongInputShowsTail(t *testing.T) {
	r, out := newTestRenderer(12, 8)
	for _, ch := range "abcdefghijklmnop" {
		r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: ch})
	}
	require.NoError(t, r.Render())

	// 10 inner columns: prompt, 7 characters, cursor
	assert.Contains(t, out.lastText(), "> jklmnop")
	assert.NotContains(t, out.lastText(), "ijklmnop")
}

func TestPhaseInTitle(t *testing.T) {
	r, out := newTestRenderer(60, 12)
	require.NoError(t, r.Render())

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdatePhase, Phase: fibsterm.PhaseAwaitingLogin})
	require.NoError(t, r.Render())
	assert.Equal(t, fibsterm.PhaseAwaitingLogin, r.Phase())
	assert.Contains(t, out.lastText(), "FIBS - awaiting login")
}

func TestContentClippedToPanelWidth(t *testing.T) {
	r, out := newTestRenderer(10, 8)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: "日本語テキスト"})
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: "0123456789abc"})
	require.NoError(t, r.Render())

	frame := out.last()
	assert.Contains(t, frame, "日本語テ")
	assert.NotContains(t, frame, "日本語テキ")
	assert.Contains(t, frame, "01234567")
	assert.NotContains(t, frame, "012345678")
}

func TestTabsExpanded(t *testing.T) {
	assert.Equal(t, "a       b", expandTabs("a\tb"))
	assert.Equal(t, "        x", expandTabs("\tx"))
	assert.Equal(t, "plain", expandTabs("plain"))
}

func TestScrollShowsThumb(t *testing.T) {
	r, out := newTestRenderer(30, 12)
	for i := 0; i < 50; i++ {
		r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: fmt.Sprintf("line %d", i)})
	}
	require.NoError(t, r.Render())
	assert.NotContains(t, out.last(), "\033[7m")

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateScroll, Delta: fibsterm.ScrollTop})
	require.NoError(t, r.Render())
	frame := out.last()
	assert.Contains(t, frame, "\033[7m")
	assert.Contains(t, frame, "line 0")

	// Typing jumps back to the newest output
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateEcho, Rune: 'x'})
	assert.Equal(t, 0, r.Buffer().GetScrollOffset())
}

func TestResizeForcesFullRedraw(t *testing.T) {
	cols, rows := 40, 12
	out := &countingWriter{}
	r := NewRenderer(out, func() (int, int) { return cols, rows }, testOptions())
	require.NoError(t, r.Render())

	cols, rows = 50, 14
	require.NoError(t, r.Render())
	assert.Contains(t, out.last(), "\033[2J")

	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateResize})
	require.NoError(t, r.Render())
	assert.Contains(t, out.last(), "\033[2J")
}

func TestRenderWriteFailure(t *testing.T) {
	out := &countingWriter{err: errors.New("broken pipe")}
	r := NewRenderer(out, func() (int, int) { return 40, 12 }, testOptions())

	err := r.Render()
	require.Error(t, err)
	var e *fibsterm.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, fibsterm.KindIO, e.Kind)
	assert.Equal(t, "renderer", e.Source)
}

func TestRunDrainsQueue(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, func() (int, int) { return 40, 12 }, testOptions())
	q := fibsterm.NewUpdateQueue()
	q.Send(fibsterm.Update{Kind: fibsterm.UpdateBanner, Text: "Welcome to Foo."})
	q.Send(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: fibsterm.PasswordPromptLine})
	q.Close()

	require.NoError(t, r.Run(q))
	assert.Contains(t, out.String(), "Welcome to Foo.")
	assert.Contains(t, out.String(), "password:")
}

func TestNoBorderLayout(t *testing.T) {
	out := &countingWriter{}
	opts := testOptions()
	opts.BorderStyle = BorderNone
	r := NewRenderer(out, func() (int, int) { return 20, 5 }, opts)
	r.Apply(fibsterm.Update{Kind: fibsterm.UpdateLine, Text: "hi"})
	require.NoError(t, r.Render())

	frame := out.last()
	assert.NotContains(t, frame, "│")
	assert.Contains(t, frame, "\033[1;1H\033[0mhi")
	assert.Contains(t, frame, "\033[5;1H")
}

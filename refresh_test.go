package vtline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type displayHarness struct {
	t       *testing.T
	display *display
	buffer  *Buffer
	spans   *SpanTable
	prompt  string
	out     bytes.Buffer
}

func newDisplayHarness(t *testing.T, columns uint16) *displayHarness {
	spans := NewSpanTable()
	d := newDisplay(zaptest.NewLogger(t))
	d.setSize(Winsize{Row: 24, Col: columns})
	return &displayHarness{
		t:       t,
		display: d,
		buffer:  NewBuffer(spans),
		spans:   spans,
		prompt:  "> ",
	}
}

func (h *displayHarness) frame(suggestions ...string) frame {
	return frame{
		prompt:        h.prompt,
		promptMetrics: renderedStringMetrics(h.prompt),
		buffer:        h.buffer,
		spans:         h.spans,
		suggestions:   suggestions,
	}
}

// refresh runs one refresh and returns what it wrote.
func (h *displayHarness) refresh(suggestions ...string) string {
	h.out.Reset()
	require.NoError(h.t, h.display.refresh(&h.out, h.frame(suggestions...)))
	return h.out.String()
}

func TestRefreshFirstDraw(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi")

	assert.Equal(t, "\x1b[2K\r> hi", h.refresh())
	assert.False(t, h.buffer.Dirty())
	assert.True(t, h.display.snapshot.valid)
}

func TestRefreshSkipsWhenNothingChanged(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi")
	h.refresh()

	assert.Empty(t, h.refresh())
	assert.Empty(t, h.refresh())
}

func TestRefreshAppendsTypedText(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi")
	h.refresh()

	h.buffer.InsertString("!")
	assert.Equal(t, "!", h.refresh())
	assert.Equal(t, 3, h.display.snapshot.length)
}

func TestRefreshMovesCursorOnly(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi!")
	h.refresh()

	h.buffer.MoveCursor(-2)
	assert.Equal(t, "\x1b[4G", h.refresh())
	assert.Equal(t, 1, h.display.snapshot.cursor)
}

func TestRefreshRedrawsAfterEditInTheMiddle(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi!")
	h.refresh()
	h.buffer.SetCursor(1)
	h.refresh()

	h.buffer.Insert('X')
	assert.Equal(t, "\x1b[2K\r> hXi!\x1b[5G", h.refresh())
}

func TestRefreshWrapsAtTheMargin(t *testing.T) {
	h := newDisplayHarness(t, 10)
	h.buffer.InsertString("abcdefgh")

	assert.Equal(t, "\x1b[2K\r> abcdefgh\r\n", h.refresh())

	h.buffer.Insert('i')
	assert.Equal(t, "i", h.refresh())

	// Both rows are cleared, ending on the prompt row.
	h.buffer.DeleteRange(0, h.buffer.Len())
	assert.Equal(t, "\x1b[2K\x1b[A\x1b[2K\r> ", h.refresh())
}

func TestRefreshCursorOnWrappedRow(t *testing.T) {
	h := newDisplayHarness(t, 10)
	h.buffer.InsertString("abcdefghijkl")
	h.refresh()

	h.buffer.SetCursor(1)
	assert.Equal(t, "\x1b[1A\x1b[4G", h.refresh())

	h.buffer.SetCursor(10)
	assert.Equal(t, "\x1b[1B\x1b[3G", h.refresh())
}

func TestRefreshFullWidthInnerLine(t *testing.T) {
	h := newDisplayHarness(t, 10)
	h.prompt = ""
	h.buffer.InsertString("aaaaaaaaaa\nb")

	// The newline is taken from the pending wrap, so "b" sits on row 1.
	assert.Equal(t, "\x1b[2K\raaaaaaaaaa\r\nb", h.refresh())
	assert.Equal(t, 1, h.display.snapshot.cursorRow(10))

	h.buffer.SetCursor(0)
	assert.Equal(t, "\x1b[1A\x1b[1G", h.refresh())

	h.buffer.DeleteRange(0, h.buffer.Len())
	assert.Equal(t, "\x1b[1B\x1b[2K\x1b[A\x1b[2K\r", h.refresh())
}

func TestRefreshStyles(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("hi!")
	h.spans.Stylize(0, 2, Style{Bold: true})

	assert.Equal(t,
		"\x1b[2K\r> \x1b[1;24;23m\x1b[39m\x1b[49mhi\x1b[22;24;23m\x1b[39m\x1b[49m!",
		h.refresh())

	// Restyling alone forces a redraw.
	h.spans.Strip()
	assert.Equal(t, "\x1b[2K\r> hi!", h.refresh())
}

func TestRefreshStyleReachingTheEnd(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("ab")
	h.spans.Stylize(1, 2, Style{Italic: true})

	out := h.refresh()
	assert.Equal(t,
		"\x1b[2K\r> a\x1b[22;24;3m\x1b[39m\x1b[49mb\x1b[22;24;23m\x1b[39m\x1b[49m",
		out)
}

func TestRefreshShowsControlCharacters(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("a\x01")

	assert.Equal(t, "\x1b[2K\r> a\x1b[7m^A\x1b[27m", h.refresh())
	assert.Equal(t, []LineMetrics{{3}}, h.display.snapshot.contentMetrics.LineMetrics)
}

func TestRefreshSuggestions(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("x")

	assert.Equal(t, "\x1b[2K\r> x\r\na  b\x1b[1A\x1b[4G", h.refresh("a  b"))
	assert.Equal(t, 1, h.display.snapshot.extraRows)

	// Dropping the list clears its row too.
	assert.Equal(t, "\x1b[1B\x1b[2K\x1b[A\x1b[2K\r> x", h.refresh())
	assert.Equal(t, 0, h.display.snapshot.extraRows)
}

func TestRefreshPromptChange(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("x")
	h.refresh()

	h.prompt = "$ "
	assert.Equal(t, "\x1b[2K\r$ x", h.refresh())
}

func TestRefreshAfterInvalidate(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("x")
	h.refresh()

	h.display.invalidate()
	assert.Equal(t, "\x1b[2K\r> x", h.refresh())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestRefreshWriteFailure(t *testing.T) {
	h := newDisplayHarness(t, 80)
	h.buffer.InsertString("x")

	err := h.display.refresh(failingWriter{}, h.frame())
	assert.EqualError(t, err, "write failed")
	assert.False(t, h.display.snapshot.valid)
	assert.True(t, h.buffer.Dirty())
}

func TestVTClearLines(t *testing.T) {
	var out bytes.Buffer
	vtClearLines(0, 0, &out)
	assert.Equal(t, "\x1b[2K", out.String())

	out.Reset()
	vtClearLines(1, 2, &out)
	assert.Equal(t, "\x1b[2B\x1b[2K\x1b[A\x1b[2K\x1b[A\x1b[2K\x1b[A\x1b[2K", out.String())
}

func TestVTMoveRelative(t *testing.T) {
	var out bytes.Buffer
	vtMoveRelative(-2, 3, &out)
	assert.Equal(t, "\x1b[2A\x1b[3C", out.String())

	out.Reset()
	vtMoveRelative(1, -1, &out)
	assert.Equal(t, "\x1b[1B\x1b[1D", out.String())

	out.Reset()
	vtMoveRelative(0, 0, &out)
	assert.Empty(t, out.String())
}

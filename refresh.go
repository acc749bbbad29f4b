package vtline

import (
	"bytes"
	"io"
	"slices"

	"go.uber.org/zap"
)

// displaySnapshot is what the terminal is believed to show. Geometry is
// kept as metrics rather than rows so it can be re-derived after the
// terminal width changes.
type displaySnapshot struct {
	valid          bool
	prompt         string
	promptMetrics  StringMetrics
	contentMetrics StringMetrics
	cursorMetrics  StringMetrics
	cursor         int
	length         int
	// extraRows counts the rows below the line used by a suggestion list.
	extraRows int
}

func (s *displaySnapshot) rows(columns int) int {
	return s.promptMetrics.LinesWithAddition(&s.contentMetrics, columns)
}

func (s *displaySnapshot) cursorRow(columns int) int {
	return s.promptMetrics.LinesWithAddition(&s.cursorMetrics, columns) - 1
}

// frame is the model state a refresh reconciles the terminal with.
type frame struct {
	prompt        string
	promptMetrics StringMetrics
	buffer        *Buffer
	spans         *SpanTable
	suggestions   []string
}

// display owns the DisplaySnapshot and emits the control sequences that
// bring the terminal in line with a frame. All motion is relative to the
// row the prompt starts on, so no cursor position report is ever needed.
type display struct {
	columns int
	lines   int

	snapshot         displaySnapshot
	drawnSpans       *SpanTable
	drawnSuggestions []string
	forceFull        bool

	logger *zap.Logger
}

func newDisplay(logger *zap.Logger) *display {
	return &display{
		columns: 80,
		lines:   24,
		logger:  logger,
	}
}

func (d *display) setSize(size Winsize) {
	if size.Col > 0 {
		d.columns = int(size.Col)
	}
	if size.Row > 0 {
		d.lines = int(size.Row)
	}
}

// invalidate forgets what is on screen, e.g. after the screen was cleared
// or a line was accepted.
func (d *display) invalidate() {
	d.snapshot = displaySnapshot{}
	d.drawnSpans = nil
	d.drawnSuggestions = nil
	d.forceFull = true
}

// refresh reconciles the terminal with f. It writes nothing when neither
// the content nor the cursor changed since the last refresh.
func (d *display) refresh(w io.Writer, f frame) error {
	switch {
	case d.needsRedraw(f):
		if d.canAppend(f) {
			return d.appendPending(w, f)
		}
		return d.redraw(w, f)
	case f.buffer.Cursor() != d.snapshot.cursor:
		return d.moveCursor(w, f)
	}
	return nil
}

func (d *display) needsRedraw(f frame) bool {
	return !d.snapshot.valid ||
		d.forceFull ||
		f.buffer.Dirty() ||
		f.prompt != d.snapshot.prompt ||
		!f.spans.sameAs(d.drawnSpans) ||
		!slices.Equal(f.suggestions, d.drawnSuggestions)
}

// canAppend reports whether the only change is text typed at the end of
// the line with the cursor following it, in which case writing the new
// characters is enough.
func (d *display) canAppend(f frame) bool {
	b := f.buffer
	return d.snapshot.valid &&
		!d.forceFull &&
		!b.touchedInTheMiddle &&
		len(b.pending) != 0 &&
		f.prompt == d.snapshot.prompt &&
		d.snapshot.extraRows == 0 &&
		len(f.suggestions) == 0 &&
		d.snapshot.cursor == d.snapshot.length &&
		b.Cursor() == b.Len() &&
		d.snapshot.length+len(b.pending) == b.Len() &&
		f.spans.sameAs(d.drawnSpans)
}

func (d *display) appendPending(w io.Writer, f frame) error {
	out := &bytes.Buffer{}
	for _, c := range f.buffer.pending {
		writeCharacter(out, c)
	}
	content := bufferMetrics(f.buffer.chars)
	d.finishContent(out, &f.promptMetrics, &content)

	if _, err := w.Write(out.Bytes()); err != nil {
		return err
	}

	d.snapshot.contentMetrics = content
	d.snapshot.cursorMetrics = content
	d.snapshot.cursor = f.buffer.Len()
	d.snapshot.length = f.buffer.Len()
	f.buffer.ClearDirty()
	return nil
}

func (d *display) redraw(w io.Writer, f frame) error {
	out := &bytes.Buffer{}

	// Wipe every row the previous frame occupied, ending on its first row.
	above, below := 0, 0
	if d.snapshot.valid {
		occupied := d.snapshot.rows(d.columns) + d.snapshot.extraRows
		above = d.snapshot.cursorRow(d.columns)
		below = max(occupied-1-above, 0)
	}
	vtClearLines(above, below, out)
	out.WriteString("\r")
	out.WriteString(f.prompt)

	d.writeContent(out, f)

	content := bufferMetrics(f.buffer.chars)
	d.finishContent(out, &f.promptMetrics, &content)
	endRow := f.promptMetrics.LinesWithAddition(&content, d.columns) - 1
	endColumn := f.promptMetrics.OffsetWithAddition(&content, d.columns)

	for _, line := range f.suggestions {
		out.WriteString("\r\n")
		out.WriteString(line)
	}
	currentRow := endRow + len(f.suggestions)

	cursorMetrics := bufferMetrics(f.buffer.chars[:f.buffer.Cursor()])
	targetRow := f.promptMetrics.LinesWithAddition(&cursorMetrics, d.columns) - 1
	targetColumn := f.promptMetrics.OffsetWithAddition(&cursorMetrics, d.columns)
	if targetRow != currentRow || targetColumn != endColumn || len(f.suggestions) != 0 {
		vtMoveRelative(targetRow-currentRow, 0, out)
		vtMoveToColumn(targetColumn, out)
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return err
	}

	d.logger.Debug("redrew line",
		zap.Int("columns", d.columns),
		zap.Int("rows", endRow+1),
		zap.Int("cursorRow", targetRow),
		zap.Int("cursorColumn", targetColumn),
		zap.Int("suggestionRows", len(f.suggestions)))

	d.snapshot = displaySnapshot{
		valid:          true,
		prompt:         f.prompt,
		promptMetrics:  f.promptMetrics,
		contentMetrics: content,
		cursorMetrics:  cursorMetrics,
		cursor:         f.buffer.Cursor(),
		length:         f.buffer.Len(),
		extraRows:      len(f.suggestions),
	}
	d.drawnSpans = f.spans.clone()
	d.drawnSuggestions = slices.Clone(f.suggestions)
	d.forceFull = false
	f.buffer.ClearDirty()
	return nil
}

func (d *display) moveCursor(w io.Writer, f frame) error {
	out := &bytes.Buffer{}
	cursorMetrics := bufferMetrics(f.buffer.chars[:f.buffer.Cursor()])
	targetRow := f.promptMetrics.LinesWithAddition(&cursorMetrics, d.columns) - 1
	targetColumn := f.promptMetrics.OffsetWithAddition(&cursorMetrics, d.columns)

	vtMoveRelative(targetRow-d.snapshot.cursorRow(d.columns), 0, out)
	vtMoveToColumn(targetColumn, out)

	if _, err := w.Write(out.Bytes()); err != nil {
		return err
	}
	d.snapshot.cursorMetrics = cursorMetrics
	d.snapshot.cursor = f.buffer.Cursor()
	return nil
}

// writeContent writes the buffer, switching styles wherever a span
// starts or ends.
func (d *display) writeContent(out *bytes.Buffer, f frame) {
	current := StyleReset
	for i, c := range f.buffer.chars {
		if f.spans.HasBoundary(i) {
			style := f.spans.FindApplicableStyle(i)
			if style != current {
				vtTransitionStyle(current, style, out)
				current = style
			}
		}
		writeCharacter(out, c)
	}
	if current != StyleReset {
		// Don't bleed to EOL
		vtTransitionStyle(current, StyleReset, out)
	}
}

// finishContent leaves the cursor in an unambiguous place: a line that
// ends exactly at the right margin would otherwise leave the terminal in
// its pending-wrap state.
func (d *display) finishContent(out *bytes.Buffer, prompt, content *StringMetrics) {
	last := prompt.lengthOfLastLineWithAddition(content)
	if last > 0 && last%d.columns == 0 {
		out.WriteString("\r\n")
	}
}

func writeCharacter(out *bytes.Buffer, c rune) {
	if c == '\n' {
		out.WriteString("\r\n")
		return
	}
	if c < 0x20 || c == 0x7f {
		out.WriteString("\x1b[7m^")
		out.WriteRune(c ^ 0x40)
		out.WriteString("\x1b[27m")
		return
	}
	out.WriteRune(c)
}

package vtline

import "slices"

// Buffer holds the line being edited and the cursor offset into it.
// Offsets count code points, and 0 <= cursor <= Len() always holds.
type Buffer struct {
	chars  []rune
	cursor int
	spans  *SpanTable

	dirty bool
	// pending holds code points appended at the end of the line since the
	// last redraw; touchedInTheMiddle is set by any other kind of edit.
	pending            []rune
	touchedInTheMiddle bool
}

// NewBuffer returns an empty buffer. Edits re-index the spans in spans;
// a nil table is replaced by a private one.
func NewBuffer(spans *SpanTable) *Buffer {
	if spans == nil {
		spans = NewSpanTable()
	}
	return &Buffer{spans: spans}
}

func (b *Buffer) Len() int {
	return len(b.chars)
}

func (b *Buffer) Cursor() int {
	return b.cursor
}

func (b *Buffer) String() string {
	return string(b.chars)
}

func (b *Buffer) Slice(start, end int) string {
	start, end = b.clampRange(start, end)
	return string(b.chars[start:end])
}

func (b *Buffer) RuneAt(i int) rune {
	return b.chars[i]
}

// Insert inserts r at the cursor and advances the cursor past it.
func (b *Buffer) Insert(r rune) {
	b.InsertString(string(r))
}

// InsertString inserts s at the cursor and advances the cursor past it.
func (b *Buffer) InsertString(s string) {
	at := b.cursor
	n := b.insertRunes([]rune(s), at)
	b.cursor = at + n
}

func (b *Buffer) InsertAt(r rune, at int) {
	b.InsertStringAt(string(r), at)
}

// InsertStringAt inserts s at offset at. The cursor moves only when it was
// strictly after at.
func (b *Buffer) InsertStringAt(s string, at int) {
	b.insertRunes([]rune(s), at)
}

func (b *Buffer) insertRunes(runes []rune, at int) int {
	if len(runes) == 0 {
		return 0
	}
	at = clamp(at, 0, len(b.chars))
	if at == len(b.chars) {
		b.pending = append(b.pending, runes...)
	} else {
		b.touchedInTheMiddle = true
	}

	b.chars = slices.Insert(b.chars, at, runes...)
	if b.cursor > at {
		b.cursor += len(runes)
	}
	b.spans.Shift(at, len(runes))
	b.dirty = true
	return len(runes)
}

// DeleteRange removes [start, end) and returns the removed text. A cursor
// inside the range moves to start, one at or after end moves down with
// the text that followed it.
func (b *Buffer) DeleteRange(start, end int) string {
	start, end = b.clampRange(start, end)
	if start == end {
		return ""
	}
	removed := string(b.chars[start:end])
	b.chars = slices.Delete(b.chars, start, end)

	switch {
	case b.cursor >= end:
		b.cursor -= end - start
	case b.cursor > start:
		b.cursor = start
	}

	b.spans.Collapse(start, end)
	b.touchedInTheMiddle = true
	b.pending = b.pending[:0]
	b.dirty = true
	return removed
}

// MoveCursor moves the cursor by delta, clamped to [0, Len()].
func (b *Buffer) MoveCursor(delta int) {
	b.SetCursor(b.cursor + delta)
}

func (b *Buffer) SetCursor(pos int) {
	b.cursor = clamp(pos, 0, len(b.chars))
}

// Set replaces the whole line and puts the cursor at its end.
func (b *Buffer) Set(line string) {
	b.Clear()
	b.InsertString(line)
	b.touchedInTheMiddle = true
}

func (b *Buffer) Clear() {
	b.DeleteRange(0, len(b.chars))
	b.cursor = 0
}

// replace swaps the code points in [index, index+len(runes)) in place.
func (b *Buffer) replace(index int, runes []rune) {
	copy(b.chars[index:], runes)
	b.touchedInTheMiddle = true
	b.dirty = true
}

func (b *Buffer) Dirty() bool {
	return b.dirty
}

func (b *Buffer) MarkDirty() {
	b.dirty = true
	b.touchedInTheMiddle = true
}

func (b *Buffer) ClearDirty() {
	b.dirty = false
	b.touchedInTheMiddle = false
	b.pending = b.pending[:0]
}

func (b *Buffer) clampRange(start, end int) (int, int) {
	start = clamp(start, 0, len(b.chars))
	end = clamp(end, start, len(b.chars))
	return start, end
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// CutMismatchingChars truncates candidate to the prefix it shares with
// reference, comparing code points from offset from onwards.
func CutMismatchingChars(candidate, reference string, from int) string {
	c := []rune(candidate)
	r := []rune(reference)
	i := clamp(from, 0, len(c))
	for i < len(c) && i < len(r) && c[i] == r[i] {
		i++
	}
	return string(c[:i])
}

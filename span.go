package vtline

import "sort"

type SpanMode int

const (
	SpanModeRune SpanMode = iota
	SpanModeByte
)

// Span is a half-open interval [Start, End) over the line buffer.
// Offsets are code points unless Mode is SpanModeByte.
type Span struct {
	Start int
	End   int
	Mode  SpanMode
}

type spanEntry struct {
	style  Style
	serial uint64
}

// SpanTable stores styled spans as two maps keyed by offset: spans
// starting at an offset (keyed again by their end) and spans ending at an
// offset (keyed again by their start).
type SpanTable struct {
	spansStarting map[int]map[int]spanEntry
	spansEnding   map[int]map[int]spanEntry
	serial        uint64
}

func NewSpanTable() *SpanTable {
	return &SpanTable{
		spansStarting: map[int]map[int]spanEntry{},
		spansEnding:   map[int]map[int]spanEntry{},
	}
}

// Stylize registers style over [start, end). It reports whether the
// table changed; empty styles and empty or inverted ranges are ignored.
func (t *SpanTable) Stylize(start, end int, style Style) bool {
	if style.IsEmpty() || start < 0 || start >= end {
		return false
	}
	t.serial++
	t.put(start, end, spanEntry{style: style, serial: t.serial})
	return true
}

func (t *SpanTable) put(start, end int, entry spanEntry) {
	startingMap, ok := t.spansStarting[start]
	if !ok {
		startingMap = map[int]spanEntry{}
		t.spansStarting[start] = startingMap
	}
	startingMap[end] = entry

	endingMap, ok := t.spansEnding[end]
	if !ok {
		endingMap = map[int]spanEntry{}
		t.spansEnding[end] = endingMap
	}
	endingMap[start] = entry
}

// FindApplicableStyle composes every span covering offset, in the order
// the spans were registered, on top of StyleReset.
func (t *SpanTable) FindApplicableStyle(offset int) Style {
	var applicable []spanEntry
	for start, ends := range t.spansStarting {
		if start > offset {
			continue
		}
		for end, entry := range ends {
			if end > offset {
				applicable = append(applicable, entry)
			}
		}
	}
	sort.Slice(applicable, func(i, j int) bool {
		return applicable[i].serial < applicable[j].serial
	})

	style := StyleReset
	for _, entry := range applicable {
		style.UnifyWith(entry.style)
	}
	return style
}

// HasBoundary reports whether any span starts or ends at offset.
func (t *SpanTable) HasBoundary(offset int) bool {
	return len(t.spansStarting[offset]) != 0 || len(t.spansEnding[offset]) != 0
}

func (t *SpanTable) Len() int {
	n := 0
	for _, ends := range t.spansStarting {
		n += len(ends)
	}
	return n
}

func (t *SpanTable) Strip() {
	t.spansStarting = map[int]map[int]spanEntry{}
	t.spansEnding = map[int]map[int]spanEntry{}
}

// Shift re-indexes spans after delta code points were inserted at at.
// Text inserted at a span's start or end lands outside of it.
func (t *SpanTable) Shift(at, delta int) {
	t.reindex(func(start, end int) (int, int) {
		if start >= at {
			start += delta
		}
		if end > at {
			end += delta
		}
		return start, end
	})
}

// Collapse re-indexes spans after [start, end) was removed. Offsets inside
// the removed range move to start, later offsets move down.
func (t *SpanTable) Collapse(start, end int) {
	removed := end - start
	move := func(offset int) int {
		switch {
		case offset >= end:
			return offset - removed
		case offset > start:
			return start
		default:
			return offset
		}
	}
	t.reindex(func(s, e int) (int, int) {
		return move(s), move(e)
	})
}

func (t *SpanTable) reindex(transform func(start, end int) (int, int)) {
	if len(t.spansStarting) == 0 {
		return
	}
	old := t.spansStarting
	t.Strip()
	for start, ends := range old {
		for end, entry := range ends {
			newStart, newEnd := transform(start, end)
			if existing, ok := t.spansStarting[newStart][newEnd]; ok && existing.serial > entry.serial {
				continue
			}
			t.put(newStart, newEnd, entry)
		}
	}
}

func (t *SpanTable) clone() *SpanTable {
	c := NewSpanTable()
	c.serial = t.serial
	for start, ends := range t.spansStarting {
		for end, entry := range ends {
			c.put(start, end, entry)
		}
	}
	return c
}

// sameAs reports whether both tables would render identically, ignoring
// registration serials.
func (t *SpanTable) sameAs(other *SpanTable) bool {
	if other == nil || t.Len() != other.Len() {
		return false
	}
	for start, ends := range t.spansStarting {
		otherEnds, ok := other.spansStarting[start]
		if !ok {
			return false
		}
		for end, entry := range ends {
			otherEntry, ok := otherEnds[end]
			if !ok || otherEntry.style != entry.style {
				return false
			}
		}
	}
	return true
}

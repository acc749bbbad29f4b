package vtline

// LineMetrics describes one logical (newline-separated) line as it is
// rendered: Length is the number of terminal columns it occupies.
type LineMetrics struct {
	Length int
}

type StringMetrics struct {
	LineMetrics   []LineMetrics
	TotalLength   int
	MaxLineLength int
}

// rows returns how many terminal rows the final line of a frame occupies
// at the given width. A line filling its last row exactly leaves the
// cursor on a fresh row below it.
func rows(length, columnWidth int) int {
	return (length + columnWidth) / columnWidth
}

// innerRows is rows for a line followed by a newline: the newline taken
// from the pending-wrap state at the margin does not add a row.
func innerRows(length, columnWidth int) int {
	return max(1, (length+columnWidth-1)/columnWidth)
}

func (m *StringMetrics) lastLineLength() int {
	return m.LineMetrics[len(m.LineMetrics)-1].Length
}

// LinesWithAddition returns the number of rows needed to show m followed
// immediately by offset, the last line of m sharing a row with the first
// line of offset (a prompt followed by the buffer).
func (m *StringMetrics) LinesWithAddition(offset *StringMetrics, columnWidth int) int {
	lengths := make([]int, 0, len(m.LineMetrics)+len(offset.LineMetrics)-1)
	for _, line := range m.LineMetrics[:len(m.LineMetrics)-1] {
		lengths = append(lengths, line.Length)
	}
	lengths = append(lengths, m.lastLineLength()+offset.LineMetrics[0].Length)
	for _, line := range offset.LineMetrics[1:] {
		lengths = append(lengths, line.Length)
	}

	lines := 0
	for _, length := range lengths[:len(lengths)-1] {
		lines += innerRows(length, columnWidth)
	}
	return lines + rows(lengths[len(lengths)-1], columnWidth)
}

// OffsetWithAddition returns the column at which m followed by offset ends.
func (m *StringMetrics) OffsetWithAddition(offset *StringMetrics, columnWidth int) int {
	return m.lengthOfLastLineWithAddition(offset) % columnWidth
}

func (m *StringMetrics) lengthOfLastLineWithAddition(offset *StringMetrics) int {
	if len(offset.LineMetrics) > 1 {
		return offset.lastLineLength()
	}
	return m.lastLineLength() + offset.LineMetrics[0].Length
}

type vtState int

const (
	vtStateFree vtState = iota
	vtStateEscape
	vtStateBracket
	vtStateBracketArgsSemi
	vtStateTitle
)

// renderedStringMetrics measures a prompt: escape sequences take no room,
// '\r' restarts the line and '\n' starts a new one.
func renderedStringMetrics(s string) StringMetrics {
	return measure([]rune(s), true)
}

// bufferMetrics measures buffer contents, where every code point is shown
// (control characters in caret notation).
func bufferMetrics(runes []rune) StringMetrics {
	return measure(runes, false)
}

func measure(runes []rune, interpretEscapes bool) StringMetrics {
	metrics := StringMetrics{}
	currentLine := LineMetrics{}
	state := vtStateFree

	for i, c := range runes {
		nextC := rune(0)
		if i+1 < len(runes) {
			nextC = runes[i+1]
		}
		if !interpretEscapes && c != '\n' {
			width := renderedWidth(c)
			currentLine.Length += width
			metrics.TotalLength += width
			continue
		}
		state = measureStep(&metrics, &currentLine, c, nextC, state)
	}

	metrics.LineMetrics = append(metrics.LineMetrics, currentLine)
	for _, lineMetric := range metrics.LineMetrics {
		metrics.MaxLineLength = max(lineMetric.Length, metrics.MaxLineLength)
	}

	return metrics
}

func measureStep(metrics *StringMetrics, currentLine *LineMetrics, c, nextC rune, state vtState) vtState {
	switch state {
	case vtStateFree:
		if c == '\x1b' {
			return vtStateEscape
		}
		if c == '\r' {
			currentLine.Length = 0
			return state
		}
		if c == '\n' {
			metrics.LineMetrics = append(metrics.LineMetrics, *currentLine)
			currentLine.Length = 0
			return state
		}
		width := renderedWidth(c)
		currentLine.Length += width
		metrics.TotalLength += width
		return state
	case vtStateEscape:
		if c == ']' {
			if nextC == '0' || nextC == '8' {
				return vtStateTitle
			}
			return vtStateFree
		}
		if c == '[' {
			return vtStateBracket
		}
		return vtStateFree
	case vtStateBracket:
		if c >= '0' && c <= '9' {
			return vtStateBracketArgsSemi
		}
		return vtStateFree
	case vtStateBracketArgsSemi:
		if c == ';' {
			return vtStateBracket
		}
		if c >= '0' && c <= '9' {
			return state
		}
		return vtStateFree
	case vtStateTitle:
		// Terminated by BEL, or by the ST sequence ESC '\'.
		if c == 7 {
			return vtStateFree
		}
		if c == '\x1b' {
			return vtStateEscape
		}
		return state
	default:
		return state
	}
}

// renderedWidth is the number of columns the buffer renderer uses for c.
func renderedWidth(c rune) int {
	if c < 0x20 || c == 0x7f {
		return 2
	}
	return 1
}

package vtline

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

type pageRange struct {
	start int
	end   int
}

// suggestionLayout arranges candidates in columns below the line, in
// pages that leave the prompt on screen.
type suggestionLayout struct {
	columnWidth int
	perRow      int
	pages       []pageRange
}

func (s *suggestionLayout) paginate(candidates []string, columns, lines, promptRows int) {
	longest := 0
	for _, candidate := range candidates {
		longest = max(longest, utf8.RuneCountInString(candidate))
	}

	s.columnWidth = longest + 2
	s.perRow = max(columns/s.columnWidth, 1)

	// One row is kept for the page indicator.
	rowsPerPage := max(lines-promptRows-1, 1)
	perPage := s.perRow * rowsPerPage

	s.pages = s.pages[:0]
	for start := 0; start < len(candidates); start += perPage {
		s.pages = append(s.pages, pageRange{start, min(start+perPage, len(candidates))})
	}
}

// fitToPageBoundary returns the page showing the selected candidate.
func (s *suggestionLayout) fitToPageBoundary(selectionIndex int) int {
	index := sort.Search(len(s.pages), func(i int) bool {
		return s.pages[i].end > selectionIndex
	})

	if index == len(s.pages) {
		return len(s.pages) - 1
	}
	return index
}

func (s *suggestionLayout) render(candidates []string, selected, columns int) []string {
	if len(s.pages) == 0 {
		return nil
	}

	pageIndex := 0
	if selected >= 0 {
		pageIndex = s.fitToPageBoundary(selected)
	}
	page := s.pages[pageIndex]

	highlight := StyleReset
	highlight.ForegroundColor = MakeXtermColor(XtermColorBlue)

	var lines []string
	var row strings.Builder
	inRow := 0
	for i := page.start; i < page.end; i++ {
		if inRow == s.perRow {
			lines = append(lines, row.String())
			row.Reset()
			inRow = 0
		}

		text := truncate(candidates[i], columns-1)
		if i == selected {
			vtTransitionStyle(StyleReset, highlight, &row)
			row.WriteString(text)
			vtTransitionStyle(highlight, StyleReset, &row)
		} else {
			row.WriteString(text)
		}
		inRow++

		if inRow < s.perRow && i+1 < page.end {
			row.WriteString(strings.Repeat(" ", s.columnWidth-utf8.RuneCountInString(text)))
		}
	}
	lines = append(lines, row.String())

	if len(s.pages) > 1 {
		leftArrow := '<'
		if pageIndex == 0 {
			leftArrow = ' '
		}
		rightArrow := '>'
		if pageIndex == len(s.pages)-1 {
			rightArrow = ' '
		}

		str := fmt.Sprintf("%c page %d of %d %c", leftArrow, pageIndex+1, len(s.pages), rightArrow)
		// This would overflow into the next line, so just don't print an indicator
		if len(str) <= columns-1 {
			var indicator strings.Builder
			indicator.WriteString(strings.Repeat(" ", columns-len(str)-1))
			background := StyleReset
			background.BackgroundColor = MakeXtermColor(XtermColorGreen)
			vtTransitionStyle(StyleReset, background, &indicator)
			indicator.WriteString(str)
			vtTransitionStyle(background, StyleReset, &indicator)
			lines = append(lines, indicator.String())
		}
	}

	return lines
}

func truncate(s string, width int) string {
	width = max(width, 1)
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

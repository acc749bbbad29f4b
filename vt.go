package vtline

import (
	"fmt"
	"io"
)

func vtMoveRelative(row, col int, w io.Writer) {
	rowOp := 'A'
	colOp := 'D'

	if row > 0 {
		rowOp = 'B'
	} else {
		row = -row
	}

	if col > 0 {
		colOp = 'C'
	} else {
		col = -col
	}

	if row > 0 {
		_, _ = fmt.Fprintf(w, "\x1b[%d%c", row, rowOp)
	}
	if col > 0 {
		_, _ = fmt.Fprintf(w, "\x1b[%d%c", col, colOp)
	}
}

// vtMoveToColumn moves to a zero-based column on the current row.
func vtMoveToColumn(col int, w io.Writer) {
	_, _ = fmt.Fprintf(w, "\x1b[%dG", col+1)
}

// vtClearLines clears the current row, countAbove rows above it and
// countBelow rows below it, leaving the cursor on the topmost cleared row.
func vtClearLines(countAbove, countBelow int, w io.Writer) {
	if countBelow > 0 {
		_, _ = fmt.Fprintf(w, "\x1b[%dB", countBelow)
	}
	total := countAbove + countBelow + 1
	for i := total; i > 0; i-- {
		_, _ = io.WriteString(w, "\x1b[2K")
		if i != 1 {
			_, _ = io.WriteString(w, "\x1b[A")
		}
	}
}

func vtClearScreen(w io.Writer) error {
	_, err := io.WriteString(w, "\x1b[3J\x1b[H\x1b[2J")
	return err
}

func vtBracketedPaste(enable bool, w io.Writer) error {
	sequence := "\x1b[?2004l"
	if enable {
		sequence = "\x1b[?2004h"
	}
	_, err := io.WriteString(w, sequence)
	return err
}

package vtline

import (
	"fmt"
	"io"
)

type XtermColor int

const (
	XtermColorBlack XtermColor = iota
	XtermColorRed
	XtermColorGreen
	XtermColorYellow
	XtermColorBlue
	XtermColorMagenta
	XtermColorCyan
	XtermColorWhite
	XtermColorUnchanged
	XtermColorDefault
)

type Color struct {
	R uint8
	G uint8
	B uint8

	Xterm8  XtermColor
	IsXterm bool

	HasValue bool
}

func MakeXtermColor(color XtermColor) Color {
	return Color{
		IsXterm:  true,
		HasValue: true,
		Xterm8:   color,
	}
}

func MakeRGBColor(r, g, b uint8) Color {
	return Color{
		R:        r,
		G:        g,
		B:        b,
		HasValue: true,
	}
}

type Hyperlink string

// Style is a set of display attributes applied to a span of the line.
type Style struct {
	ForegroundColor Color
	BackgroundColor Color
	Bold            bool
	Italic          bool
	Underline       bool
	Hyperlink       Hyperlink
}

var StyleReset = Style{
	ForegroundColor: MakeXtermColor(XtermColorDefault),
	BackgroundColor: MakeXtermColor(XtermColorDefault),
}

func (s *Style) IsEmpty() bool {
	return !s.ForegroundColor.HasValue &&
		!s.BackgroundColor.HasValue &&
		!s.Bold &&
		!s.Italic &&
		!s.Underline &&
		len(s.Hyperlink) == 0
}

// UnifyWith layers other on top of s. Boolean attributes are merged,
// colors and hyperlinks are taken from other only when it sets them.
func (s *Style) UnifyWith(other Style) {
	if other.ForegroundColor.HasValue {
		s.ForegroundColor = other.ForegroundColor
	}
	if other.BackgroundColor.HasValue {
		s.BackgroundColor = other.BackgroundColor
	}
	s.Bold = s.Bold || other.Bold
	s.Italic = s.Italic || other.Italic
	s.Underline = s.Underline || other.Underline
	if len(other.Hyperlink) != 0 {
		s.Hyperlink = other.Hyperlink
	}
}

func vtApplyStyle(style Style, w io.Writer) {
	b := 22
	if style.Bold {
		b = 1
	}
	u := 24
	if style.Underline {
		u = 4
	}
	i := 23
	if style.Italic {
		i = 3
	}
	_, _ = fmt.Fprintf(w, "\x1b[%d;%d;%dm%s%s",
		b, u, i,
		style.ForegroundColor.toVTString(true),
		style.BackgroundColor.toVTString(false))
}

// vtTransitionStyle switches the terminal from one style to another,
// closing and opening hyperlinks only when they change.
func vtTransitionStyle(from, to Style, w io.Writer) {
	if from.Hyperlink != to.Hyperlink && len(from.Hyperlink) != 0 {
		_, _ = io.WriteString(w, from.Hyperlink.toVTString(false))
	}
	vtApplyStyle(to, w)
	if from.Hyperlink != to.Hyperlink && len(to.Hyperlink) != 0 {
		_, _ = io.WriteString(w, to.Hyperlink.toVTString(true))
	}
}

func (c *Color) toVTString(foreground bool) string {
	if !c.HasValue {
		return ""
	}

	if c.IsXterm && c.Xterm8 == XtermColorUnchanged {
		return ""
	}

	x := 40
	if foreground {
		x = 30
	}
	if c.IsXterm {
		return fmt.Sprintf("\x1b[%dm", int(c.Xterm8)+x)
	}

	return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", x+8, c.R, c.G, c.B)
}

func (h Hyperlink) toVTString(starting bool) string {
	l := ""
	if starting {
		l = string(h)
	}
	return fmt.Sprintf("\x1b]8;;%s\x1b\\", l)
}

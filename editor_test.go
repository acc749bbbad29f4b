package vtline

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedTerminal replays a script of input chunks. A func() step runs
// when the editor next waits for input, which then times out; once the
// script is exhausted reads report readErr, or io.EOF. Writes containing
// rejectWrite fail.
type scriptedTerminal struct {
	steps       []any
	readErr     error
	rawErr      error
	rejectWrite string

	output   bytes.Buffer
	size     Winsize
	raw      bool
	entered  int
	restored int
}

func newScriptedTerminal() *scriptedTerminal {
	return &scriptedTerminal{size: Winsize{Row: 24, Col: 80}}
}

func (t *scriptedTerminal) script(steps ...any) {
	for _, step := range steps {
		if s, ok := step.(string); ok {
			step = []byte(s)
		}
		t.steps = append(t.steps, step)
	}
}

func (t *scriptedTerminal) Read(p []byte) (int, error) {
	if len(t.steps) == 0 {
		if t.readErr != nil {
			return 0, t.readErr
		}
		return 0, io.EOF
	}
	chunk, ok := t.steps[0].([]byte)
	if !ok {
		return 0, nil
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		t.steps[0] = chunk[n:]
	} else {
		t.steps = t.steps[1:]
	}
	return n, nil
}

func (t *scriptedTerminal) Write(p []byte) (int, error) {
	if t.rejectWrite != "" && bytes.Contains(p, []byte(t.rejectWrite)) {
		return 0, errors.New("write rejected")
	}
	return t.output.Write(p)
}

func (t *scriptedTerminal) EnterRawMode() error {
	if t.rawErr != nil {
		return t.rawErr
	}
	if !t.raw {
		t.raw = true
		t.entered++
	}
	return nil
}

func (t *scriptedTerminal) Restore() error {
	if t.raw {
		t.raw = false
		t.restored++
	}
	return nil
}

func (t *scriptedTerminal) Size() (Winsize, error) {
	return t.size, nil
}

func (t *scriptedTerminal) WaitForInput(time.Duration) (bool, error) {
	if len(t.steps) == 0 {
		return true, nil
	}
	if fn, ok := t.steps[0].(func()); ok {
		t.steps = t.steps[1:]
		fn()
		return false, nil
	}
	return true, nil
}

func (t *scriptedTerminal) ControlCharacters() ControlCharacters {
	return DefaultControlCharacters
}

func pause() {}

func newTestEditor(t *testing.T, term *scriptedTerminal, configure func(cfg *Configuration)) *Editor {
	cfg := DefaultConfiguration()
	cfg.Terminal = term
	cfg.Logger = zaptest.NewLogger(t)
	cfg.EscapeTimeout = time.Millisecond
	cfg.PollInterval = time.Millisecond
	if configure != nil {
		configure(cfg)
	}
	return NewEditor(cfg)
}

func TestGetLineAcceptsLine(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("hello\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
	assert.False(t, e.WasInterrupted())
	assert.Equal(t, []string{"hello"}, e.History())

	assert.False(t, term.raw)
	assert.Equal(t, 1, term.entered)
	assert.Equal(t, 1, term.restored)

	out := term.output.String()
	assert.True(t, strings.HasPrefix(out, "\x1b[?2004h"))
	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "hello")
	assert.True(t, strings.HasSuffix(out, "\r\n\x1b[?2004l"))
}

func TestGetLineEmptyLineIsNotRemembered(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "", line)
	assert.Empty(t, e.History())
}

func TestGetLineWithoutBracketedPaste(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, func(cfg *Configuration) {
		cfg.BracketedPaste = false
	})
	term.script("x\r")

	_, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.NotContains(t, term.output.String(), "\x1b[?2004")
}

func TestGetLineEditing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"backspace", "abd\x7fc\r", "abc"},
		{"ctrl h", "abd\x08c\r", "abc"},
		{"left arrow", "ac\x1b[Db\r", "abc"},
		{"home and end keys", "bc\x1b[Ha\x1b[Fd\r", "abcd"},
		{"ctrl a and ctrl e", "bc\x01a\x05d\r", "abcd"},
		{"ctrl b and ctrl f", "ac\x02\x02\x06b\r", "abc"},
		{"delete key", "abc\x01\x1b[3~\r", "bc"},
		{"ctrl d erases forward", "ab\x01\x04\r", "b"},
		{"ctrl d at end rings", "ab\x04\r", "ab"},
		{"ctrl k", "abc\x01\x06\x0b\r", "a"},
		{"ctrl u", "abc\x02\x15\r", "c"},
		{"ctrl w", "hello world\x17\r", "hello "},
		{"ctrl w over spaces", "hello world  \x17\r", "hello "},
		{"ctrl t at end", "ab\x14\r", "ba"},
		{"ctrl t in the middle", "abc\x02\x02\x14\r", "bac"},
		{"alt b", "foo bar\x1bbX\r", "foo Xbar"},
		{"alt f", "foo bar\x01\x1bfX\r", "fooX bar"},
		{"ctrl left", "foo bar\x1b[1;5DX\r", "foo Xbar"},
		{"ctrl right", "foo bar\x01\x1b[1;5CX\r", "fooX bar"},
		{"alt backspace", "foo=bar\x1b\x7f\r", "foo="},
		{"alt d", "foo bar\x01\x1bd\r", " bar"},
		{"ctrl delete", "foo bar\x01\x1b[3;5~\r", " bar"},
		{"alt c", "hELLO world\x01\x1bc\r", "Hello world"},
		{"alt l", "HELLO\x01\x1bl\r", "hello"},
		{"alt u", "foo bar\x01\x1bu\r", "FOO bar"},
		{"verbatim", "\x16\x01\r", "\x01"},
		{"unicode", "héllo\x02\x7f\r", "hélo"},
		{"unbound key ignored", "a\x1b[5~b\r", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := newScriptedTerminal()
			e := newTestEditor(t, term, nil)
			term.script(tt.input)

			line, err := e.GetLine("> ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestGetLineHistoryNavigation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"previous", "\x1b[A\r", "second"},
		{"previous twice", "\x1b[A\x1b[A\r", "first"},
		{"clamped at oldest", "\x1b[A\x1b[A\x1b[A\r", "first"},
		{"back down", "\x1b[A\x1b[A\x1b[B\r", "second"},
		{"past newest", "\x1b[A\x1b[B\r", ""},
		{"ctrl p and ctrl n", "\x10\x10\x0e\r", "second"},
		{"replaces typed text", "typed\x1b[A\r", "second"},
		{"down without browsing", "typed\x1b[B\r", "typed"},
		{"last word", "\x1b.\r", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := newScriptedTerminal()
			e := newTestEditor(t, term, nil)
			e.AddToHistory("first")
			e.AddToHistory("second")
			if tt.name == "last word" {
				e.AddToHistory("git commit -m x")
			}
			term.script(tt.input)

			line, err := e.GetLine("> ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestGetLineRecalledLineIsRemembered(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	e.AddToHistory("first")
	e.AddToHistory("second")
	term.script("\x1b[A\x1b[A\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)
	assert.Equal(t, []string{"first", "second", "first"}, e.History())
}

func TestGetLineEndOfInput(t *testing.T) {
	t.Run("eof character on empty line", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		term.script("\x04")

		line, err := e.GetLine("> ")
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "", line)
		assert.False(t, term.raw)
	})

	t.Run("input closed", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		term.script("partial")

		line, err := e.GetLine("> ")
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "", line)
		assert.Empty(t, e.History())
		assert.False(t, term.raw)
	})
}

func TestGetLineInterrupt(t *testing.T) {
	t.Run("notified", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		term.script("hel", func() { e.NotifyInterrupted() })

		line, err := e.GetLine("> ")
		require.NoError(t, err)
		assert.Equal(t, "hel", line)
		assert.True(t, e.WasInterrupted())
		assert.Empty(t, e.History())
		assert.False(t, term.raw)
		assert.Contains(t, term.output.String(), "^C\r\n")
	})

	t.Run("ctrl c byte", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		term.script("ab\x03")

		line, err := e.GetLine("> ")
		require.NoError(t, err)
		assert.Equal(t, "ab", line)
		assert.True(t, e.WasInterrupted())
	})

	t.Run("handler runs", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		var seen string
		e.SetInterruptHandler(func(editor *Editor) {
			seen = editor.Line()
		})
		term.script("abc\x03")

		_, err := e.GetLine("> ")
		require.NoError(t, err)
		assert.Equal(t, "abc", seen)
	})

	t.Run("consumed by binding", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		e.RegisterKeybinding([]Key{CtrlKey('C')}, KeyHandlerFunc(func(editor *Editor) bool {
			editor.SetLine("")
			return true
		}))
		term.script("abc", func() { e.NotifyInterrupted() }, "d\r")

		line, err := e.GetLine("> ")
		require.NoError(t, err)
		assert.Equal(t, "d", line)
		assert.False(t, e.WasInterrupted())
	})

	t.Run("stale request is dropped", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		e.NotifyInterrupted()
		term.script("ok\r")

		line, err := e.GetLine("> ")
		require.NoError(t, err)
		assert.Equal(t, "ok", line)
		assert.False(t, e.WasInterrupted())
	})
}

func TestGetLineCompletion(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, func(cfg *Configuration) {
		cfg.OtherTokenCompleter = staticCompleter("tmp", "tmpfs")
	})
	term.script("ls /tm\t\t\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "ls /tm", line)
	assert.Contains(t, term.output.String(), "\r\ntmp    tmpfs")
}

func TestGetLineCompletionCycles(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, func(cfg *Configuration) {
		cfg.FirstTokenCompleter = staticCompleter("checkout", "cherry-pick")
	})
	term.script("ch\t\t\t\t\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "cherry-pick", line)
}

func TestGetLineCompletionResetByOtherKeys(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, func(cfg *Configuration) {
		cfg.FirstTokenCompleter = staticCompleter("checkout", "cherry-pick")
	})
	// The x breaks the run of tabs, so the next tab is a first press again.
	term.script("ch\t\tx\x7f\t\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "che", line)
}

func TestGetLineBell(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, func(cfg *Configuration) {
		cfg.FirstTokenCompleter = staticCompleter()
	})
	term.script("\x7fx\t\r")

	_, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(term.output.String(), "\a"))

	term = newScriptedTerminal()
	e = newTestEditor(t, term, func(cfg *Configuration) {
		cfg.Bell = false
	})
	term.script("\x7f\r")

	_, err = e.GetLine("> ")
	require.NoError(t, err)
	assert.NotContains(t, term.output.String(), "\a")
}

func TestGetLineEscapeTimeout(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("a", "\x1b", pause, "x\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "ax", line)
}

func TestGetLineBracketedPaste(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("\x1b[200~foo\r\nbar\x1b[201~\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "foo\nbar", line)
}

func TestGetLineUnterminatedPasteEndsAfterTimeout(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("\x1b[200~foo", pause, "\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "foo", line)
}

func TestGetLinePasteHandler(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	e.SetPasteHandler(func(text string, editor *Editor) {
		editor.InsertString(strings.ToUpper(text))
	})
	term.script("x\x1b[200~foo\x1b[201~\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "xFOO", line)
}

func TestGetLineCustomBindings(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	e.RegisterCharacterInputCallback('x', KeyHandlerFunc(func(editor *Editor) bool {
		editor.InsertString("[x]")
		return true
	}))
	var observed int
	e.RegisterCharacterInputCallback('y', KeyHandlerFunc(func(editor *Editor) bool {
		observed++
		return false
	}))
	// Overrides the default ^A.
	e.RegisterCharacterInputCallback(0x01, KeyHandlerFunc(func(editor *Editor) bool {
		editor.InsertString("!")
		return true
	}))
	term.script("axby\x01\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "a[x]by!", line)
	assert.Equal(t, 1, observed)
}

func TestGetLineRefreshHandlerStyles(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	calls := 0
	e.SetRefreshHandler(func(editor *Editor) {
		calls++
		editor.StripStyles()
		editor.Stylize(Span{Start: 0, End: len(editor.Line())}, Style{Bold: true})
	})
	term.script("hi\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "hi", line)
	assert.NotZero(t, calls)
	assert.Contains(t, term.output.String(), "\x1b[1;24;23m")
}

func TestGetLineResize(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("ab", func() {
		term.size = Winsize{Row: 30, Col: 40}
		e.NotifyResized()
	}, "\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "ab", line)
	assert.Equal(t, Winsize{Row: 30, Col: 40}, e.TerminalSize())
	assert.Equal(t, 40, e.display.columns)
}

func TestGetLineKeepsInputAfterAcceptedLine(t *testing.T) {
	term := newScriptedTerminal()
	e := newTestEditor(t, term, nil)
	term.script("one\rtwo\r")

	line, err := e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	line, err = e.GetLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "two", line)
	assert.Equal(t, []string{"one", "two"}, e.History())
	assert.Equal(t, 2, term.entered)
}

func TestGetLineTerminalFailures(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		term := newScriptedTerminal()
		term.readErr = errors.New("device gone")
		e := newTestEditor(t, term, nil)
		term.script("abc")

		line, err := e.GetLine("> ")
		assert.ErrorIs(t, err, ErrTerminalUnavailable)
		assert.ErrorContains(t, err, "device gone")
		assert.Equal(t, "", line)
		assert.False(t, term.raw)
	})

	t.Run("raw mode refused", func(t *testing.T) {
		term := newScriptedTerminal()
		term.rawErr = ErrTerminalUnavailable
		e := newTestEditor(t, term, nil)

		_, err := e.GetLine("> ")
		assert.ErrorIs(t, err, ErrTerminalUnavailable)
		assert.Empty(t, term.output.String())
	})

	t.Run("enabling bracketed paste fails", func(t *testing.T) {
		term := newScriptedTerminal()
		term.rejectWrite = "\x1b[?2004h"
		e := newTestEditor(t, term, nil)
		term.script("x\r")

		line, err := e.GetLine("> ")
		assert.ErrorIs(t, err, ErrTerminalUnavailable)
		assert.ErrorContains(t, err, "write rejected")
		assert.Equal(t, "", line)
		assert.False(t, term.raw)
		assert.Empty(t, e.History())
	})

	t.Run("disabling bracketed paste fails", func(t *testing.T) {
		term := newScriptedTerminal()
		term.rejectWrite = "\x1b[?2004l"
		e := newTestEditor(t, term, nil)
		term.script("x\r")

		_, err := e.GetLine("> ")
		assert.ErrorIs(t, err, ErrTerminalUnavailable)
		assert.False(t, term.raw)
		assert.Equal(t, 1, term.restored)
	})

	t.Run("clearing the screen fails", func(t *testing.T) {
		term := newScriptedTerminal()
		term.rejectWrite = "\x1b[2J"
		e := newTestEditor(t, term, nil)
		term.script("ab\x0ccd\r")

		line, err := e.GetLine("> ")
		assert.ErrorIs(t, err, ErrTerminalUnavailable)
		assert.Equal(t, "", line)
		assert.False(t, term.raw)
	})

	t.Run("panic restores terminal", func(t *testing.T) {
		term := newScriptedTerminal()
		e := newTestEditor(t, term, nil)
		e.SetRefreshHandler(func(*Editor) {
			panic("boom")
		})
		term.script("x\r")

		assert.PanicsWithValue(t, "boom", func() {
			_, _ = e.GetLine("> ")
		})
		assert.False(t, term.raw)
	})
}

func TestEditorStylizeByteOffsets(t *testing.T) {
	e := NewEditor(nil)
	e.InsertString("héllo")

	e.Stylize(Span{Start: 3, End: 6, Mode: SpanModeByte}, Style{Bold: true})
	assert.False(t, e.spans.FindApplicableStyle(1).Bold)
	assert.True(t, e.spans.FindApplicableStyle(2).Bold)
	assert.True(t, e.spans.FindApplicableStyle(4).Bold)

	e.Stylize(Span{Start: 10, End: 12, Mode: SpanModeByte}, Style{Italic: true})
	e.Stylize(Span{Start: 7, End: 9}, Style{Italic: true})
	assert.Equal(t, 1, e.spans.Len())

	e.Stylize(Span{Start: 4, End: 9}, Style{Underline: true})
	assert.Contains(t, e.spans.spansStarting[4], 5)
}

func TestEditorLineAccessors(t *testing.T) {
	e := NewEditor(nil)
	e.InsertString("hello world")
	assert.Equal(t, "hello", e.LineUpTo(5))
	assert.Equal(t, 11, e.Cursor())

	e.buffer.SetCursor(3)
	e.SetLine("bye")
	assert.Equal(t, "bye", e.Line())
	assert.Equal(t, 3, e.Cursor())

	e.SetLine("b")
	assert.Equal(t, 1, e.Cursor())

	m := e.ActualRenderedStringMetrics("\x1b[1mab\x1b[0m")
	assert.Equal(t, []LineMetrics{{2}}, m.LineMetrics)
}

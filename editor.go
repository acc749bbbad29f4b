package vtline

import (
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	DefaultEscapeTimeout = 25 * time.Millisecond
	DefaultPasteTimeout  = 500 * time.Millisecond
	DefaultPollInterval  = 100 * time.Millisecond
)

// Configuration controls an Editor. Zero fields are replaced by their
// defaults when the editor is created.
type Configuration struct {
	// Terminal defaults to the process's stdin and stdout, opened on the
	// first call to GetLine.
	Terminal Terminal
	Logger   *zap.Logger

	HistoryCapacity int
	// EscapeTimeout is how long a lone ESC waits for the rest of a
	// sequence before it is taken as the Escape key.
	EscapeTimeout time.Duration
	// PasteTimeout ends a bracketed paste whose terminator has not
	// arrived after this long without input.
	PasteTimeout time.Duration
	// PollInterval bounds how long an idle editor goes without looking at
	// the interrupt and resize flags.
	PollInterval time.Duration

	BracketedPaste bool
	// Bell rings the terminal bell on failed edits and empty completions.
	Bell bool

	FirstTokenCompleter CompletionProvider
	OtherTokenCompleter CompletionProvider
}

func DefaultConfiguration() *Configuration {
	return &Configuration{
		Logger:          zap.NewNop(),
		HistoryCapacity: DefaultHistoryCapacity,
		EscapeTimeout:   DefaultEscapeTimeout,
		PasteTimeout:    DefaultPasteTimeout,
		PollInterval:    DefaultPollInterval,
		BracketedPaste:  true,
		Bell:            true,
	}
}

type Editor struct {
	config   Configuration
	terminal Terminal
	logger   *zap.Logger

	buffer     *Buffer
	spans      *SpanTable
	history    *History
	decoder    *Decoder
	display    *display
	completion *completionEngine
	keys       keyCallbackMachine

	prompt        string
	promptMetrics StringMetrics
	size          Winsize
	controlChars  ControlCharacters
	initialized   bool

	interruptRequested atomic.Bool
	resizeRequested    atomic.Bool

	finish         bool
	wasInterrupted bool
	verbatim       bool
	inputError     error
	readBuffer     []byte
	// unprocessed holds events that arrived after the line was accepted.
	unprocessed []Event

	onRefresh   func(editor *Editor)
	onInterrupt func(editor *Editor)
	onPaste     func(text string, editor *Editor)
}

func NewEditor(cfg *Configuration) *Editor {
	config := DefaultConfiguration()
	if cfg != nil {
		config = cfg
	}

	e := &Editor{
		config:     *config,
		terminal:   config.Terminal,
		logger:     config.Logger,
		readBuffer: make([]byte, 1024),
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.config.EscapeTimeout <= 0 {
		e.config.EscapeTimeout = DefaultEscapeTimeout
	}
	if e.config.PasteTimeout <= 0 {
		e.config.PasteTimeout = DefaultPasteTimeout
	}
	if e.config.PollInterval <= 0 {
		e.config.PollInterval = DefaultPollInterval
	}

	e.spans = NewSpanTable()
	e.buffer = NewBuffer(e.spans)
	e.history = NewHistory(config.HistoryCapacity)
	e.decoder = NewDecoder(e.logger)
	e.display = newDisplay(e.logger)
	e.completion = newCompletionEngine(config.FirstTokenCompleter, config.OtherTokenCompleter, e.logger)
	e.SetPrompt("")
	return e
}

// NotifyInterrupted asks the editor to abandon the current line. It only
// sets a flag and may be called from any goroutine, typically one
// forwarding SIGINT.
func (e *Editor) NotifyInterrupted() {
	e.interruptRequested.Store(true)
}

// NotifyResized tells the editor the terminal size changed. Like
// NotifyInterrupted it is safe to call from any goroutine.
func (e *Editor) NotifyResized() {
	e.resizeRequested.Store(true)
}

// RegisterCharacterInputCallback binds a single character.
func (e *Editor) RegisterCharacterInputCallback(ch rune, handler KeyHandler) {
	k := Key{Code: ch}
	if ch < 0x20 || ch == 0x7f {
		k = keyForControlByte(byte(ch))
	}
	e.RegisterKeybinding([]Key{k}, handler)
}

// RegisterKeybinding binds a key sequence, replacing an earlier binding of
// the same sequence (including the default ones).
func (e *Editor) RegisterKeybinding(keys []Key, handler KeyHandler) {
	e.keys.registerInputCallback(keys, handler)
}

// History returns the accepted lines, oldest first.
func (e *Editor) History() []string {
	return e.history.Entries()
}

func (e *Editor) AddToHistory(line string) {
	e.history.Add(line)
}

// SetRefreshHandler installs a hook run before every full redraw, the
// place to restyle the line.
func (e *Editor) SetRefreshHandler(handler func(editor *Editor)) {
	e.onRefresh = handler
}

// SetInterruptHandler installs a hook run when a line is interrupted,
// before GetLine returns.
func (e *Editor) SetInterruptHandler(handler func(editor *Editor)) {
	e.onInterrupt = handler
}

// SetPasteHandler installs a hook receiving bracketed pastes in place of
// inserting them.
func (e *Editor) SetPasteHandler(handler func(text string, editor *Editor)) {
	e.onPaste = handler
}

func (e *Editor) Line() string {
	return e.buffer.String()
}

func (e *Editor) LineUpTo(n int) string {
	return e.buffer.Slice(0, n)
}

func (e *Editor) Cursor() int {
	return e.buffer.Cursor()
}

// SetLine replaces the line, keeping the cursor where it was if possible.
func (e *Editor) SetLine(line string) {
	cursor := e.buffer.Cursor()
	e.buffer.Set(line)
	e.buffer.SetCursor(cursor)
}

func (e *Editor) InsertString(str string) {
	e.buffer.InsertString(str)
}

func (e *Editor) InsertChar(ch rune) {
	e.buffer.Insert(ch)
}

func (e *Editor) SetPrompt(prompt string) {
	e.prompt = prompt
	e.promptMetrics = renderedStringMetrics(prompt)
}

// Stylize applies style to span. Spans starting past the end of the line
// are ignored and ends past it are clamped.
func (e *Editor) Stylize(span Span, style Style) {
	start, end := span.Start, span.End
	if span.Mode == SpanModeByte {
		start, end = e.byteOffsetToCodePointOffset(start), e.byteOffsetToCodePointOffset(end)
	}
	if start > e.buffer.Len() {
		return
	}
	e.spans.Stylize(start, min(end, e.buffer.Len()), style)
}

// ActualRenderedStringMetrics measures s as the terminal would show it,
// escape sequences taking no room.
func (e *Editor) ActualRenderedStringMetrics(s string) StringMetrics {
	return renderedStringMetrics(s)
}

func (e *Editor) StripStyles() {
	e.spans.Strip()
}

func (e *Editor) byteOffsetToCodePointOffset(offset int) int {
	bytes := 0
	for i, r := range e.buffer.chars {
		if bytes >= offset {
			return i
		}
		bytes += utf8.RuneLen(r)
	}
	if bytes >= offset {
		return e.buffer.Len()
	}
	// Past the end, keep it that way.
	return e.buffer.Len() + 1
}

// Finish accepts the current line once the current key is handled.
func (e *Editor) Finish() {
	e.finish = true
}

// WasInterrupted reports whether the last GetLine ended by interrupt.
func (e *Editor) WasInterrupted() bool {
	return e.wasInterrupted
}

func (e *Editor) TerminalSize() Winsize {
	return e.size
}

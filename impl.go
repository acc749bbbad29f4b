package vtline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// GetLine shows prompt and edits a line until it is accepted, the input
// ends or the editor is interrupted.
//
// An accepted line is returned with a nil error and, if not empty, added
// to the history. End of input returns io.EOF. An interrupt returns the
// partial line with a nil error and WasInterrupted reports true. The
// terminal leaves raw mode before GetLine returns, whatever the outcome.
func (e *Editor) GetLine(prompt string) (line string, err error) {
	if err := e.initialize(); err != nil {
		return "", err
	}
	if err := e.terminal.EnterRawMode(); err != nil {
		return "", err
	}
	defer func() {
		if restoreErr := e.restore(); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	e.reset()
	e.SetPrompt(prompt)
	e.updateTerminalSize()
	if e.config.BracketedPaste {
		if err := vtBracketedPaste(true, e.terminal); err != nil {
			e.fail(err)
		}
	}

	pending := e.unprocessed
	e.unprocessed = nil
	e.handleEvents(pending)
	if !e.finish {
		e.refresh()
	}

	for !e.finish {
		e.tryUpdateOnce()
	}

	return e.reallyQuitEventLoop()
}

func (e *Editor) initialize() error {
	if e.terminal == nil {
		t, err := NewTerminal(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		e.terminal = t
	}
	if e.initialized {
		return nil
	}

	e.controlChars = e.terminal.ControlCharacters()
	e.setDefaultKeybinds()
	e.initialized = true
	return nil
}

func (e *Editor) reset() {
	e.buffer.Clear()
	e.buffer.ClearDirty()
	e.spans.Strip()
	e.decoder.Reset()
	e.display.invalidate()
	e.completion.reset()
	e.keys.reset()
	e.history.ResetCursor()

	e.finish = false
	e.wasInterrupted = false
	e.verbatim = false
	e.inputError = nil

	// Requests made between two lines are stale.
	e.interruptRequested.Store(false)
	e.resizeRequested.Store(false)
}

func (e *Editor) restore() error {
	var writeErr error
	if e.config.BracketedPaste {
		if err := vtBracketedPaste(false, e.terminal); err != nil {
			e.fail(err)
			writeErr = e.inputError
		}
	}
	if err := e.terminal.Restore(); err != nil {
		e.logger.Error("failed to restore terminal mode", zap.Error(err))
		return err
	}
	return writeErr
}

func (e *Editor) updateTerminalSize() {
	size, err := e.terminal.Size()
	if err != nil {
		e.logger.Debug("could not query terminal size", zap.Error(err))
		return
	}
	e.size = size
	e.display.setSize(size)
}

// tryUpdateOnce runs one iteration of the loop: look at the flags, wait
// for input, decode and handle it.
func (e *Editor) tryUpdateOnce() {
	if e.resizeRequested.Swap(false) {
		e.handleResizeEvent()
	}
	if e.interruptRequested.Swap(false) {
		e.handleInterruptEvent()
		if e.finish {
			return
		}
		e.refresh()
	}

	timeout := e.config.PollInterval
	switch {
	case e.decoder.Pasting():
		timeout = e.config.PasteTimeout
	case e.decoder.Pending():
		timeout = e.config.EscapeTimeout
	}

	ready, err := e.terminal.WaitForInput(timeout)
	if err != nil {
		e.fail(err)
		return
	}
	if !ready {
		if e.decoder.Pending() {
			e.handleEvents(e.decoder.Flush())
		}
		return
	}

	n, err := e.terminal.Read(e.readBuffer)
	if n > 0 {
		e.handleEvents(e.decoder.Feed(e.readBuffer[:n]))
	}
	switch {
	case e.finish:
	case errors.Is(err, io.EOF):
		e.handleEvents(e.decoder.Flush())
		if !e.finish {
			e.endOfInput()
		}
	case err != nil:
		e.fail(err)
	}
}

func (e *Editor) handleEvents(events []Event) {
	for i, event := range events {
		if e.finish {
			e.unprocessed = append(e.unprocessed, events[i:]...)
			return
		}

		switch event.Kind {
		case EventPaste:
			e.handlePaste(event.Text)
		case EventKeyPress:
			e.handleKey(event.Key)
		}

		if !e.finish {
			e.refresh()
		}
	}
}

func (e *Editor) handlePaste(text string) {
	e.completion.reset()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if e.onPaste != nil {
		e.onPaste(text, e)
		return
	}
	e.InsertString(text)
}

func (e *Editor) handleKey(k Key) {
	if e.verbatim {
		// Verbatim mode bypasses all mechanisms and just inserts the character.
		e.verbatim = false
		if k.Code <= unicode.MaxRune {
			e.InsertChar(k.Code)
		}
		return
	}

	if k == CtrlKey('C') {
		e.handleInterruptEvent()
		return
	}

	if !isCompletionKey(k) {
		e.completion.reset()
	}

	// Normally ^D, `stty eof` may change it. Only on an empty line, at any
	// other time the key goes through the bindings.
	if e.controlChars.EOF != 0 && k == keyForControlByte(e.controlChars.EOF) && e.buffer.Len() == 0 {
		e.endOfInput()
		return
	}

	e.keys.keyPressed(k, e, e.defaultKeyHandler)
}

// defaultKeyHandler handles keys no binding consumed.
func (e *Editor) defaultKeyHandler(k Key) {
	switch {
	case isCompletionKey(k):
		if e.completion.complete(e.buffer, k.Code == KeyBacktab) {
			// There are no suggestions, beep
			e.ringBell()
		}
	case k.IsPrintable():
		e.InsertChar(k.Code)
	default:
		e.logger.Debug("ignoring unbound key", zap.Stringer("key", k))
	}
}

func isCompletionKey(k Key) bool {
	return (k.Code == KeyTab && k.Modifiers == 0) || k.Code == KeyBacktab
}

func (e *Editor) handleInterruptEvent() {
	if !e.keys.interrupted(e) {
		return
	}

	e.wasInterrupted = true
	if e.onInterrupt != nil {
		e.onInterrupt(e)
	}
	e.finish = true
}

func (e *Editor) handleResizeEvent() {
	previous := e.size
	e.updateTerminalSize()
	e.logger.Debug("terminal resized",
		zap.Uint16("oldColumns", previous.Col),
		zap.Uint16("columns", e.size.Col),
		zap.Uint16("rows", e.size.Row))
	e.display.forceFull = true
	e.refresh()
}

func (e *Editor) endOfInput() {
	e.inputError = io.EOF
	e.finish = true
}

func (e *Editor) fail(err error) {
	if !errors.Is(err, ErrTerminalUnavailable) {
		err = fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}
	e.logger.Error("terminal failure", zap.Error(err))
	e.inputError = err
	e.finish = true
}

func (e *Editor) ringBell() {
	if !e.config.Bell {
		return
	}
	if _, err := io.WriteString(e.terminal, "\a"); err != nil {
		e.fail(err)
	}
}

// refresh brings the terminal up to date with the editor state.
func (e *Editor) refresh() {
	if errors.Is(e.inputError, ErrTerminalUnavailable) {
		return
	}

	f := e.frame()
	if e.onRefresh != nil && e.display.needsRedraw(f) {
		e.onRefresh(e)
		f = e.frame()
	}

	if err := e.display.refresh(e.terminal, f); err != nil {
		e.fail(err)
	}
}

func (e *Editor) frame() frame {
	f := frame{
		prompt:        e.prompt,
		promptMetrics: e.promptMetrics,
		buffer:        e.buffer,
		spans:         e.spans,
	}
	if e.completion.listing {
		content := bufferMetrics(e.buffer.chars)
		promptRows := e.promptMetrics.LinesWithAddition(&content, e.display.columns)
		f.suggestions = e.completion.suggestionLines(e.display.columns, e.display.lines, promptRows)
	}
	return f
}

// reallyQuitEventLoop leaves the cursor below the line and produces the
// result of GetLine.
func (e *Editor) reallyQuitEventLoop() (string, error) {
	line := e.Line()

	if !errors.Is(e.inputError, ErrTerminalUnavailable) {
		e.completion.reset()
		e.buffer.SetCursor(e.buffer.Len())
		e.refresh()

		var tail string
		if e.wasInterrupted {
			tail = "^C"
		}
		if _, err := io.WriteString(e.terminal, tail+"\r\n"); err != nil && e.inputError == nil {
			e.fail(err)
		}
	}
	e.display.invalidate()

	if e.inputError != nil {
		e.unprocessed = nil
		return "", e.inputError
	}
	if e.wasInterrupted {
		return line, nil
	}

	if line != "" {
		e.history.Add(line)
	}
	return line, nil
}

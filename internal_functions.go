package vtline

import (
	"strings"
	"unicode"
)

func isAlphaNumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func editorInternal(fn func(editor *Editor)) KeyHandler {
	return KeyHandlerFunc(func(editor *Editor) bool {
		fn(editor)
		return true
	})
}

func (e *Editor) setDefaultKeybinds() {
	bind := func(fn func(editor *Editor), keys ...Key) {
		e.keys.registerDefault(keys, editorInternal(fn))
	}
	esc := Key{Code: KeyEscape}

	bind(historyNext, CtrlKey('N'))
	bind(historyNext, Key{Code: KeyDown})
	bind(historyPrevious, CtrlKey('P'))
	bind(historyPrevious, Key{Code: KeyUp})
	bind(goHome, CtrlKey('A'))
	bind(goHome, Key{Code: KeyHome})
	bind(goEnd, CtrlKey('E'))
	bind(goEnd, Key{Code: KeyEnd})
	bind(cursorLeftCharacter, CtrlKey('B'))
	bind(cursorLeftCharacter, Key{Code: KeyLeft})
	bind(cursorRightCharacter, CtrlKey('F'))
	bind(cursorRightCharacter, Key{Code: KeyRight})
	bind(cursorLeftWord, Key{Code: KeyLeft, Modifiers: ModifierCtrl})
	bind(cursorLeftWord, Key{Code: KeyLeft, Modifiers: ModifierAlt})
	bind(cursorRightWord, Key{Code: KeyRight, Modifiers: ModifierCtrl})
	bind(cursorRightWord, Key{Code: KeyRight, Modifiers: ModifierAlt})
	bind(eraseCharacterForwards, CtrlKey('D'))
	bind(eraseCharacterForwards, Key{Code: KeyDelete})
	bind(eraseAlnumWordForwards, Key{Code: KeyDelete, Modifiers: ModifierCtrl})
	// ^H and DEL, some terminals send one and some the other.
	bind(eraseCharacterBackwards, Key{Code: KeyBackspace})
	bind(eraseToEnd, CtrlKey('K'))
	bind(clearScreen, CtrlKey('L'))
	bind(transposeCharacters, CtrlKey('T'))
	bind(killLine, CtrlKey('U'))
	bind(verbatimInsert, CtrlKey('V'))
	bind(eraseWordBackwards, CtrlKey('W'))
	bind(finish, Key{Code: KeyEnter})

	// Meta keys arrive as ESC followed by the key.
	bind(cursorLeftWord, esc, Key{Code: 'b'})
	bind(cursorRightWord, esc, Key{Code: 'f'})
	bind(eraseAlnumWordBackwards, esc, Key{Code: KeyBackspace})
	bind(eraseAlnumWordForwards, esc, Key{Code: 'd'})
	bind(capitalizeWord, esc, Key{Code: 'c'})
	bind(lowercaseWord, esc, Key{Code: 'l'})
	bind(uppercaseWord, esc, Key{Code: 'u'})
	// ^[.: alt-.: insert last arg of previous command (similar to `!$` in shells)
	bind(insertLastWords, esc, Key{Code: '.'})

	if cc := e.controlChars.WordErase; cc != 0 {
		bind(eraseWordBackwards, keyForControlByte(cc))
	}
	if cc := e.controlChars.Kill; cc != 0 {
		bind(killLine, keyForControlByte(cc))
	}
	if cc := e.controlChars.Erase; cc != 0 {
		bind(eraseCharacterBackwards, keyForControlByte(cc))
	}
}

func finish(editor *Editor) {
	editor.Finish()
}

func verbatimInsert(editor *Editor) {
	editor.verbatim = true
}

func historyPrevious(editor *Editor) {
	if line, moved := editor.history.Navigate(-1); moved {
		editor.buffer.Set(line)
	}
}

func historyNext(editor *Editor) {
	if line, moved := editor.history.Navigate(1); moved {
		editor.buffer.Set(line)
	}
}

func cursorLeftWord(editor *Editor) {
	b := editor.buffer
	cursor := b.Cursor()
	for cursor > 0 && !isAlphaNumeric(b.RuneAt(cursor-1)) {
		cursor--
	}
	for cursor > 0 && isAlphaNumeric(b.RuneAt(cursor-1)) {
		cursor--
	}
	b.SetCursor(cursor)
}

func cursorLeftCharacter(editor *Editor) {
	editor.buffer.MoveCursor(-1)
}

func cursorRightWord(editor *Editor) {
	b := editor.buffer
	cursor := b.Cursor()
	for cursor < b.Len() && !isAlphaNumeric(b.RuneAt(cursor)) {
		cursor++
	}
	for cursor < b.Len() && isAlphaNumeric(b.RuneAt(cursor)) {
		cursor++
	}
	b.SetCursor(cursor)
}

func cursorRightCharacter(editor *Editor) {
	editor.buffer.MoveCursor(1)
}

func goHome(editor *Editor) {
	editor.buffer.SetCursor(0)
}

func goEnd(editor *Editor) {
	editor.buffer.SetCursor(editor.buffer.Len())
}

func eraseCharacterBackwards(editor *Editor) {
	cursor := editor.buffer.Cursor()
	if cursor == 0 {
		editor.ringBell()
		return
	}
	editor.buffer.DeleteRange(cursor-1, cursor)
}

func eraseCharacterForwards(editor *Editor) {
	cursor := editor.buffer.Cursor()
	if cursor == editor.buffer.Len() {
		editor.ringBell()
		return
	}
	editor.buffer.DeleteRange(cursor, cursor+1)
}

// A word here is contiguous alnums, `foo=bar baz` is three words.
func eraseAlnumWordBackwards(editor *Editor) {
	b := editor.buffer
	start := b.Cursor()
	hasSeenAlnum := false
	for start > 0 {
		if !isAlphaNumeric(b.RuneAt(start - 1)) {
			if hasSeenAlnum {
				break
			}
		} else {
			hasSeenAlnum = true
		}
		start--
	}
	b.DeleteRange(start, b.Cursor())
}

func eraseAlnumWordForwards(editor *Editor) {
	b := editor.buffer
	end := b.Cursor()
	hasSeenAlnum := false
	for end < b.Len() {
		if !isAlphaNumeric(b.RuneAt(end)) {
			if hasSeenAlnum {
				break
			}
		} else {
			hasSeenAlnum = true
		}
		end++
	}
	b.DeleteRange(b.Cursor(), end)
}

func eraseWordBackwards(editor *Editor) {
	b := editor.buffer
	start := b.Cursor()
	hasSeenNonSpace := false
	for start > 0 {
		if isSpace(b.RuneAt(start - 1)) {
			if hasSeenNonSpace {
				break
			}
		} else {
			hasSeenNonSpace = true
		}
		start--
	}
	b.DeleteRange(start, b.Cursor())
}

func eraseToEnd(editor *Editor) {
	editor.buffer.DeleteRange(editor.buffer.Cursor(), editor.buffer.Len())
}

func killLine(editor *Editor) {
	editor.buffer.DeleteRange(0, editor.buffer.Cursor())
}

func clearScreen(editor *Editor) {
	if err := vtClearScreen(editor.terminal); err != nil {
		editor.fail(err)
		return
	}
	editor.display.invalidate()
}

func transposeCharacters(editor *Editor) {
	b := editor.buffer
	if b.Cursor() == 0 || b.Len() < 2 {
		return
	}
	if b.Cursor() < b.Len() {
		b.MoveCursor(1)
	}
	cursor := b.Cursor()
	b.replace(cursor-2, []rune{b.RuneAt(cursor - 1), b.RuneAt(cursor - 2)})
}

type caseChangeOp int

const (
	caseChangeOpCapital caseChangeOp = iota
	caseChangeOpLower
	caseChangeOpUpper
)

func caseChangeWord(editor *Editor, op caseChangeOp) {
	b := editor.buffer
	// A word here is contiguous alnums.
	cursor := b.Cursor()
	for cursor < b.Len() && !isAlphaNumeric(b.RuneAt(cursor)) {
		cursor++
	}
	start := cursor
	for cursor < b.Len() && isAlphaNumeric(b.RuneAt(cursor)) {
		c := b.RuneAt(cursor)
		if op == caseChangeOpUpper || (op == caseChangeOpCapital && cursor == start) {
			c = unicode.ToUpper(c)
		} else {
			c = unicode.ToLower(c)
		}
		b.replace(cursor, []rune{c})
		cursor++
	}
	b.SetCursor(cursor)
}

func capitalizeWord(editor *Editor) {
	caseChangeWord(editor, caseChangeOpCapital)
}

func lowercaseWord(editor *Editor) {
	caseChangeWord(editor, caseChangeOpLower)
}

func uppercaseWord(editor *Editor) {
	caseChangeWord(editor, caseChangeOpUpper)
}

func insertLastWords(editor *Editor) {
	last, ok := editor.history.Last()
	if !ok {
		return
	}

	// FIXME: A quoted last argument like `"foo bar"` should be inserted whole.
	lastWords := strings.Fields(last)
	if len(lastWords) != 0 {
		editor.InsertString(lastWords[len(lastWords)-1])
	}
}

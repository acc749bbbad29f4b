package vtline

import "unicode"

const (
	ModifierShift = 1
	ModifierAlt   = 2
	ModifierCtrl  = 4
)

// Key is a logical key press. Code is either a code point (printable
// characters and C0 control characters) or one of the named keys below.
type Key struct {
	Code      rune
	Modifiers int
}

const (
	KeyTab       rune = '\t'
	KeyEnter     rune = '\n'
	KeyEscape    rune = 0x1b
	KeyBackspace rune = 0x7f
)

// Named keys live past the end of the Unicode range so they never collide
// with a literal character.
const (
	KeyUp rune = unicode.MaxRune + 1 + iota
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPageUp
	KeyPageDown
	KeyBacktab
)

func ctrl(k rune) rune {
	return k & 0x1f
}

// CtrlKey returns the key produced by holding Ctrl and pressing k.
func CtrlKey(k rune) Key {
	return keyForControlByte(byte(ctrl(k)))
}

// keyForControlByte maps a C0 control byte to the key the decoder reports
// for it.
func keyForControlByte(b byte) Key {
	switch b {
	case '\r', '\n':
		return Key{Code: KeyEnter}
	case '\t':
		return Key{Code: KeyTab}
	case 0x7f, '\b':
		return Key{Code: KeyBackspace}
	}
	return Key{Code: rune(b)}
}

// IsPrintable reports whether k inserts itself into the line.
func (k Key) IsPrintable() bool {
	return k.Modifiers == 0 && k.Code >= 0x20 && k.Code != 0x7f && k.Code <= unicode.MaxRune
}

var keyNames = map[rune]string{
	KeyTab:       "Tab",
	KeyEnter:     "Enter",
	KeyEscape:    "Escape",
	KeyBackspace: "Backspace",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyRight:     "Right",
	KeyLeft:      "Left",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyInsert:    "Insert",
	KeyDelete:    "Delete",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
	KeyBacktab:   "Backtab",
}

func (k Key) String() string {
	prefix := ""
	if k.Modifiers&ModifierCtrl != 0 {
		prefix += "Ctrl-"
	}
	if k.Modifiers&ModifierAlt != 0 {
		prefix += "Alt-"
	}
	if k.Modifiers&ModifierShift != 0 {
		prefix += "Shift-"
	}
	if name, ok := keyNames[k.Code]; ok {
		return prefix + name
	}
	if k.Code < 0x20 {
		return prefix + "^" + string(k.Code+'@')
	}
	return prefix + string(k.Code)
}

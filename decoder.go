package vtline

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

type DecoderState int

const (
	DecoderStateGround DecoderState = iota
	DecoderStateExpectBracket
	DecoderStateExpectFinal
	DecoderStateExpectTerminator
)

func (s DecoderState) String() string {
	switch s {
	case DecoderStateGround:
		return "ground"
	case DecoderStateExpectBracket:
		return "expect-bracket"
	case DecoderStateExpectFinal:
		return "expect-final"
	case DecoderStateExpectTerminator:
		return "expect-terminator"
	}
	return "unknown"
}

type EventKind int

const (
	EventKeyPress EventKind = iota
	EventPaste
)

// Event is a logical input event. Key is set for EventKeyPress, Text for
// EventPaste.
type Event struct {
	Kind EventKind
	Key  Key
	Text string
}

const pasteTerminator = "\x1b[201~"

// Decoder turns raw terminal bytes into key events. It never looks ahead:
// every byte is consumed as it arrives, and a sequence cut short by the
// end of a chunk stays pending until more bytes or Flush resolve it.
type Decoder struct {
	state      DecoderState
	parameters []byte
	partial    []byte

	// private is set once a sequence carries a private marker or an
	// intermediate byte; such sequences are never keys.
	private bool

	pasting           bool
	pasteText         []byte
	terminatorMatched int

	events []Event
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

func (d *Decoder) State() DecoderState {
	return d.state
}

// Pending reports whether bytes are buffered waiting for the rest of a
// sequence, a code point or a bracketed paste.
func (d *Decoder) Pending() bool {
	return d.state != DecoderStateGround || len(d.partial) != 0 || d.pasting
}

// Pasting reports whether a bracketed paste has started and not ended.
func (d *Decoder) Pasting() bool {
	return d.pasting
}

func (d *Decoder) Reset() {
	d.state = DecoderStateGround
	d.parameters = d.parameters[:0]
	d.private = false
	d.partial = d.partial[:0]
	d.pasting = false
	d.pasteText = d.pasteText[:0]
	d.terminatorMatched = 0
}

// Feed consumes p and returns the events it completed.
func (d *Decoder) Feed(p []byte) []Event {
	d.events = nil
	for _, b := range p {
		d.step(b)
	}
	return d.events
}

// Flush resolves whatever is pending after input went quiet: a lone ESC
// becomes an Escape key, a paste whose terminator never came ends with
// the text received so far, anything else incomplete is dropped.
func (d *Decoder) Flush() []Event {
	d.events = nil
	switch d.state {
	case DecoderStateExpectBracket:
		d.emitKey(Key{Code: KeyEscape})
	case DecoderStateExpectFinal:
		d.logger.Debug("discarding incomplete escape sequence",
			zap.ByteString("parameters", d.parameters))
	case DecoderStateExpectTerminator:
		d.pasteText = append(d.pasteText, pasteTerminator[:d.terminatorMatched]...)
		d.terminatorMatched = 0
	}
	d.state = DecoderStateGround
	d.parameters = d.parameters[:0]
	d.private = false
	if d.pasting {
		d.logger.Debug("bracketed paste ended without terminator", zap.Int("bytes", len(d.pasteText)))
		d.endPaste()
	}
	if len(d.partial) != 0 {
		d.logger.Debug("discarding incomplete code point", zap.Binary("bytes", d.partial))
		d.partial = d.partial[:0]
	}
	return d.events
}

func (d *Decoder) step(b byte) {
	switch d.state {
	case DecoderStateGround:
		if d.pasting {
			d.pasteByte(b)
			return
		}
		d.ground(b)

	case DecoderStateExpectBracket:
		if b == '[' {
			d.state = DecoderStateExpectFinal
			d.parameters = d.parameters[:0]
			d.private = false
			return
		}
		// Not a CSI sequence: the ESC stands on its own.
		d.state = DecoderStateGround
		d.emitKey(Key{Code: KeyEscape})
		d.step(b)

	case DecoderStateExpectFinal:
		switch {
		case (b >= '0' && b <= '9') || b == ';':
			d.parameters = append(d.parameters, b)
		case b >= 0x20 && b <= 0x3f:
			// Private markers (":<=>?") and intermediates (" " to "/").
			d.private = true
		case b >= 0x40 && b <= 0x7e:
			d.state = DecoderStateGround
			if d.private {
				d.logger.Debug("discarding private escape sequence",
					zap.ByteString("parameters", d.parameters), zap.String("final", string(rune(b))))
			} else {
				d.resolve(b)
			}
			d.parameters = d.parameters[:0]
			d.private = false
		case b == 0x1b:
			d.logger.Debug("escape sequence interrupted by another",
				zap.ByteString("parameters", d.parameters))
			d.parameters = d.parameters[:0]
			d.private = false
			d.state = DecoderStateExpectBracket
		default:
			d.logger.Debug("discarding invalid escape sequence",
				zap.ByteString("parameters", d.parameters), zap.Uint8("byte", b))
			d.parameters = d.parameters[:0]
			d.private = false
			d.state = DecoderStateGround
		}

	case DecoderStateExpectTerminator:
		if b == pasteTerminator[d.terminatorMatched] {
			d.terminatorMatched++
			if d.terminatorMatched == len(pasteTerminator) {
				d.endPaste()
				d.state = DecoderStateGround
			}
			return
		}
		// False alarm, what we matched so far is pasted text.
		d.pasteText = append(d.pasteText, pasteTerminator[:d.terminatorMatched]...)
		d.terminatorMatched = 0
		d.state = DecoderStateGround
		d.step(b)
	}
}

func (d *Decoder) ground(b byte) {
	if len(d.partial) != 0 && b < utf8.RuneSelf {
		d.logger.Debug("discarding truncated code point", zap.Binary("bytes", d.partial))
		d.partial = d.partial[:0]
	}

	if len(d.partial) != 0 || b >= utf8.RuneSelf {
		d.partial = append(d.partial, b)
		if !utf8.FullRune(d.partial) {
			return
		}
		r, size := utf8.DecodeRune(d.partial)
		if r == utf8.RuneError && size == 1 {
			d.logger.Debug("discarding invalid code point", zap.Binary("bytes", d.partial))
		} else {
			d.emitKey(Key{Code: r})
		}
		d.partial = d.partial[:0]
		return
	}

	switch {
	case b == 0x1b:
		d.state = DecoderStateExpectBracket
	case b == 0:
		// NUL carries nothing worth reporting.
	case b < 0x20 || b == 0x7f:
		d.emitKey(keyForControlByte(b))
	default:
		d.emitKey(Key{Code: rune(b)})
	}
}

func (d *Decoder) pasteByte(b byte) {
	if b == 0x1b {
		d.state = DecoderStateExpectTerminator
		d.terminatorMatched = 1
		return
	}
	d.pasteText = append(d.pasteText, b)
}

func (d *Decoder) endPaste() {
	d.emit(Event{Kind: EventPaste, Text: string(d.pasteText)})
	d.pasting = false
	d.pasteText = d.pasteText[:0]
	d.terminatorMatched = 0
}

func (d *Decoder) resolve(final byte) {
	var parameters []int
	for _, p := range strings.Split(string(d.parameters), ";") {
		value, err := strconv.Atoi(p)
		if err != nil {
			value = 0
		}
		parameters = append(parameters, value)
	}
	var param1, param2 int
	if len(parameters) > 0 {
		param1 = parameters[0]
	}
	if len(parameters) > 1 {
		param2 = parameters[1]
	}
	modifiers := 0
	if param2 > 0 {
		modifiers = param2 - 1
	}

	key := func(code rune) {
		d.emitKey(Key{Code: code, Modifiers: modifiers})
	}

	switch final {
	case 'A': // ^[[A: Arrow up
		key(KeyUp)
	case 'B': // ^[[B: Arrow down
		key(KeyDown)
	case 'C': // ^[[C: Arrow right
		key(KeyRight)
	case 'D': // ^[[D: Arrow left
		key(KeyLeft)
	case 'H': // ^[[H: Home
		key(KeyHome)
	case 'F': // ^[[F: End
		key(KeyEnd)
	case 'Z': // ^[[Z: reverse tab
		key(KeyBacktab)
	case '~':
		switch param1 {
		case 1, 7:
			key(KeyHome)
		case 2:
			key(KeyInsert)
		case 3: // ^[[3~: Delete
			key(KeyDelete)
		case 4, 8:
			key(KeyEnd)
		case 5:
			key(KeyPageUp)
		case 6:
			key(KeyPageDown)
		case 200: // ^[[200~: start of a bracketed paste
			d.pasting = true
			d.pasteText = d.pasteText[:0]
		default:
			d.logger.Debug("unrecognized escape sequence", zap.Int("parameter", param1), zap.String("final", "~"))
		}
	default:
		d.logger.Debug("unrecognized escape sequence",
			zap.ByteString("parameters", d.parameters), zap.String("final", string(final)))
	}
}

func (d *Decoder) emitKey(k Key) {
	d.emit(Event{Kind: EventKeyPress, Key: k})
}

func (d *Decoder) emit(e Event) {
	d.events = append(d.events, e)
}

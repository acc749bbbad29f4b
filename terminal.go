package vtline

import (
	"errors"
	"io"
	"time"
)

// ErrTerminalUnavailable reports that the terminal attributes could not be
// read or changed, or that the input is not a terminal at all.
var ErrTerminalUnavailable = errors.New("terminal unavailable")

type Winsize struct {
	Row uint16
	Col uint16
}

// ControlCharacters are the editing characters configured on the terminal
// (see stty(1)). A zero value means the function is disabled.
type ControlCharacters struct {
	EOF       byte
	Erase     byte
	WordErase byte
	Kill      byte
}

// DefaultControlCharacters are the usual ^D, DEL, ^W and ^U.
var DefaultControlCharacters = ControlCharacters{
	EOF:       0x04,
	Erase:     0x7f,
	WordErase: 0x17,
	Kill:      0x15,
}

// Terminal is the controlling terminal an Editor reads keys from and draws
// on.
type Terminal interface {
	io.Reader
	io.Writer

	// EnterRawMode turns off echo and line buffering. Calling it while
	// already raw does nothing.
	EnterRawMode() error
	// Restore puts back the attributes saved by EnterRawMode. It does
	// nothing when the terminal is not raw.
	Restore() error

	Size() (Winsize, error)
	// WaitForInput blocks until input is available or timeout elapses.
	WaitForInput(timeout time.Duration) (bool, error)
	ControlCharacters() ControlCharacters
}

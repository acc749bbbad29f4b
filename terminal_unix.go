//go:build linux || darwin
// +build linux darwin

package vtline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

type tty struct {
	in  *os.File
	out *os.File

	original *unix.Termios
	raw      bool
	controls ControlCharacters
}

// NewTerminal wraps a terminal device: in is read for keys, out receives
// the display. Usually these are os.Stdin and os.Stdout.
func NewTerminal(in, out *os.File) (Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: %s is not a terminal", ErrTerminalUnavailable, in.Name())
	}

	t, err := getTermios(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}

	return &tty{
		in:       in,
		out:      out,
		controls: controlCharacters(t),
	}, nil
}

func controlCharacters(t *unix.Termios) ControlCharacters {
	return ControlCharacters{
		EOF:       t.Cc[unix.VEOF],
		Erase:     t.Cc[unix.VERASE],
		WordErase: t.Cc[unix.VWERASE],
		Kill:      t.Cc[unix.VKILL],
	}
}

func (t *tty) Read(p []byte) (int, error) {
	return t.in.Read(p)
}

func (t *tty) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *tty) EnterRawMode() error {
	if t.raw {
		return nil
	}

	fd := int(t.in.Fd())
	original, err := getTermios(fd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}

	raw := *original
	raw.Lflag &^= unix.ECHO | unix.ICANON
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := setTermios(fd, &raw); err != nil {
		// The set may have been partially applied.
		_ = setTermios(fd, original)
		return fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}

	t.original = original
	t.controls = controlCharacters(original)
	t.raw = true
	return nil
}

func (t *tty) Restore() error {
	if !t.raw {
		return nil
	}
	if err := setTermios(int(t.in.Fd()), t.original); err != nil {
		return fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}
	t.raw = false
	return nil
}

func (t *tty) Size() (Winsize, error) {
	columns, rows, err := term.GetSize(int(t.out.Fd()))
	if err == nil && columns > 0 && rows > 0 {
		return Winsize{Row: uint16(rows), Col: uint16(columns)}, nil
	}

	// The output may be redirected while the terminal is still around.
	fd, err := unix.Open("/dev/tty", unix.O_RDONLY, 0)
	if err == nil {
		winsize, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
		_ = unix.Close(fd)
		if err == nil && winsize.Col > 0 && winsize.Row > 0 {
			return Winsize{Row: winsize.Row, Col: winsize.Col}, nil
		}
	}

	return Winsize{Row: 24, Col: 80}, nil
}

func (t *tty) WaitForInput(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(t.in.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTerminalUnavailable, err)
	}
	return n > 0, nil
}

func (t *tty) ControlCharacters() ControlCharacters {
	return t.controls
}

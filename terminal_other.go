//go:build !linux && !darwin
// +build !linux,!darwin

package vtline

import (
	"fmt"
	"os"
	"runtime"
)

func NewTerminal(in, out *os.File) (Terminal, error) {
	return nil, fmt.Errorf("%w: raw mode is not supported on %s", ErrTerminalUnavailable, runtime.GOOS)
}

// Package utils provides small host-side helpers for the kernel simulation CLI.
package utils

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Console manages the host terminal's raw-mode state for the duration of a
// simulated boot session, so the simulated UART can echo one keystroke at a
// time instead of waiting for a newline.
type Console struct {
	fd       int
	oldState *term.State
}

// NewConsole puts stdin into raw mode if it is attached to a terminal.
// If stdin is not a terminal (e.g. piped input in tests), it is a no-op.
func NewConsole() (*Console, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &Console{fd: fd}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("make raw: %w", err)
	}
	return &Console{fd: fd, oldState: oldState}, nil
}

// Restore returns the terminal to its previous mode. Safe to call on a
// non-terminal console.
func (c *Console) Restore() error {
	if c.oldState == nil {
		return nil
	}
	return term.Restore(c.fd, c.oldState)
}

// Size returns the current terminal width and height, or 80x24 when the
// console is not a terminal.
func (c *Console) Size() (width, height int, err error) {
	if !term.IsTerminal(c.fd) {
		return 80, 24, nil
	}
	return term.GetSize(c.fd)
}

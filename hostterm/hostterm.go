// This file is part of armemu.
//
// armemu is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armemu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armemu.  If not, see <https://www.gnu.org/licenses/>.

// Package hostterm puts the controlling terminal into raw mode and exposes
// it as an arm.CharSource/arm.CharSink pair, so that firmware polling the
// emulated UART sees real keystrokes and writes land directly on the
// terminal with no line buffering or echo in the way.
package hostterm

import (
	"os"
	"sync"
	"syscall"

	"github.com/pkg/term/termios"
)

// Console is the host side of the emulated UART, backed by the process's
// stdin/stdout once put into raw mode.
type Console struct {
	in  *os.File
	out *os.File

	canonAttr syscall.Termios
	rawAttr   syscall.Termios

	mu       sync.Mutex
	restored bool
}

// Open puts the terminal attached to stdin into raw mode (no echo, no line
// buffering, no signal-generating control characters) and returns a Console
// reading from stdin and writing to stdout. Call Close to restore the
// terminal's prior settings.
func Open() (*Console, error) {
	c := &Console{in: os.Stdin, out: os.Stdout}

	if err := termios.Tcgetattr(c.in.Fd(), &c.canonAttr); err != nil {
		return nil, err
	}
	c.rawAttr = c.canonAttr
	termios.Cfmakeraw(&c.rawAttr)

	if err := termios.Tcsetattr(c.in.Fd(), termios.TCIFLUSH, &c.rawAttr); err != nil {
		return nil, err
	}

	return c, nil
}

// Close restores the terminal's original settings. Safe to call more than
// once.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.restored {
		return nil
	}
	c.restored = true
	return termios.Tcsetattr(c.in.Fd(), termios.TCIFLUSH, &c.canonAttr)
}

// GetChar implements arm.CharSource. It blocks until a byte is available on
// stdin and returns -1 once stdin reaches end-of-file.
func (c *Console) GetChar() int32 {
	var b [1]byte
	n, err := c.in.Read(b[:])
	if n == 0 || err != nil {
		return -1
	}
	return int32(b[0])
}

// PutChar implements arm.CharSink. It writes the low byte of v directly to
// stdout, unbuffered.
func (c *Console) PutChar(v int32) {
	b := [1]byte{byte(v)}
	_, _ = c.out.Write(b[:])
}

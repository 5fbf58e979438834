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

package arm

// CharSource is the host side of the emulated UART's receive line. GetChar
// may block (a real terminal waits for a keypress); it returns a negative
// value once the source reaches end-of-input, mirroring the behaviour of
// getchar(3) on EOF.
type CharSource interface {
	GetChar() int32
}

// CharSink is the host side of the emulated UART's transmit line. PutChar
// must not block - the emulator calls it from inside the execute loop once
// per TXD store.
type CharSink interface {
	PutChar(v int32)
}

// NullCharSource never supplies input; every read yields end-of-input. Used
// when a Machine is created without a host console attached.
type NullCharSource struct{}

// GetChar implements CharSource.
func (NullCharSource) GetChar() int32 { return -1 }

// NullCharSink discards everything written to it.
type NullCharSink struct{}

// PutChar implements CharSink.
func (NullCharSink) PutChar(v int32) {}

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

// Result is the outcome of a single Step, and of a Run loop that stepped
// until something other than Continue happened.
type Result int

// Valid Result values.
const (
	// Continue means the instruction completed normally and execution
	// should carry on to the next one. Run never returns this value.
	Continue Result = iota

	// Exit means the program counter reached the sentinel return address
	// (0xdeadbeef) placed in LR at reset - the emulated "main" returned.
	Exit

	// Halt means the debugger's halt flag was observed at the top of the
	// run loop. Execution can be resumed with Step or Run.
	Halt

	// BreakHit means a hardware breakpoint address was reached, or a BKPT
	// instruction with a non-magic immediate was executed.
	BreakHit

	// Undefined means the fetched halfword (or halfword pair) did not
	// decode to any instruction this emulator implements.
	Undefined

	// FaultPC means the program counter was out of range or had its Thumb
	// bit (bit 0) clear.
	FaultPC

	// FaultMemory means the address-space router rejected a load or store:
	// unmapped address, misaligned access, or a disallowed flash write.
	FaultMemory

	// DivideByZero means SDIV or UDIV was executed with a zero divisor.
	DivideByZero
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Exit:
		return "exit"
	case Halt:
		return "halt"
	case BreakHit:
		return "break"
	case Undefined:
		return "undefined instruction"
	case FaultPC:
		return "fault: invalid PC"
	case FaultMemory:
		return "fault: memory access"
	case DivideByZero:
		return "divide by zero"
	}
	return "unknown result"
}

// Fatal reports whether r should stop a Run loop with an error condition
// (as opposed to Continue looping, or a clean/paused exit via Exit/Halt).
func (r Result) Fatal() bool {
	switch r {
	case BreakHit, Undefined, FaultPC, FaultMemory, DivideByZero:
		return true
	}
	return false
}

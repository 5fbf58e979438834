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

// register indices. the general purpose registers r0-r12 have no alias;
// r13-r15 also have the named accessors SP/LR/PC. The decoder compares
// register indices against rSP/rPC, never pointers, to decide whether it is
// looking at the stack pointer or the program counter.
const (
	rSP = 13
	rLR = 14
	rPC = 15

	numRegisters = 16
)

// registers holds the 16 general purpose registers of the machine. Rd/Rn/Rm
// register numbers decoded from an opcode are plain indices into regs; SP,
// LR and PC are just regs[13], regs[14] and regs[15] under a name.
type registers struct {
	regs [numRegisters]uint32
}

func (r *registers) get(i uint32) uint32 {
	return r.regs[i]
}

func (r *registers) set(i uint32, v uint32) {
	r.regs[i] = v
}

func (r *registers) sp() uint32 {
	return r.regs[rSP]
}

func (r *registers) setSP(v uint32) {
	r.regs[rSP] = v
}

func (r *registers) lr() uint32 {
	return r.regs[rLR]
}

func (r *registers) setLR(v uint32) {
	r.regs[rLR] = v
}

func (r *registers) pc() uint32 {
	return r.regs[rPC]
}

// setPC sets the program counter. The Thumb bit (bit 0) is always forced to
// 1: every code path that transfers control in this emulator is Thumb-only,
// so an instruction that "forgets" to set it (eg. a plain ADD to PC) still
// produces a valid fetch address.
func (r *registers) setPC(v uint32) {
	r.regs[rPC] = v | 1
}

// snapshot returns a copy of all 16 registers, used by the inspection
// entry points exposed to a debugger.
func (r *registers) snapshot() [numRegisters]uint32 {
	return r.regs
}

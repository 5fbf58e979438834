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

import "testing"

// TestThumb2BranchLink covers BL: opcodeHi=0xf000, opcodeLo=0xf800 encodes
// S=0, J1=1, J2=1, imm10=0, imm11=0, which (per the I1/I2 not-XOR-with-S
// rule in execBranchLink) assembles to a zero branch offset - a call to the
// instruction immediately following the BL itself. LR must come back with
// the Thumb bit set and the backtrace must hold exactly one frame: the
// frame Reset recorded has the same SP, so it is pruned before the BL's
// return address is recorded.
func TestThumb2BranchLink(t *testing.T) {
	code := []uint16{0xf000, 0xf800}
	m := newTestMachine(t, code, 256)

	instructionPC := m.regs.pc() - 1
	wantLR := (instructionPC + 4) | 1

	res := m.Step()
	if res != Continue {
		t.Fatalf("Step() = %s, want continue", res)
	}
	if m.regs.lr() != wantLR {
		t.Fatalf("lr = %#x, want %#x", m.regs.lr(), wantLR)
	}
	if m.regs.pc() != wantLR {
		t.Fatalf("pc after BL with zero offset = %#x, want %#x", m.regs.pc(), wantLR)
	}
	if m.callDepth != 1 {
		t.Fatalf("callDepth = %d, want 1", m.callDepth)
	}
	if m.backtrace[0].pc != instructionPC+4 {
		t.Fatalf("backtrace[0].pc = %#x, want %#x", m.backtrace[0].pc, instructionPC+4)
	}
}

// TestThumb2DataProcModifiedImmediateMOV covers the data-processing
// (modified immediate) family via ORR with Rn=1111, which execDataProcImm
// treats as MOV Rd, #imm32 per the ARM architecture's "Rn=1111 means plain
// MOV/MVN" carve-out. opcodeHi=0xf04f, opcodeLo=0x002a encodes Rd=r0,
// imm8=42, S=0, i=0, imm3=0.
func TestThumb2DataProcModifiedImmediateMOV(t *testing.T) {
	code := []uint16{0xf04f, 0x002a}
	m := newTestMachine(t, code, 256)

	res := m.Step()
	if res != Continue {
		t.Fatalf("Step() = %s, want continue", res)
	}
	if got := m.regs.get(0); got != 42 {
		t.Fatalf("r0 = %d, want 42", got)
	}
}

// TestThumb2DataProcModifiedImmediateANDSSetsFlags covers the S=1 path of
// the same family via AND, which must route through setNZC rather than
// leaving the flags untouched.
func TestThumb2DataProcModifiedImmediateANDSSetsFlags(t *testing.T) {
	// opcodeHi=0xf010: 11110 i=0 0 op4=0000 S=1 rn=0000 (r0).
	// opcodeLo=0x0000: imm3=0 rd=0000(r0) imm8=0 -> imm32=0.
	code := []uint16{0xf010, 0x0000}
	m := newTestMachine(t, code, 256)
	m.regs.set(0, 0xff)

	res := m.Step()
	if res != Continue {
		t.Fatalf("Step() = %s, want continue", res)
	}
	if got := m.regs.get(0); got != 0 {
		t.Fatalf("r0 = %#x, want 0", got)
	}
	if !m.status.zero {
		t.Fatal("ANDS r0, r0, #0 did not set the zero flag")
	}
}

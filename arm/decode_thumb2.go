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

// This file decodes and executes the 32bit Thumb-2 instruction families,
// available only on the extended (Cortex-M4) profile. An opcode pair that
// does not match any recognised encoding returns Undefined (executeOpcode
// then sets PC back to the first halfword), rather than panicking - a debugger
// attached to the machine needs to see this as an ordinary fault, not a
// crash of the emulator itself.
package arm

// is32BitThumb2 reports whether opcode is the first halfword of a 32bit
// Thumb-2 encoding: bits [15:11] of 0b11101, 0b11110 or 0b11111.
func is32BitThumb2(opcode uint16) bool {
	top5 := opcode >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// thumbExpandImm implements the ARM "modified immediate constant" expansion
// used by the data-processing (modified immediate) encoding: either a
// simple zero-extend or byte-replication pattern, or an 8bit value rotated
// right by an explicit amount. carryOut only changes for the rotated form.
func thumbExpandImm(imm12 uint32, carryIn bool) (imm32 uint32, carryOut bool) {
	if imm12>>10 == 0b00 {
		imm8 := imm12 & 0xff
		switch (imm12 >> 8) & 0b11 {
		case 0b00:
			return imm8, carryIn
		case 0b01:
			return imm8<<16 | imm8, carryIn
		case 0b10:
			return imm8<<24 | imm8<<8, carryIn
		default:
			return imm8<<24 | imm8<<16 | imm8<<8 | imm8, carryIn
		}
	}

	rotate := imm12 >> 7
	unrotated := uint32(0x80) | (imm12 & 0x7f)
	v, c := Ror(unrotated, rotate)
	return v, c
}

// execute32bit dispatches a fetched 32bit Thumb-2 instruction. instructionPC
// is the address of the first halfword.
func (m *Machine) execute32bit(opcodeHi, opcodeLo uint16, instructionPC uint32) Result {
	switch {
	case opcodeHi&0xfff0 == 0xf3e0 && opcodeLo&0xf000 == 0x8000:
		return m.execMRS(opcodeLo)

	case opcodeHi>>11 == 0b11110 && bit(opcodeLo, 15):
		return m.execBranchLink(opcodeHi, opcodeLo, instructionPC)

	case opcodeHi>>11 == 0b11110 && !bit(opcodeLo, 15) && !bit(opcodeHi, 9):
		return m.execDataProcImm(opcodeHi, opcodeLo)

	case opcodeHi>>11 == 0b11110 && !bit(opcodeLo, 15) && bit(opcodeHi, 9):
		return m.execDataProcPlainImm(opcodeHi, opcodeLo)

	case opcodeHi&0xffd0 == 0xe880 || opcodeHi&0xffd0 == 0xe900 ||
		opcodeHi&0xffd0 == 0xe890 || opcodeHi&0xffd0 == 0xe910:
		return m.execLDMSTMWide(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xe8d0 && opcodeLo&0xffe0 == 0xf000:
		return m.execTableBranch(opcodeHi, opcodeLo, instructionPC)

	case opcodeHi>>9 == 0b1110100 && bit(opcodeHi, 6):
		return m.execLDRDSTRD(opcodeHi, opcodeLo)

	case opcodeHi&0xffe0 == 0xfa00 || opcodeHi&0xffe0 == 0xfa20 ||
		opcodeHi&0xffe0 == 0xfa40 || opcodeHi&0xffe0 == 0xfa60:
		return m.execShiftReg(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xfab0:
		return m.execCLZ(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xfb00:
		return m.execMulFamily(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xfb80:
		return m.execSMULL(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xfba0:
		return m.execUMULL(opcodeHi, opcodeLo)

	case opcodeHi&0xfff0 == 0xfb90:
		return m.execDiv(opcodeHi, opcodeLo, true)

	case opcodeHi&0xfff0 == 0xfbb0:
		return m.execDiv(opcodeHi, opcodeLo, false)

	case opcodeHi>>11 == 0b11111 && opcodeHi&0x0800 != 0:
		return m.execLoadStoreWide(opcodeHi, opcodeLo, instructionPC)
	}

	return Undefined
}

// --- BL / BLX ------------------------------------------------------------------

func (m *Machine) execBranchLink(opcodeHi, opcodeLo uint16, instructionPC uint32) Result {
	if opcodeLo&0xd000 != 0xd000 {
		// B.W, conditional on cond-less form: unconditional wide branch.
		if opcodeLo&0xd000 == 0x9000 {
			s := bit(opcodeHi, 10)
			j1 := bit(opcodeLo, 13)
			j2 := bit(opcodeLo, 11)
			imm10 := field(opcodeHi, 9, 0)
			imm11 := field(opcodeLo, 10, 0)
			i1 := !(j1 != s)
			i2 := !(j2 != s)
			imm := (b2u(s) << 24) | (b2u(i1) << 23) | (b2u(i2) << 22) | (imm10 << 12) | (imm11 << 1)
			offset := signExtendImm(imm, 25)
			m.regs.setPC(uint32(int64(instructionPC+4) + int64(int32(offset))))
			return Continue
		}
		return Undefined
	}

	s := bit(opcodeHi, 10)
	j1 := bit(opcodeLo, 13)
	j2 := bit(opcodeLo, 11)
	imm10 := field(opcodeHi, 9, 0)
	imm11 := field(opcodeLo, 10, 0)
	i1 := !(j1 != s)
	i2 := !(j2 != s)
	imm := (b2u(s) << 24) | (b2u(i1) << 23) | (b2u(i2) << 22) | (imm10 << 12) | (imm11 << 1)
	offset := signExtendImm(imm, 25)

	target := uint32(int64(instructionPC+4) + int64(int32(offset)))
	m.recordCall(instructionPC + 4)
	m.regs.setLR((instructionPC + 4) | 1)
	m.regs.setPC(target)
	return Continue
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// --- data-processing (modified immediate) ---------------------------------------

func (m *Machine) execDataProcImm(opcodeHi, opcodeLo uint16) Result {
	i := bit(opcodeHi, 10)
	op4 := field(opcodeHi, 8, 5)
	s := bit(opcodeHi, 4)
	rn := field(opcodeHi, 3, 0)
	imm3 := field(opcodeLo, 14, 12)
	rd := field(opcodeLo, 11, 8)
	imm8 := field(opcodeLo, 7, 0)

	imm12 := (b2u(i) << 11) | (imm3 << 8) | imm8
	imm32, shiftCarry := thumbExpandImm(imm12, m.status.carry)

	a := m.regs.get(rn)

	setFlags := func(n, z, c, v bool) {
		if !s {
			return
		}
		m.setNZCV(n, z, c, v)
	}
	setLogicalFlags := func(result uint32) {
		if !s {
			return
		}
		m.setNZC(int32(result) < 0, result == 0, shiftCarry)
	}

	switch op4 {
	case 0b0000: // AND (TST when Rd=1111, S=1)
		result := a & imm32
		if rd == 0b1111 {
			setLogicalFlags(result)
			return Continue
		}
		m.regs.set(rd, result)
		setLogicalFlags(result)
	case 0b0001: // BIC
		result := a &^ imm32
		m.regs.set(rd, result)
		setLogicalFlags(result)
	case 0b0010: // ORR / MOV (Rn=1111)
		result := a | imm32
		if rn == 0b1111 {
			result = imm32
		}
		m.regs.set(rd, result)
		setLogicalFlags(result)
	case 0b0011: // ORN / MVN (Rn=1111)
		result := a | ^imm32
		if rn == 0b1111 {
			result = ^imm32
		}
		m.regs.set(rd, result)
		setLogicalFlags(result)
	case 0b0100: // EOR (TEQ when Rd=1111)
		result := a ^ imm32
		if rd == 0b1111 {
			setLogicalFlags(result)
			return Continue
		}
		m.regs.set(rd, result)
		setLogicalFlags(result)
	case 0b1000: // ADD (CMN when Rd=1111)
		result, n, z, c, v := Add(a, imm32)
		if rd == 0b1111 {
			setFlags(n, z, c, v)
			return Continue
		}
		m.regs.set(rd, result)
		setFlags(n, z, c, v)
	case 0b1010: // ADC
		result, n, z, c, v := Adc(a, imm32, m.status.carry)
		m.regs.set(rd, result)
		setFlags(n, z, c, v)
	case 0b1011: // SBC
		result, n, z, c, v := Sbc(a, imm32, m.status.carry)
		m.regs.set(rd, result)
		setFlags(n, z, c, v)
	case 0b1101: // SUB (CMP when Rd=1111)
		result, n, z, c, v := Sub(a, imm32)
		if rd == 0b1111 {
			setFlags(n, z, c, v)
			return Continue
		}
		m.regs.set(rd, result)
		setFlags(n, z, c, v)
	case 0b1110: // RSB
		result, n, z, c, v := Sub(imm32, a)
		m.regs.set(rd, result)
		setFlags(n, z, c, v)
	default:
		return Undefined
	}
	return Continue
}

// --- data-processing (plain binary immediate) ------------------------------------

func (m *Machine) execDataProcPlainImm(opcodeHi, opcodeLo uint16) Result {
	op5 := field(opcodeHi, 8, 4)
	rn := field(opcodeHi, 3, 0)
	imm3 := field(opcodeLo, 14, 12)
	rd := field(opcodeLo, 11, 8)
	imm8 := field(opcodeLo, 7, 0)
	i := bit(opcodeHi, 10)

	imm12 := (b2u(i) << 11) | (imm3 << 8) | imm8

	switch op5 {
	case 0b00000: // ADDW
		m.regs.set(rd, m.regs.get(rn)+imm12)
	case 0b01010: // SUBW
		m.regs.set(rd, m.regs.get(rn)-imm12)
	case 0b00100: // MOVW
		imm4 := rn
		imm16 := (imm4 << 12) | imm12
		m.regs.set(rd, imm16)
	case 0b01100: // MOVT: not modelled, firmware that relies on a 32bit
		// address built from MOVW/MOVT will not run correctly here.
		return Undefined
	case 0b10100: // SBFX
		lsb := (imm3 << 2) | field(opcodeLo, 7, 6)
		width := field(opcodeLo, 4, 0) + 1
		m.regs.set(rd, sbfx(m.regs.get(rn), lsb, width))
	case 0b11100: // UBFX
		lsb := (imm3 << 2) | field(opcodeLo, 7, 6)
		width := field(opcodeLo, 4, 0) + 1
		m.regs.set(rd, ubfx(m.regs.get(rn), lsb, width))
	case 0b10110: // BFI / BFC
		lsb := (imm3 << 2) | field(opcodeLo, 7, 6)
		msb := field(opcodeLo, 4, 0)
		if msb < lsb {
			return Undefined
		}
		width := msb - lsb + 1
		mask := ((uint32(1) << width) - 1) << lsb
		result := m.regs.get(rd) &^ mask
		if rn != 0b1111 {
			result |= (m.regs.get(rn) << lsb) & mask
		}
		m.regs.set(rd, result)
	default:
		return Undefined
	}
	return Continue
}

func sbfx(v, lsb, width uint32) uint32 {
	shiftL := 32 - lsb - width
	shiftR := 32 - width
	return uint32(int32(v<<shiftL) >> shiftR)
}

func ubfx(v, lsb, width uint32) uint32 {
	mask := uint32(1)<<width - 1
	return (v >> lsb) & mask
}

// --- LDM.W / STM.W ----------------------------------------------------------------

func (m *Machine) execLDMSTMWide(opcodeHi, opcodeLo uint16) Result {
	l := bit(opcodeHi, 4)
	descending := opcodeHi&0xffd0 == 0xe900 || opcodeHi&0xffd0 == 0xe910
	w := bit(opcodeHi, 5)
	rn := field(opcodeHi, 3, 0)
	list := uint32(opcodeLo)

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}

	base := m.regs.get(rn)
	addr := base
	if descending {
		addr = base - uint32(count)*4
	}

	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		if l {
			v, res := m.load(addr, Width32, false)
			if res != Continue {
				return res
			}
			if uint32(i) == rPC {
				m.regs.setPC(v)
			} else {
				m.regs.set(uint32(i), v)
			}
		} else {
			if res := m.store(addr, Width32, m.regs.get(uint32(i))); res != Continue {
				return res
			}
		}
		addr += 4
	}

	if w {
		if descending {
			m.regs.set(rn, base-uint32(count)*4)
		} else {
			m.regs.set(rn, base+uint32(count)*4)
		}
	}
	return Continue
}

// --- LDRD / STRD --------------------------------------------------------------------

func (m *Machine) execLDRDSTRD(opcodeHi, opcodeLo uint16) Result {
	p := bit(opcodeHi, 8)
	u := bit(opcodeHi, 7)
	w := bit(opcodeHi, 5)
	l := bit(opcodeHi, 4)
	rn := field(opcodeHi, 3, 0)
	rt := field(opcodeLo, 15, 12)
	rt2 := field(opcodeLo, 11, 8)
	imm8 := field(opcodeLo, 7, 0)

	offset := imm8 * 4
	base := m.regs.get(rn)

	var addr uint32
	if u {
		addr = base + offset
	} else {
		addr = base - offset
	}

	transferAddr := base
	if p {
		transferAddr = addr
	}

	if l {
		v1, res := m.load(transferAddr, Width32, false)
		if res != Continue {
			return res
		}
		v2, res := m.load(transferAddr+4, Width32, false)
		if res != Continue {
			return res
		}
		m.regs.set(rt, v1)
		m.regs.set(rt2, v2)
	} else {
		if res := m.store(transferAddr, Width32, m.regs.get(rt)); res != Continue {
			return res
		}
		if res := m.store(transferAddr+4, Width32, m.regs.get(rt2)); res != Continue {
			return res
		}
	}

	if w {
		m.regs.set(rn, addr)
	}
	return Continue
}

// --- TBB / TBH ------------------------------------------------------------------------

func (m *Machine) execTableBranch(opcodeHi, opcodeLo uint16, instructionPC uint32) Result {
	rn := field(opcodeHi, 3, 0)
	h := bit(opcodeLo, 4)
	rm := field(opcodeLo, 3, 0)

	base := m.regs.get(rn)
	if rn == rPC {
		base = instructionPC + 4
	}
	index := m.regs.get(rm)

	if h {
		addr := base + index*2
		v, res := m.load(addr, Width16, false)
		if res != Continue {
			return res
		}
		m.regs.setPC(instructionPC + 4 + v*2)
		return Continue
	}

	addr := base + index
	v, res := m.load(addr, Width8, false)
	if res != Continue {
		return res
	}
	m.regs.setPC(instructionPC + 4 + v*2)
	return Continue
}

// --- register-controlled shift (LSL.W/LSR.W/ASR.W/ROR.W) ------------------------------

func (m *Machine) execShiftReg(opcodeHi, opcodeLo uint16) Result {
	s := bit(opcodeHi, 4)
	rn := field(opcodeHi, 3, 0)
	rd := field(opcodeLo, 11, 8)
	rm := field(opcodeLo, 3, 0)

	a := m.regs.get(rn)
	n := m.regs.get(rm) & 0xff

	var result uint32
	var carry bool

	switch {
	case opcodeHi&0xffe0 == 0xfa00: // LSL
		var valid bool
		result, carry, valid = Lsl(a, n)
		if !valid {
			carry = m.status.carry
		}
	case opcodeHi&0xffe0 == 0xfa20: // LSR
		if n == 0 {
			result, carry = a, m.status.carry
		} else if n <= 32 {
			result, carry = Lsr(a, n)
		}
	case opcodeHi&0xffe0 == 0xfa40: // ASR
		if n == 0 {
			result, carry = a, m.status.carry
		} else {
			result, carry = Asr(a, n)
		}
	case opcodeHi&0xffe0 == 0xfa60: // ROR
		if n == 0 {
			result, carry = a, m.status.carry
		} else {
			result, carry = Ror(a, n)
		}
	default:
		return Undefined
	}

	m.regs.set(rd, result)
	if s {
		m.setNZC(int32(result) < 0, result == 0, carry)
	}
	return Continue
}

// --- CLZ ------------------------------------------------------------------------------

func (m *Machine) execCLZ(opcodeHi, opcodeLo uint16) Result {
	rn := field(opcodeHi, 3, 0)
	rd := field(opcodeLo, 11, 8)

	v := m.regs.get(rn)
	count := uint32(0)
	for i := 31; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		count++
	}
	m.regs.set(rd, count)
	return Continue
}

// --- MUL / MLA / MLS --------------------------------------------------------------------

func (m *Machine) execMulFamily(opcodeHi, opcodeLo uint16) Result {
	rn := field(opcodeHi, 3, 0)
	ra := field(opcodeLo, 15, 12)
	rd := field(opcodeLo, 11, 8)
	rm := field(opcodeLo, 3, 0)
	sub := field(opcodeLo, 7, 4) == 0b0001

	product := m.regs.get(rn) * m.regs.get(rm)

	if ra == 0b1111 {
		m.regs.set(rd, product)
		return Continue
	}

	if sub {
		m.regs.set(rd, m.regs.get(ra)-product)
	} else {
		m.regs.set(rd, m.regs.get(ra)+product)
	}
	return Continue
}

// --- SMULL / UMULL ------------------------------------------------------------------------

func (m *Machine) execSMULL(opcodeHi, opcodeLo uint16) Result {
	rn := field(opcodeHi, 3, 0)
	rdlo := field(opcodeLo, 15, 12)
	rdhi := field(opcodeLo, 11, 8)
	rm := field(opcodeLo, 3, 0)

	product := int64(int32(m.regs.get(rn))) * int64(int32(m.regs.get(rm)))
	m.regs.set(rdlo, uint32(product))
	m.regs.set(rdhi, uint32(product>>32))
	return Continue
}

func (m *Machine) execUMULL(opcodeHi, opcodeLo uint16) Result {
	rn := field(opcodeHi, 3, 0)
	rdlo := field(opcodeLo, 15, 12)
	rdhi := field(opcodeLo, 11, 8)
	rm := field(opcodeLo, 3, 0)

	product := uint64(m.regs.get(rn)) * uint64(m.regs.get(rm))
	m.regs.set(rdlo, uint32(product))
	m.regs.set(rdhi, uint32(product>>32))
	return Continue
}

// --- SDIV / UDIV ------------------------------------------------------------------------

func (m *Machine) execDiv(opcodeHi, opcodeLo uint16, signed bool) Result {
	rn := field(opcodeHi, 3, 0)
	rd := field(opcodeLo, 11, 8)
	rm := field(opcodeLo, 3, 0)

	divisor := m.regs.get(rm)
	if divisor == 0 {
		return DivideByZero
	}

	dividend := m.regs.get(rn)
	if signed {
		m.regs.set(rd, uint32(int32(dividend)/int32(divisor)))
	} else {
		m.regs.set(rd, dividend/divisor)
	}
	return Continue
}

// --- MRS ------------------------------------------------------------------------------

func (m *Machine) execMRS(opcodeLo uint16) Result {
	rd := field(opcodeLo, 11, 8)
	// Only MSP is modelled - this emulator has no process stack.
	m.regs.set(rd, m.regs.sp())
	return Continue
}

// --- LDR.W / STR.W ----------------------------------------------------------------------

func (m *Machine) execLoadStoreWide(opcodeHi, opcodeLo uint16, instructionPC uint32) Result {
	op1 := field(opcodeHi, 6, 5)
	l := bit(opcodeHi, 4)
	rn := field(opcodeHi, 3, 0)
	rt := field(opcodeLo, 15, 12)

	var width Width
	switch op1 {
	case 0b00:
		width = Width8
	case 0b01:
		width = Width16
	default:
		width = Width32
	}

	signExtend := bit(opcodeHi, 8)

	var base uint32
	if rn == rPC {
		base = instructionPC + 4
		base &^= 0x3
	} else {
		base = m.regs.get(rn)
	}

	var addr uint32
	if rn == rPC {
		imm12 := field(opcodeLo, 11, 0)
		addr = base + imm12
	} else if !bit(opcodeHi, 7) && field(opcodeLo, 11, 6) == 0 {
		// (register offset): Rm + LSL #imm2.
		rm := field(opcodeLo, 3, 0)
		imm2 := field(opcodeLo, 5, 4)
		shifted, _, _ := Lsl(m.regs.get(rm), imm2)
		addr = base + shifted
	} else if !bit(opcodeHi, 7) && bit(opcodeLo, 11) {
		// T4: immediate 8bit, optional pre/post index and writeback.
		p := bit(opcodeLo, 10)
		u := bit(opcodeLo, 9)
		w := bit(opcodeLo, 8)
		imm8 := field(opcodeLo, 7, 0)

		var target uint32
		if u {
			target = base + imm8
		} else {
			target = base - imm8
		}

		transferAddr := base
		if p {
			transferAddr = target
		}

		res := m.loadStoreOne(transferAddr, width, signExtend, l, rt)
		if res != Continue {
			return res
		}
		if w {
			m.regs.set(rn, target)
		}
		return Continue
	} else {
		imm12 := field(opcodeLo, 11, 0)
		addr = base + imm12
	}

	return m.loadStoreOne(addr, width, signExtend, l, rt)
}

func (m *Machine) loadStoreOne(addr uint32, width Width, signExtend, isLoad bool, rt uint32) Result {
	if isLoad {
		v, res := m.load(addr, width, signExtend)
		if res != Continue {
			return res
		}
		if rt == rPC {
			m.regs.setPC(v)
		} else {
			m.regs.set(rt, v)
		}
		return Continue
	}
	return m.store(addr, width, m.regs.get(rt))
}

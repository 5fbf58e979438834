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

// This file decodes and executes the 16bit Thumb instruction formats (the
// classic formats 1-18, plus CBZ/CBNZ, SXT*/UXT*, REV* and BKPT). CBZ/CBNZ
// and IT are Cortex-M4 only, as are the 32bit Thumb-2 encodings in
// decode_thumb2.go; the rest is shared by both Cortex-M profiles. Formats
// that share a leading bit pattern are tested in the order the design notes
// require: the narrower, more specific pattern first.
package arm

import "github.com/cortexm/armemu/logger"

// setNZ updates N and Z, honouring IT-block flag suppression.
func (m *Machine) setNZ(n, z bool) {
	if m.status.inITBlock() {
		return
	}
	m.status.negative, m.status.zero = n, z
}

// setNZC updates N, Z and C (used by logical operations, whose carry comes
// from the barrel shifter rather than the ALU).
func (m *Machine) setNZC(n, z, c bool) {
	if m.status.inITBlock() {
		return
	}
	m.status.negative, m.status.zero, m.status.carry = n, z, c
}

// setNZCV updates all four flags (used by arithmetic operations).
func (m *Machine) setNZCV(n, z, c, v bool) {
	if m.status.inITBlock() {
		return
	}
	m.status.negative, m.status.zero, m.status.carry, m.status.overflow = n, z, c, v
}

func bit(v uint16, n uint) bool { return v&(1<<n) != 0 }

func field(v uint16, hi, lo uint) uint32 {
	mask := uint16((1 << (hi - lo + 1)) - 1)
	return uint32((v >> lo) & mask)
}

func signExtendImm(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

// executeThumb16 decodes and executes a single 16bit Thumb instruction.
func (m *Machine) executeThumb16(opcode uint16, instructionPC uint32) Result {
	top8 := uint8(opcode >> 8)

	switch {
	// --- Format 2: add/subtract (register or 3bit immediate) -------------
	case opcode>>11 == 0b00011:
		return m.execAddSub(opcode)

	// --- Format 1: move shifted register (LSL/LSR/ASR #imm5) -------------
	case opcode>>13 == 0b000:
		return m.execShiftImm(opcode)

	// --- Format 3: move/compare/add/subtract immediate --------------------
	case opcode>>13 == 0b001:
		return m.execImmediate(opcode)

	// --- Format 4: ALU operations ------------------------------------------
	case opcode>>10 == 0b010000:
		return m.execALU(opcode)

	// --- Format 5: hi register operations / branch exchange ---------------
	case opcode>>10 == 0b010001:
		return m.execHiReg(opcode, instructionPC)

	// --- Format 6: PC-relative load ------------------------------------------
	case opcode>>11 == 0b01001:
		return m.execLDRPCRel(opcode, instructionPC)

	// --- Format 8: load/store sign-extended byte/halfword ------------------
	case opcode>>12 == 0b0101 && bit(opcode, 9):
		return m.execLoadStoreExt(opcode)

	// --- Format 7: load/store with register offset -------------------------
	case opcode>>12 == 0b0101:
		return m.execLoadStoreReg(opcode)

	// --- Format 9: load/store with immediate offset ------------------------
	case opcode>>13 == 0b011:
		return m.execLoadStoreImm(opcode)

	// --- Format 10: load/store halfword -------------------------------------
	case opcode>>12 == 0b1000:
		return m.execLoadStoreHalf(opcode)

	// --- Format 11: SP-relative load/store -----------------------------------
	case opcode>>12 == 0b1001:
		return m.execLoadStoreSPRel(opcode)

	// --- Format 12: load address ---------------------------------------------
	case opcode>>12 == 0b1010:
		return m.execLoadAddress(opcode, instructionPC)

	// --- Format 13: add offset to stack pointer -------------------------------
	case top8 == 0xb0:
		return m.execAddSPImm(opcode)

	// --- SXTH/SXTB/UXTH/UXTB ----------------------------------------------
	case top8 == 0xb2:
		return m.execExtend(opcode)

	// --- CBZ/CBNZ: must be tested before the generic 1011-range formats ----
	case opcode>>12 == 0b1011 && !bit(opcode, 10) && bit(opcode, 8):
		return m.execCBZ(opcode, instructionPC)

	// --- Format 14: push/pop registers ----------------------------------------
	case opcode>>12 == 0b1011 && (opcode>>9)&0b11 == 0b10:
		return m.execPushPop(opcode, instructionPC)

	// --- REV/REV16/REVSH -----------------------------------------------------
	case top8 == 0xba:
		return m.execReverse(opcode)

	// --- BKPT ------------------------------------------------------------------
	case top8 == 0xbe:
		return m.execBKPT(opcode, instructionPC)

	// --- IT and hints (NOP/YIELD/WFE/WFI/SEV) -------------------------------
	case top8 == 0xbf:
		return m.execITOrHint(opcode)

	// --- Format 15: multiple load/store (LDMIA/STMIA) -------------------------
	case opcode>>12 == 0b1100:
		return m.execLDMSTM(opcode)

	// --- Format 16: conditional branch ------------------------------------------
	case opcode>>12 == 0b1101:
		return m.execBCond(opcode, instructionPC)

	// --- Format 18: unconditional branch ----------------------------------------
	case opcode>>11 == 0b11100:
		return m.execBranch(opcode, instructionPC)
	}

	return Undefined
}

// --- Format 1: LSL/LSR/ASR #imm5 ----------------------------------------------

func (m *Machine) execShiftImm(opcode uint16) Result {
	op := field(opcode, 12, 11)
	imm5 := field(opcode, 10, 6)
	rs := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	src := m.regs.get(rs)

	var result uint32
	var carry bool
	var carryValid bool

	switch op {
	case 0b00: // LSL
		result, carry, carryValid = Lsl(src, imm5)
	case 0b01: // LSR #imm5, encoded 0 means 32
		n := imm5
		if n == 0 {
			n = 32
		}
		result, carry = Lsr(src, n)
		carryValid = true
	case 0b10: // ASR #imm5, encoded 0 means 32
		n := imm5
		if n == 0 {
			n = 32
		}
		result, carry = Asr(src, n)
		carryValid = true
	default:
		return Undefined
	}

	m.regs.set(rd, result)
	if carryValid {
		m.setNZC(int32(result) < 0, result == 0, carry)
	} else {
		m.setNZ(int32(result) < 0, result == 0)
	}
	return Continue
}

// --- Format 2: add/subtract -------------------------------------------------

func (m *Machine) execAddSub(opcode uint16) Result {
	immFlag := bit(opcode, 10)
	subFlag := bit(opcode, 9)
	rnOrImm := field(opcode, 8, 6)
	rs := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	a := m.regs.get(rs)
	var b uint32
	if immFlag {
		b = rnOrImm
	} else {
		b = m.regs.get(rnOrImm)
	}

	var result uint32
	var n, z, c, v bool
	if subFlag {
		result, n, z, c, v = Sub(a, b)
	} else {
		result, n, z, c, v = Add(a, b)
	}

	m.regs.set(rd, result)
	m.setNZCV(n, z, c, v)
	return Continue
}

// --- Format 3: move/compare/add/subtract immediate --------------------------

func (m *Machine) execImmediate(opcode uint16) Result {
	op := field(opcode, 12, 11)
	rd := field(opcode, 10, 8)
	imm8 := field(opcode, 7, 0)

	a := m.regs.get(rd)

	switch op {
	case 0b00: // MOV
		m.regs.set(rd, imm8)
		m.setNZ(int32(imm8) < 0, imm8 == 0)
	case 0b01: // CMP
		_, n, z, c, v := Sub(a, imm8)
		m.setNZCV(n, z, c, v)
	case 0b10: // ADD
		result, n, z, c, v := Add(a, imm8)
		m.regs.set(rd, result)
		m.setNZCV(n, z, c, v)
	case 0b11: // SUB
		result, n, z, c, v := Sub(a, imm8)
		m.regs.set(rd, result)
		m.setNZCV(n, z, c, v)
	}
	return Continue
}

// --- Format 4: ALU operations -------------------------------------------------

func (m *Machine) execALU(opcode uint16) Result {
	op := field(opcode, 9, 6)
	rs := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	a := m.regs.get(rd)
	b := m.regs.get(rs)

	switch op {
	case 0b0000: // AND
		result := a & b
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, m.status.carry)
	case 0b0001: // EOR
		result := a ^ b
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, m.status.carry)
	case 0b0010: // LSL (register)
		result, carry, valid := Lsl(a, b&0xff)
		if !valid {
			carry = m.status.carry
		}
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, carry)
	case 0b0011: // LSR (register)
		n := b & 0xff
		var result uint32
		var carry bool
		if n == 0 {
			result, carry = a, m.status.carry
		} else if n < 32 {
			result, carry = Lsr(a, n)
		} else if n == 32 {
			carry = a&0x80000000 != 0
		} else {
			carry = false
		}
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, carry)
	case 0b0100: // ASR (register)
		n := b & 0xff
		var result uint32
		var carry bool
		if n == 0 {
			result, carry = a, m.status.carry
		} else {
			result, carry = Asr(a, n)
		}
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, carry)
	case 0b0101: // ADC
		result, n, z, c, v := Adc(a, b, m.status.carry)
		m.regs.set(rd, result)
		m.setNZCV(n, z, c, v)
	case 0b0110: // SBC
		result, n, z, c, v := Sbc(a, b, m.status.carry)
		m.regs.set(rd, result)
		m.setNZCV(n, z, c, v)
	case 0b0111: // ROR: not implemented on this profile, matches the
		// reference firmware's expectation that it traps.
		return Undefined
	case 0b1000: // TST
		result := a & b
		m.setNZ(int32(result) < 0, result == 0)
	case 0b1001: // NEG
		result, n, z, c, v := Sub(0, b)
		m.regs.set(rd, result)
		m.setNZCV(n, z, c, v)
	case 0b1010: // CMP
		_, n, z, c, v := Sub(a, b)
		m.setNZCV(n, z, c, v)
	case 0b1011: // CMN
		_, n, z, c, v := Add(a, b)
		m.setNZCV(n, z, c, v)
	case 0b1100: // ORR
		result := a | b
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, m.status.carry)
	case 0b1101: // MUL
		result := a * b
		m.regs.set(rd, result)
		m.setNZ(int32(result) < 0, result == 0)
	case 0b1110: // BIC
		result := a &^ b
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, m.status.carry)
	case 0b1111: // MVN
		result := ^b
		m.regs.set(rd, result)
		m.setNZC(int32(result) < 0, result == 0, m.status.carry)
	}
	return Continue
}

// --- Format 5: hi register operations / branch exchange -----------------------

func (m *Machine) execHiReg(opcode uint16, instructionPC uint32) Result {
	op := field(opcode, 9, 8)
	h1 := bit(opcode, 7)
	h2 := bit(opcode, 6)
	rsField := field(opcode, 5, 3)
	rdField := field(opcode, 2, 0)

	rs := rsField
	if h2 {
		rs += 8
	}
	rd := rdField
	if h1 {
		rd += 8
	}

	// The architectural PC read by these instructions is the address of the
	// current instruction plus 4, not the raw (Thumb-bit-set) regs[PC] this
	// machine advances to during fetch.
	rsVal := m.regs.get(rs)
	if rs == rPC {
		rsVal = instructionPC + 4
	}
	rdVal := m.regs.get(rd)
	if rd == rPC {
		rdVal = instructionPC + 4
	}

	switch op {
	case 0b00: // ADD
		result := rdVal + rsVal
		if rd == rPC {
			m.regs.setPC(result)
		} else {
			m.regs.set(rd, result)
		}
	case 0b01: // CMP
		_, n, z, c, v := Sub(rdVal, rsVal)
		m.setNZCV(n, z, c, v)
	case 0b10: // MOV
		result := rsVal
		if rd == rPC {
			m.regs.setPC(result)
		} else {
			m.regs.set(rd, result)
		}
	case 0b11: // BX/BLX
		target := rsVal
		if h1 {
			m.regs.setLR((instructionPC + 2) | 1)
			m.recordCall(instructionPC + 2)
		}
		m.regs.setPC(target)
	}
	return Continue
}

// --- Format 6: PC-relative load ------------------------------------------------

func (m *Machine) execLDRPCRel(opcode uint16, instructionPC uint32) Result {
	rd := field(opcode, 10, 8)
	word8 := field(opcode, 7, 0)

	base := (instructionPC + 4) &^ 0x3
	addr := base + word8*4

	v, res := m.load(addr, Width32, false)
	if res != Continue {
		return res
	}
	m.regs.set(rd, v)
	return Continue
}

// --- Format 7/8: load/store with register offset -------------------------------

func (m *Machine) execLoadStoreReg(opcode uint16) Result {
	l := bit(opcode, 11)
	b := bit(opcode, 10)
	ro := field(opcode, 8, 6)
	rb := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	addr := m.regs.get(rb) + m.regs.get(ro)
	width := Width32
	if b {
		width = Width8
	}

	if l {
		v, res := m.load(addr, width, false)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	}

	return m.store(addr, width, m.regs.get(rd))
}

func (m *Machine) execLoadStoreExt(opcode uint16) Result {
	h := bit(opcode, 11)
	s := bit(opcode, 10)
	ro := field(opcode, 8, 6)
	rb := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	addr := m.regs.get(rb) + m.regs.get(ro)

	switch {
	case !s && !h: // STRH
		return m.store(addr, Width16, m.regs.get(rd))
	case !s && h: // LDRH
		v, res := m.load(addr, Width16, false)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	case s && !h: // LDSB
		v, res := m.load(addr, Width8, true)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	default: // LDSH
		v, res := m.load(addr, Width16, true)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	}
}

// --- Format 9: load/store with immediate offset -------------------------------

func (m *Machine) execLoadStoreImm(opcode uint16) Result {
	b := bit(opcode, 12)
	l := bit(opcode, 11)
	offset5 := field(opcode, 10, 6)
	rb := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	width := Width32
	off := offset5 * 4
	if b {
		width = Width8
		off = offset5
	}

	addr := m.regs.get(rb) + off

	if l {
		v, res := m.load(addr, width, false)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	}
	return m.store(addr, width, m.regs.get(rd))
}

// --- Format 10: load/store halfword -------------------------------------------

func (m *Machine) execLoadStoreHalf(opcode uint16) Result {
	l := bit(opcode, 11)
	offset5 := field(opcode, 10, 6)
	rb := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	addr := m.regs.get(rb) + offset5*2

	if l {
		v, res := m.load(addr, Width16, false)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	}
	return m.store(addr, Width16, m.regs.get(rd))
}

// --- Format 11: SP-relative load/store -----------------------------------------

func (m *Machine) execLoadStoreSPRel(opcode uint16) Result {
	l := bit(opcode, 11)
	rd := field(opcode, 10, 8)
	word8 := field(opcode, 7, 0)

	addr := m.regs.sp() + word8*4

	if l {
		v, res := m.load(addr, Width32, false)
		if res != Continue {
			return res
		}
		m.regs.set(rd, v)
		return Continue
	}
	return m.store(addr, Width32, m.regs.get(rd))
}

// --- Format 12: load address ---------------------------------------------------

func (m *Machine) execLoadAddress(opcode uint16, instructionPC uint32) Result {
	sp := bit(opcode, 11)
	rd := field(opcode, 10, 8)
	word8 := field(opcode, 7, 0)

	var base uint32
	if sp {
		base = m.regs.sp()
	} else {
		base = (instructionPC + 4) &^ 0x3
	}
	m.regs.set(rd, base+word8*4)
	return Continue
}

// --- Format 13: add offset to stack pointer -------------------------------------

func (m *Machine) execAddSPImm(opcode uint16) Result {
	s := bit(opcode, 7)
	word7 := field(opcode, 6, 0)
	offset := word7 * 4

	if s {
		m.regs.setSP(m.regs.sp() - offset)
	} else {
		m.regs.setSP(m.regs.sp() + offset)
	}
	return Continue
}

// --- SXTH/SXTB/UXTH/UXTB ----------------------------------------------------------

func (m *Machine) execExtend(opcode uint16) Result {
	op := field(opcode, 7, 6)
	rm := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	v := m.regs.get(rm)
	switch op {
	case 0b00: // SXTH
		m.regs.set(rd, uint32(int32(int16(v))))
	case 0b01: // SXTB
		m.regs.set(rd, uint32(int32(int8(v))))
	case 0b10: // UXTH
		m.regs.set(rd, v&0xffff)
	case 0b11: // UXTB
		m.regs.set(rd, v&0xff)
	}
	return Continue
}

// --- CBZ/CBNZ --------------------------------------------------------------------

func (m *Machine) execCBZ(opcode uint16, instructionPC uint32) Result {
	if m.isa != ARMv7M {
		return Undefined
	}

	nonzero := bit(opcode, 11)
	i := bit(opcode, 9)
	imm5 := field(opcode, 7, 3)
	rn := field(opcode, 2, 0)

	offset := (imm5 << 1)
	if i {
		offset |= 1 << 6
	}

	isZero := m.regs.get(rn) == 0
	branch := (isZero && !nonzero) || (!isZero && nonzero)

	if branch {
		m.regs.setPC(instructionPC + 2 + 2 + offset)
	}
	return Continue
}

// --- Format 14: push/pop -----------------------------------------------------------

func (m *Machine) execPushPop(opcode uint16, instructionPC uint32) Result {
	l := bit(opcode, 11)
	r := bit(opcode, 8)
	list := field(opcode, 7, 0)

	if l {
		sp := m.regs.sp()
		for i := 0; i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				v, res := m.load(sp, Width32, false)
				if res != Continue {
					return res
				}
				m.regs.set(uint32(i), v)
				sp += 4
			}
		}
		if r {
			v, res := m.load(sp, Width32, false)
			if res != Continue {
				return res
			}
			m.regs.setPC(v)
			sp += 4
		}
		m.regs.setSP(sp)
		return Continue
	}

	sp := m.regs.sp()
	n := 0
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			n++
		}
	}
	if r {
		n++
	}
	sp -= uint32(n) * 4
	base := sp

	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			if res := m.store(base, Width32, m.regs.get(uint32(i))); res != Continue {
				return res
			}
			base += 4
		}
	}
	if r {
		m.recordCall(instructionPC + 2)
		if res := m.store(base, Width32, m.regs.lr()); res != Continue {
			return res
		}
	}
	m.regs.setSP(sp)
	return Continue
}

// --- REV/REV16/REVSH --------------------------------------------------------------

func (m *Machine) execReverse(opcode uint16) Result {
	op := field(opcode, 7, 6)
	rm := field(opcode, 5, 3)
	rd := field(opcode, 2, 0)

	v := m.regs.get(rm)
	switch op {
	case 0b00: // REV
		m.regs.set(rd, v>>24|(v>>8)&0xff00|(v<<8)&0xff0000|v<<24)
	case 0b01: // REV16
		lo := v & 0xffff
		hi := v >> 16
		lo = lo>>8 | (lo<<8)&0xffff
		hi = hi>>8 | (hi<<8)&0xffff
		m.regs.set(rd, hi<<16|lo)
	case 0b11: // REVSH
		b0 := v & 0xff
		b1 := (v >> 8) & 0xff
		h := b0<<8 | b1
		m.regs.set(rd, uint32(int32(int16(h))))
	default:
		return Undefined
	}
	return Continue
}

// --- BKPT ---------------------------------------------------------------------------

func (m *Machine) execBKPT(opcode uint16, instructionPC uint32) Result {
	imm8 := field(opcode, 7, 0)

	switch imm8 {
	case 0x80:
		logger.SetLevel(logger.LevelError)
		return Continue
	case 0x81:
		logger.SetLevel(logger.LevelInstrs)
		return Continue
	}

	_ = instructionPC
	return BreakHit
}

// --- IT and hints -------------------------------------------------------------------

func (m *Machine) execITOrHint(opcode uint16) Result {
	opA := field(opcode, 7, 4)
	opB := field(opcode, 3, 0)

	if opB == 0 {
		// 0xBF00-0xBFF0 with mask 0: NOP, YIELD, WFE, WFI, SEV, or reserved -
		// all modelled as a plain NOP.
		return Continue
	}

	if m.isa != ARMv7M {
		return Undefined
	}

	m.status.itCond = uint8(opA)
	m.status.itMask = uint8(opB)
	return Continue
}

// --- Format 15: LDMIA/STMIA --------------------------------------------------------

func (m *Machine) execLDMSTM(opcode uint16) Result {
	l := bit(opcode, 11)
	rb := field(opcode, 10, 8)
	list := field(opcode, 7, 0)

	addr := m.regs.get(rb)
	writeback := true

	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		if l {
			v, res := m.load(addr, Width32, false)
			if res != Continue {
				return res
			}
			m.regs.set(uint32(i), v)
		} else {
			if res := m.store(addr, Width32, m.regs.get(uint32(i))); res != Continue {
				return res
			}
		}
		if uint32(i) == rb {
			writeback = false
		}
		addr += 4
	}

	if writeback {
		m.regs.set(rb, addr)
	}
	return Continue
}

// --- Format 16: conditional branch --------------------------------------------------

func (m *Machine) execBCond(opcode uint16, instructionPC uint32) Result {
	cond := uint8(field(opcode, 11, 8))
	offset8 := field(opcode, 7, 0)
	offset := signExtendImm(offset8<<1, 9)

	taken, ok := m.status.condition(cond)
	if !ok {
		return Undefined
	}
	if taken {
		m.regs.setPC(uint32(int64(instructionPC+2+2) + int64(int32(offset))))
	}
	return Continue
}

// --- Format 18: unconditional branch --------------------------------------------------

func (m *Machine) execBranch(opcode uint16, instructionPC uint32) Result {
	offset11 := field(opcode, 10, 0)
	offset := signExtendImm(offset11<<1, 12)
	m.regs.setPC(uint32(int64(instructionPC+2+2) + int64(int32(offset))))
	return Continue
}

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

// This file is the address-space router: it maps 32bit guest addresses to
// flash, SRAM, a handful of memory-mapped peripherals modelled after the
// Nordic nRF51/nRF52 family, the private peripheral bus, or a fault. It owns
// every alignment and writability check in the emulator - the decoder never
// touches the image or mem buffers directly.
package arm

import "github.com/cortexm/armemu/logger"

// Width is the size in bits of a memory transfer.
type Width int

// Valid Width values.
const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
)

func (w Width) bytes() uint32 { return uint32(w) / 8 }

// AccessKind distinguishes a load from a store for the single Transfer
// entry point described in the design; the load and store methods further
// down are the wrappers the decoder uses.
type AccessKind int

// Valid AccessKind values.
const (
	Load AccessKind = iota
	Store
)

// memory map region boundaries, selected by the top 3 bits of the address.
const (
	flashOrigin = 0x00000000
	flashMemtop = 0x1fffffff

	sramOrigin = 0x20000000
	sramMemtop = 0x3fffffff

	periphOrigin = 0x40000000
	periphMemtop = 0x5fffffff

	ppbOrigin = 0xe0000000
	ppbMemtop = 0xffffffff
)

// UART register addresses (nRF51/52 UARTE/UART peripheral instance 0).
const (
	uartSTARTRX = 0x40002000
	uartSTOPRX  = 0x40002004
	uartSTARTTX = 0x40002008
	uartSTOPTX  = 0x4000200c
	uartRXDRDY  = 0x40002108
	uartTXDRDY  = 0x4000211c
	uartERROR   = 0x40002124
	uartRXTO    = 0x40002144
	uartRXD     = 0x40002518
	uartTXD     = 0x4000251c
)

// RNG register addresses.
const (
	rngVALRDY = 0x4000d100
	rngVALUE  = 0x4000d508
)

// NVMC register addresses.
const (
	nvmcREADY      = 0x4001e400
	nvmcCONFIG     = 0x4001e504
	nvmcERASEPAGE  = 0x4001e508
)

// private peripheral bus addresses.
const (
	nvicISER = 0xe000e100
	nvicICER = 0xe000e180

	nvicIPROrigin = 0xe000e400
	nvicIPRMemtop = 0xe000e41f

	deviceIDOrigin = 0xf0000fe0
	deviceIDMemtop = 0xf0000fef
)

// Transfer is the single entry point described for the address-space
// router: it reads or writes width bits at address, sign-extending loads
// when requested. *value carries the store operand in, and the load result
// out. It is a thin facade over load/store below, kept because the design
// names it explicitly as the router's contract.
func (m *Machine) Transfer(address uint32, kind AccessKind, value *uint32, width Width, signExtend bool) Result {
	if kind == Load {
		v, res := m.load(address, width, signExtend)
		if res == Continue {
			*value = v
		}
		return res
	}
	return m.store(address, width, *value)
}

func regionOf(addr uint32) uint8 {
	return uint8(addr >> 29)
}

func (m *Machine) aligned(addr uint32, width Width) bool {
	switch width {
	case Width16:
		return addr&0x1 == 0
	case Width32:
		return addr&0x3 == 0
	}
	return true
}

// unalignedOK reports whether the current ISA profile permits an unaligned
// access to RAM/flash. The base (Cortex-M0) profile never does; the
// extended (Cortex-M4) profile does. Flash stores are not covered by this
// check: storeFlash always requires word alignment regardless of profile
// (NVMC only ever programs whole words).
func (m *Machine) unalignedOK() bool {
	return m.isa == ARMv7M
}

func (m *Machine) load(addr uint32, width Width, signExtend bool) (uint32, Result) {
	switch regionOf(addr) {
	case 0b000:
		return m.loadFlash(addr, width, signExtend)
	case 0b001:
		return m.loadSRAM(addr, width, signExtend)
	case 0b010:
		return m.loadPeripheral(addr, width)
	case 0b111:
		return m.loadPPB(addr, width)
	}
	return 0, FaultMemory
}

func (m *Machine) store(addr uint32, width Width, value uint32) Result {
	switch regionOf(addr) {
	case 0b000:
		return m.storeFlash(addr, width, value)
	case 0b001:
		return m.storeSRAM(addr, width, value)
	case 0b010:
		return m.storePeripheral(addr, width, value)
	case 0b111:
		return m.storePPB(addr, width, value)
	}
	return FaultMemory
}

// --- flash -----------------------------------------------------------------

func (m *Machine) loadFlash(addr uint32, width Width, signExtend bool) (uint32, Result) {
	if !m.aligned(addr, width) && !m.unalignedOK() {
		return 0, FaultMemory
	}

	off := addr - flashOrigin
	n := width.bytes()
	if off > uint32(len(m.image)) || uint64(off)+uint64(n) > uint64(len(m.image)) {
		return 0, FaultMemory
	}

	v := readLE(m.image[off:], width)
	if signExtend {
		v = signExtendTo32(v, width)
	}
	return v, Continue
}

func (m *Machine) storeFlash(addr uint32, width Width, value uint32) Result {
	if width != Width32 || addr&0x3 != 0 {
		return FaultMemory
	}
	if !m.imageWritable {
		return FaultMemory
	}

	off := addr - flashOrigin
	if uint64(off)+4 > uint64(len(m.image)) {
		return FaultMemory
	}

	// NOR flash: a program operation can only ever clear bits, never set
	// them. The store is an AND against the bits already present; a full
	// page erase is the only way to set a bit back to 1.
	existing := readLE32(m.image[off:])
	writeLE32(m.image[off:], existing&value)
	return Continue
}

// --- SRAM --------------------------------------------------------------

func (m *Machine) loadSRAM(addr uint32, width Width, signExtend bool) (uint32, Result) {
	if !m.aligned(addr, width) && !m.unalignedOK() {
		return 0, FaultMemory
	}

	off := addr - sramOrigin
	n := width.bytes()
	if off > uint32(len(m.mem)) || uint64(off)+uint64(n) > uint64(len(m.mem)) {
		return 0, FaultMemory
	}

	v := readLE(m.mem[off:], width)
	if signExtend {
		v = signExtendTo32(v, width)
	}
	return v, Continue
}

func (m *Machine) storeSRAM(addr uint32, width Width, value uint32) Result {
	if !m.aligned(addr, width) && !m.unalignedOK() {
		return FaultMemory
	}

	off := addr - sramOrigin
	n := width.bytes()
	if off > uint32(len(m.mem)) || uint64(off)+uint64(n) > uint64(len(m.mem)) {
		return FaultMemory
	}

	writeLE(m.mem[off:], width, value)
	return Continue
}

// --- peripherals ---------------------------------------------------------

func (m *Machine) loadPeripheral(addr uint32, width Width) (uint32, Result) {
	if width != Width32 || addr&0x3 != 0 {
		return 0, FaultMemory
	}

	switch addr {
	case uartRXDRDY, uartTXDRDY:
		return 1, Continue
	case uartERROR, uartRXTO:
		return 0, Continue
	case uartRXD:
		c := m.charSource.GetChar()
		return uint32(c) & 0xff, Continue
	case rngVALRDY:
		return 1, Continue
	case rngVALUE:
		return uint32(m.rngByte()), Continue
	case nvmcREADY:
		return 1, Continue
	}

	logger.Logf(logger.LevelWarn, "ARM", "read from unrecognised peripheral address %#08x", addr)
	return 0, Continue
}

func (m *Machine) storePeripheral(addr uint32, width Width, value uint32) Result {
	if width != Width32 || addr&0x3 != 0 {
		return FaultMemory
	}

	switch addr {
	case uartSTARTRX, uartSTOPRX, uartSTARTTX, uartSTOPTX:
		return Continue
	case uartTXD:
		m.charSink.PutChar(int32(value & 0xff))
		return Continue
	case nvmcCONFIG:
		m.imageWritable = value != 0
		return Continue
	case nvmcERASEPAGE:
		return m.erasePage(value)
	}

	logger.Logf(logger.LevelWarn, "ARM", "write to unrecognised peripheral address %#08x (value %#08x)", addr, value)
	return Continue
}

func (m *Machine) erasePage(addr uint32) Result {
	if m.pagesize == 0 || addr%m.pagesize != 0 || addr >= uint32(len(m.image)) {
		logger.Logf(logger.LevelWarn, "ARM", "NVMC erase of invalid page address %#08x", addr)
		return FaultMemory
	}

	end := addr + m.pagesize
	if end > uint32(len(m.image)) {
		end = uint32(len(m.image))
	}
	for i := addr; i < end; i++ {
		m.image[i] = 0xff
	}
	return Continue
}

// --- private peripheral bus ----------------------------------------------

func (m *Machine) loadPPB(addr uint32, width Width) (uint32, Result) {
	if width != Width32 || addr&0x3 != 0 {
		return 0, FaultMemory
	}

	if addr >= nvicIPROrigin && addr <= nvicIPRMemtop {
		idx := ((addr - nvicIPROrigin) / 4) % 8
		return m.nvic[idx], Continue
	}
	if addr >= deviceIDOrigin && addr <= deviceIDMemtop {
		return 0, Continue
	}

	return 0, FaultMemory
}

func (m *Machine) storePPB(addr uint32, width Width, value uint32) Result {
	if width != Width32 || addr&0x3 != 0 {
		return FaultMemory
	}

	switch addr {
	case nvicISER:
		logger.Logf(logger.LevelWarn, "ARM", "NVIC interrupt enable (%#08x) acknowledged, not modelled", value)
		return Continue
	case nvicICER:
		logger.Logf(logger.LevelWarn, "ARM", "NVIC interrupt disable (%#08x) acknowledged, not modelled", value)
		return Continue
	}

	if addr >= nvicIPROrigin && addr <= nvicIPRMemtop {
		idx := ((addr - nvicIPROrigin) / 4) % 8
		m.nvic[idx] = value
		return Continue
	}

	return FaultMemory
}

// --- little-endian helpers -------------------------------------------------

func readLE(b []byte, width Width) uint32 {
	switch width {
	case Width8:
		return uint32(b[0])
	case Width16:
		return uint32(b[0]) | uint32(b[1])<<8
	default:
		return readLE32(b)
	}
}

func readLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func writeLE(b []byte, width Width, v uint32) {
	switch width {
	case Width8:
		b[0] = byte(v)
	case Width16:
		b[0] = byte(v)
		b[1] = byte(v >> 8)
	default:
		writeLE32(b, v)
	}
}

func writeLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func signExtendTo32(v uint32, from Width) uint32 {
	switch from {
	case Width8:
		return uint32(int32(int8(v)))
	case Width16:
		return uint32(int32(int16(v)))
	}
	return v
}

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

// This file is the Machine Controller: it owns the machine state and
// implements the external contract used by both a minimal CLI front end and
// a debug server - create, load, reset, step, run, halt, breakpoints, and
// the register/memory inspection entry points.
package arm

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/cortexm/armemu/logger"
)

// ISALevel selects which Cortex-M profile the decoder should behave as.
// The design explicitly calls for a single decoder consulting this field
// rather than two forked implementations.
type ISALevel int

// Valid ISALevel values.
const (
	// ARMv6M is the Cortex-M0 base profile: Thumb only, no IT blocks, no
	// CBZ/CBNZ, faults on unaligned access.
	ARMv6M ISALevel = iota

	// ARMv7M is the Cortex-M4 extended profile: adds the Thumb-2 32bit
	// instruction families, IT blocks, CBZ/CBNZ, and permits unaligned
	// loads from RAM and flash and unaligned stores to RAM (flash stores
	// stay word-aligned).
	ARMv7M
)

func (l ISALevel) String() string {
	if l == ARMv7M {
		return "Cortex-M4 (ARMv7-M)"
	}
	return "Cortex-M0 (ARMv6-M)"
}

// ExitVector is the sentinel value placed in LR at reset. A BX/BLX (or any
// other transfer of control) to this address is the normal way a firmware
// "main" function terminates the emulation.
const ExitVector = 0xdeadbeef

// NumHWBreakpoints is the number of hardware breakpoint slots a Machine
// exposes to a debugger.
const NumHWBreakpoints = 4

// MaxBacktraceLen bounds the call-bookkeeping stack used for diagnostics.
// Exceeding it stops recording further entries but never stops execution.
const MaxBacktraceLen = 100

type backtraceEntry struct {
	pc uint32
	sp uint32
}

// Machine is the single top-level emulated entity: registers, flags, flash
// and SRAM images, the peripheral set, and the debugger control surface.
type Machine struct {
	regs   registers
	status psr

	isa ISALevel

	image         []byte
	imageWritable bool
	pagesize      uint32

	mem []byte

	nvic [8]uint32

	hwbreak [NumHWBreakpoints]uint32

	// halt is sampled at the top of the run loop. The debugger sets it from
	// a different goroutine; Run clears it after observing it set, which is
	// the full extent of the cross-thread handshake this emulator needs.
	halt atomic.Bool

	callDepth int
	backtrace [MaxBacktraceLen]backtraceEntry

	lastSP   uint32
	loglevel logger.Level

	charSource CharSource
	charSink   CharSink

	rng *rand.Rand

	// breakpointsEnabled gates hardware breakpoint checking. Used internally
	// by Step when called directly by a debugger that wants to single-step
	// across a location it has just broken on without immediately
	// re-triggering the same breakpoint.
	breakpointsEnabled bool
}

// Create allocates a Machine with the given flash image size, flash erase
// page size, and SRAM size, all in bytes. pagesize must be a power of two
// no larger than imageSize, and imageSize must be at least 64 bytes.
func Create(imageSize, pagesize, memSize uint32, isa ISALevel, level logger.Level) (*Machine, error) {
	if imageSize < 64 {
		return nil, fmt.Errorf("arm: image_size must be at least 64 bytes, got %d", imageSize)
	}
	if pagesize == 0 || pagesize&(pagesize-1) != 0 {
		return nil, fmt.Errorf("arm: pagesize must be a power of two, got %d", pagesize)
	}
	if pagesize > imageSize {
		return nil, fmt.Errorf("arm: pagesize (%d) cannot exceed image_size (%d)", pagesize, imageSize)
	}

	m := &Machine{
		isa:                isa,
		image:              make([]byte, imageSize),
		mem:                make([]byte, memSize),
		pagesize:           pagesize,
		loglevel:           level,
		charSource:         NullCharSource{},
		charSink:           NullCharSink{},
		rng:                rand.New(rand.NewSource(1)),
		breakpointsEnabled: true,
	}
	for i := range m.image {
		m.image[i] = 0xff
	}

	logger.SetLevel(level)

	return m, nil
}

// SetHostConsole attaches the host side of the emulated UART. Either
// argument may be nil to leave the existing (or null) implementation.
func (m *Machine) SetHostConsole(source CharSource, sink CharSink) {
	if source != nil {
		m.charSource = source
	}
	if sink != nil {
		m.charSink = sink
	}
}

// Load copies up to len(m.image) bytes of firmware into the prefix of the
// flash image. Bytes beyond len(data) (or beyond a previous Load call) are
// left as whatever they were - 0xff on a freshly Created machine, modelling
// erased NOR flash.
func (m *Machine) Load(data []byte) {
	copy(m.image, data)
}

// Reset re-initialises registers from the vector table at the base of
// flash: word 0 is the initial stack pointer, word 1 is the reset-vector
// program counter (its Thumb bit, bit 0, is forced on by setPC).
func (m *Machine) Reset() error {
	if len(m.image) < 8 {
		return fmt.Errorf("arm: image too small to contain a reset vector")
	}

	m.status.reset()

	sp := readLE32(m.image[0:])
	pcVector := readLE32(m.image[4:])

	for i := 0; i < rSP; i++ {
		m.regs.set(uint32(i), 0)
	}
	m.regs.setSP(sp)
	m.regs.setLR(ExitVector)
	m.regs.setPC(pcVector)

	m.lastSP = sp
	m.callDepth = 1
	m.backtrace[0] = backtraceEntry{pc: m.regs.pc(), sp: sp}

	m.halt.Store(false)

	return nil
}

// Halt asynchronously requests that a Run loop stop at the next instruction
// boundary. Safe to call from a different goroutine than the one driving
// Run/Step.
func (m *Machine) Halt() {
	m.halt.Store(true)
}

// BreakpointsEnable turns hardware breakpoint checking on or off. Disabling
// it is how a debugger steps a single instruction past an address it just
// broke on without immediately re-triggering.
func (m *Machine) BreakpointsEnable(enable bool) {
	m.breakpointsEnabled = enable
}

// SetBreakpoint assigns address to hardware-breakpoint slot. An address of
// 0 disables the slot.
func (m *Machine) SetBreakpoint(slot int, address uint32) error {
	if slot < 0 || slot >= NumHWBreakpoints {
		return fmt.Errorf("arm: breakpoint slot %d out of range [0,%d)", slot, NumHWBreakpoints)
	}
	m.hwbreak[slot] = address
	return nil
}

// Registers returns a copy of the 16 general purpose registers.
func (m *Machine) Registers() [numRegisters]uint32 {
	return m.regs.snapshot()
}

// ReadRegister returns the value of register i (0-15).
func (m *Machine) ReadRegister(i int) (uint32, error) {
	if i < 0 || i >= numRegisters {
		return 0, fmt.Errorf("arm: register index %d out of range", i)
	}
	return m.regs.get(uint32(i)), nil
}

// ReadRegisters copies up to num register values into buf, returning the
// number actually copied. num is clamped to the number of registers that
// exist - the plainly-correct behaviour the design notes call for, in
// preference to the source's inverted clamp.
func (m *Machine) ReadRegisters(buf []uint32, num int) int {
	if num > numRegisters {
		num = numRegisters
	}
	if num > len(buf) {
		num = len(buf)
	}
	snap := m.regs.snapshot()
	copy(buf[:num], snap[:num])
	return num
}

// ReadMemory reads length bytes starting at address into buf, routing the
// reads through the address-space router so that peripheral side effects
// (eg. consuming a UART RXD byte) remain observable to a debugger. Word
// transfers are used when both address and length are word-aligned;
// otherwise the read falls back to bytes.
func (m *Machine) ReadMemory(buf []byte, address uint32, length int) (int, error) {
	if length > len(buf) {
		length = len(buf)
	}

	if address&0x3 == 0 && length%4 == 0 {
		for i := 0; i < length; i += 4 {
			v, res := m.load(address+uint32(i), Width32, false)
			if res != Continue {
				return i, fmt.Errorf("arm: memory fault reading %#08x", address+uint32(i))
			}
			writeLE32(buf[i:], v)
		}
		return length, nil
	}

	for i := 0; i < length; i++ {
		v, res := m.load(address+uint32(i), Width8, false)
		if res != Continue {
			return i, fmt.Errorf("arm: memory fault reading %#08x", address+uint32(i))
		}
		buf[i] = byte(v)
	}
	return length, nil
}

// Status returns a copy of the current condition flags.
func (m *Machine) Status() (n, z, c, v bool) {
	return m.status.negative, m.status.zero, m.status.carry, m.status.overflow
}

func (m *Machine) String() string {
	regs := m.regs.snapshot()
	s := fmt.Sprintf("status: %s\n", m.status.String())
	for i, r := range regs {
		s += fmt.Sprintf("r%-2d: %08x", i, r)
		if i%4 == 3 {
			s += "\n"
		} else {
			s += "  "
		}
	}
	return s
}

// breakpointHit reports whether the instruction about to be fetched (real
// address PC-1, since PC always carries the Thumb bit) sits on an enabled
// hardware breakpoint.
func (m *Machine) breakpointHit() bool {
	if !m.breakpointsEnabled {
		return false
	}
	addr := m.regs.pc() - 1
	for _, bp := range m.hwbreak {
		if bp != 0 && bp == addr {
			return true
		}
	}
	return false
}

// Step executes exactly one instruction (one 16bit Thumb encoding, or one
// 32bit Thumb-2 encoding treated as a single atomic unit) and returns the
// outcome.
func (m *Machine) Step() Result {
	if m.breakpointHit() {
		return BreakHit
	}

	pc := m.regs.pc()
	if pc == ExitVector {
		return Exit
	}
	if pc > uint32(len(m.image))-2 || pc&1 == 0 {
		return FaultPC
	}

	idx := pc / 2
	byteIdx := idx * 2
	opcode := uint16(m.image[byteIdx]) | uint16(m.image[byteIdx+1])<<8

	// instructionPC is the real (even) byte address of this halfword - PC
	// itself always carries the Thumb bit, one higher than the address it
	// addresses.
	instructionPC := pc - 1
	m.regs.setPC(pc + 2)

	if m.isa == ARMv7M && m.status.inITBlock() {
		taken, _ := m.status.condition(m.status.itCond)
		if !taken {
			if is32BitThumb2(opcode) {
				m.regs.setPC(m.regs.pc() + 2)
			}
			m.status.advanceIT()
			return Continue
		}

		res := m.executeOpcode(opcode, instructionPC)
		m.status.advanceIT()
		return res
	}

	return m.executeOpcode(opcode, instructionPC)
}

// executeOpcode dispatches a fetched halfword to either the Thumb-16
// executor or, when the opcode is the first halfword of a Thumb-2 32bit
// encoding, fetches the second halfword and dispatches to the 32bit
// executor. instructionPC is the address the halfword was fetched from,
// used for PC-relative addressing and for rewinding on an Undefined result.
func (m *Machine) executeOpcode(opcode uint16, instructionPC uint32) Result {
	if m.isa == ARMv7M && is32BitThumb2(opcode) {
		pc2 := m.regs.pc()
		if pc2 > uint32(len(m.image))-2 {
			return FaultPC
		}
		idx2 := pc2 / 2
		byteIdx2 := idx2 * 2
		opcodeLo := uint16(m.image[byteIdx2]) | uint16(m.image[byteIdx2+1])<<8
		m.regs.setPC(pc2 + 2)

		res := m.execute32bit(opcode, opcodeLo, instructionPC)
		if res == Undefined {
			m.regs.setPC(instructionPC)
		}
		return res
	}

	res := m.executeThumb16(opcode, instructionPC)
	if res == Undefined {
		m.regs.setPC(instructionPC)
	}
	return res
}

// Run repeatedly steps until something other than Continue happens: Exit,
// a caught Halt request, or a fatal error. On a fatal result it prints a
// register snapshot and the backtrace to the log, matching the reference
// behaviour of dumping diagnostics before returning control.
func (m *Machine) Run() Result {
	for {
		if m.halt.Load() {
			m.halt.Store(false)
			return Halt
		}

		res := m.Step()
		if res == Continue {
			continue
		}

		if res.Fatal() {
			logger.Log(logger.LevelError, "ARM", m.String())
			m.dumpBacktrace()
		}

		return res
	}
}

func (m *Machine) dumpBacktrace() {
	logger.Log(logger.LevelError, "ARM", "backtrace:")
	for i := m.callDepth - 1; i >= 0; i-- {
		e := m.backtrace[i]
		logger.Logf(logger.LevelError, "ARM", "  pc=%#08x sp=%#08x", e.pc, e.sp)
	}
}

// recordCall is called on BL, BLX, and PUSH {...,LR} to append a backtrace
// entry. Entries whose recorded SP is at or above the current SP are
// pruned first, which recovers from tail calls that leave no matching
// POP {...,PC}/BX LR to prune against explicitly.
func (m *Machine) recordCall(returnPC uint32) {
	sp := m.regs.sp()

	for m.callDepth > 0 && m.backtrace[m.callDepth-1].sp >= sp {
		m.callDepth--
	}

	if m.callDepth >= MaxBacktraceLen {
		return
	}

	m.backtrace[m.callDepth] = backtraceEntry{pc: returnPC, sp: sp}
	m.callDepth++
	m.lastSP = sp
}

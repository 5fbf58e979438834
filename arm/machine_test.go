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

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/cortexm/armemu/logger"
)

// buildImage lays out a vector table (SP, PC) followed by a sequence of
// 16bit Thumb opcodes starting at offset 8, padded out to size bytes.
func buildImage(size int, sp, pcReset uint32, halfwords []uint16) []byte {
	img := make([]byte, size)
	for i := range img {
		img[i] = 0xff
	}
	binary.LittleEndian.PutUint32(img[0:], sp)
	binary.LittleEndian.PutUint32(img[4:], pcReset)
	off := 8
	for _, h := range halfwords {
		binary.LittleEndian.PutUint16(img[off:], h)
		off += 2
	}
	return img
}

func newTestMachine(t *testing.T, code []uint16, imageSize int) *Machine {
	t.Helper()
	if imageSize == 0 {
		imageSize = 256
	}
	m, err := Create(uint32(imageSize), 64, 4096, ARMv7M, logger.LevelError)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.Load(buildImage(imageSize, 0x20001000, 0x00000009, code))
	if err := m.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	return m
}

// TestArithmeticExit covers end-to-end scenario 1: movs/movs/adds/ldr=/bx
// terminates via the sentinel with the expected register and flag state.
func TestArithmeticExit(t *testing.T) {
	code := []uint16{
		0x2007, // movs r0, #7
		0x2105, // movs r1, #5
		0x1840, // adds r0, r0, r1
		0x4a01, // ldr r2, [pc, #4]
		0x4710, // bx r2
		0x0000, // pad to word alignment
		0xbeef, 0xdead, // literal 0xdeadbeef, little-endian halfwords
	}
	m := newTestMachine(t, code, 256)

	res := m.Run()
	if res != Exit {
		t.Fatalf("Run() = %s, want exit", res)
	}
	if got := m.regs.get(0); got != 12 {
		t.Fatalf("r0 = %d, want 12", got)
	}
	n, z, c, v := m.Status()
	if n || z || c || v {
		t.Fatalf("flags = N=%v Z=%v C=%v V=%v, want all clear", n, z, c, v)
	}
}

// TestCompareFlags covers end-to-end scenario 2.
func TestCompareFlags(t *testing.T) {
	code := []uint16{
		0x2001, // movs r0, #1
		0x2102, // movs r1, #2
		0x4288, // cmp r0, r1
	}
	m := newTestMachine(t, code, 256)

	for i := 0; i < 3; i++ {
		if res := m.Step(); res != Continue {
			t.Fatalf("step %d: %s", i, res)
		}
	}

	n, z, c, v := m.Status()
	if !n || z || c || v {
		t.Fatalf("flags = N=%v Z=%v C=%v V=%v, want N=1 Z=0 C=0 V=0", n, z, c, v)
	}
}

// TestFlashErase covers end-to-end scenario 3, exercised directly against
// the router rather than through decoded store instructions.
func TestFlashErase(t *testing.T) {
	m := newTestMachine(t, nil, 4096)

	m.image[0x410] = 0x11 // a byte inside the page about to be erased
	m.image[0x800] = 0x42 // a byte outside the page about to be erased

	if res := m.store(nvmcCONFIG, Width32, 1); res != Continue {
		t.Fatalf("enable writable: %s", res)
	}
	if !m.imageWritable {
		t.Fatal("imageWritable not latched true")
	}

	if res := m.store(nvmcERASEPAGE, Width32, 0x400); res != Continue {
		t.Fatalf("erase page: %s", res)
	}

	for addr := 0x400; addr < 0x400+int(m.pagesize); addr++ {
		if m.image[addr] != 0xff {
			t.Fatalf("image[%#x] = %#02x, want 0xff after erase", addr, m.image[addr])
		}
	}
	if m.image[0x800] != 0x42 {
		t.Fatalf("byte outside erased page was modified: %#02x", m.image[0x800])
	}
}

// TestFlashWriteRejectedWhenNotWritable exercises the testable property
// that a disabled NVMC leaves the image byte-for-byte unchanged.
func TestFlashWriteRejectedWhenNotWritable(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	before := append([]byte(nil), m.image...)

	if res := m.store(0x40, Width32, 0xffffffff); res != FaultMemory {
		t.Fatalf("store with imageWritable=false = %s, want FaultMemory", res)
	}
	for i := range before {
		if before[i] != m.image[i] {
			t.Fatalf("image mutated at offset %d despite rejected store", i)
		}
	}
}

// TestFlashWriteIsANDOnly exercises the NOR semantics: a store can only
// clear bits, never set them.
func TestFlashWriteIsANDOnly(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	m.store(nvmcCONFIG, Width32, 1)

	if res := m.store(0x40, Width32, 0xffff0000); res != Continue {
		t.Fatalf("store: %s", res)
	}
	if res := m.store(0x40, Width32, 0x0000ffff); res != Continue {
		t.Fatalf("store: %s", res)
	}

	got := readLE32(m.image[0x40:])
	if got != 0 {
		t.Fatalf("image[0x40] = %#08x, want 0 (AND of the two stores)", got)
	}
}

// TestUARTEcho covers end-to-end scenario 4.
type scriptedCharSource struct {
	chars []int32
	i     int
}

func (s *scriptedCharSource) GetChar() int32 {
	if s.i >= len(s.chars) {
		return -1
	}
	c := s.chars[s.i]
	s.i++
	return c
}

type recordingCharSink struct {
	received []int32
}

func (s *recordingCharSink) PutChar(v int32) {
	s.received = append(s.received, v)
}

func TestUARTEcho(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	source := &scriptedCharSource{chars: []int32{'A'}}
	sink := &recordingCharSink{}
	m.SetHostConsole(source, sink)

	v, res := m.load(uartRXD, Width32, false)
	if res != Continue {
		t.Fatalf("load RXD: %s", res)
	}
	if v != 'A' {
		t.Fatalf("RXD = %#x, want 'A'", v)
	}

	if res := m.store(uartTXD, Width32, v); res != Continue {
		t.Fatalf("store TXD: %s", res)
	}
	if len(sink.received) != 1 || sink.received[0] != 'A' {
		t.Fatalf("sink received %v, want exactly one 'A'", sink.received)
	}
}

// TestBreakpointHit covers end-to-end scenario 5.
func TestBreakpointHit(t *testing.T) {
	code := []uint16{
		0x2001, // movs r0, #1
		0x2002, // movs r0, #2
		0x2003, // movs r0, #3
		0x2004, // movs r0, #4 - the instruction reached after 3 steps
		0x4770, // bx lr
	}
	m := newTestMachine(t, code, 256)

	const a = 8 + 3*2 // real address of the 4th instruction
	if err := m.SetBreakpoint(0, a); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	res := m.Run()
	if res != BreakHit {
		t.Fatalf("Run() = %s, want break", res)
	}
	if got := m.regs.pc(); got != a+1 {
		t.Fatalf("pc = %#x, want %#x (A+1, Thumb bit preserved)", got, a+1)
	}
}

// TestHaltRace covers end-to-end scenario 6: a concurrent Halt stops a
// tight branch-to-self loop in bounded time, and Step can resume afterwards.
func TestHaltRace(t *testing.T) {
	code := []uint16{0xe7fe} // b . (branches to itself)
	m := newTestMachine(t, code, 256)

	done := make(chan Result, 1)
	go func() {
		done <- m.Run()
	}()

	time.Sleep(20 * time.Millisecond)
	m.Halt()

	select {
	case res := <-done:
		if res != Halt {
			t.Fatalf("Run() = %s, want halt", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe Halt within 2s")
	}

	if res := m.Step(); res != Continue {
		t.Fatalf("Step after halt = %s, want continue", res)
	}
}

// TestDoubleHaltIsIdempotent covers the round-trip property: two Halts with
// no intervening Run observe as one.
func TestDoubleHaltIsIdempotent(t *testing.T) {
	m := newTestMachine(t, []uint16{0xe7fe}, 256)
	m.Halt()
	m.Halt()

	res := m.Run()
	if res != Halt {
		t.Fatalf("Run() = %s, want halt", res)
	}
	if m.halt.Load() {
		t.Fatal("halt flag still set after Run observed it")
	}
}

// TestReadRegistersStable covers the round-trip property: repeated
// ReadRegisters calls with no execution between them return identical data.
func TestReadRegistersStable(t *testing.T) {
	m := newTestMachine(t, []uint16{0x2007}, 256)

	buf1 := make([]uint32, numRegisters)
	buf2 := make([]uint32, numRegisters)
	m.ReadRegisters(buf1, numRegisters)
	m.ReadRegisters(buf2, numRegisters)

	for i := range buf1 {
		if buf1[i] != buf2[i] {
			t.Fatalf("register %d differs across reads: %#x vs %#x", i, buf1[i], buf2[i])
		}
	}
}

// TestReadRegistersClampsCount is the "plainly correct" clamp direction
// called out in the design notes: an oversized count is clamped down, not
// treated as a license to read out of bounds.
func TestReadRegistersClampsCount(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	buf := make([]uint32, numRegisters)

	n := m.ReadRegisters(buf, 1000)
	if n != numRegisters {
		t.Fatalf("ReadRegisters(_, 1000) = %d, want %d", n, numRegisters)
	}
}

// TestSetBreakpointRoundTrip covers the round-trip property: disabling a
// breakpoint by writing 0 restores prior step behaviour.
func TestSetBreakpointRoundTrip(t *testing.T) {
	code := []uint16{
		0x2001, // movs r0, #1
		0x4770, // bx lr -> Exit
	}
	m := newTestMachine(t, code, 256)

	const a = 8
	if err := m.SetBreakpoint(0, a); err != nil {
		t.Fatal(err)
	}
	if res := m.Run(); res != BreakHit {
		t.Fatalf("Run() with breakpoint armed = %s, want break", res)
	}

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBreakpoint(0, 0); err != nil {
		t.Fatal(err)
	}
	if res := m.Run(); res != Exit {
		t.Fatalf("Run() with breakpoint disabled = %s, want exit", res)
	}
}

// TestBacktraceBound covers the testable property that the backtrace array
// never exceeds MaxBacktraceLen entries, even given unbounded BL recursion.
func TestBacktraceBound(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	m.regs.setSP(0x20000ff0)

	for i := 0; i < MaxBacktraceLen+50; i++ {
		m.recordCall(0x100 + uint32(i)*4)
		m.regs.setSP(m.regs.sp() - 4)
	}

	if m.callDepth > MaxBacktraceLen {
		t.Fatalf("callDepth = %d, exceeds MaxBacktraceLen %d", m.callDepth, MaxBacktraceLen)
	}
}

// TestPCBit0AlwaysSet covers the testable property that PC's Thumb bit
// survives every register write, including a plain register-to-PC move.
func TestPCBit0AlwaysSet(t *testing.T) {
	m := newTestMachine(t, nil, 256)
	m.regs.setPC(0x1000)
	if m.regs.pc()&1 == 0 {
		t.Fatal("PC bit 0 clear after setPC")
	}
}

func TestUndefinedInstructionRewindsPC(t *testing.T) {
	// top byte 0xB6 falls in the gap between the CBZ/CBNZ encodings (which
	// need bit 8 set) and push/pop (which needs bits 10:9 == 0b10), and
	// isn't claimed by any of the other 0xB0-0xBF special cases either.
	code := []uint16{0xb600}
	m := newTestMachine(t, code, 256)

	pcBefore := m.regs.pc()
	res := m.Step()
	if res != Undefined {
		t.Fatalf("Step() = %s, want undefined", res)
	}
	if m.regs.pc() != pcBefore {
		t.Fatalf("pc = %#x after undefined instruction, want unchanged %#x", m.regs.pc(), pcBefore)
	}
}

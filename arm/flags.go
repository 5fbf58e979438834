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

// This file implements the arithmetic/logic primitives that every ALU-style
// Thumb and Thumb-2 instruction is built from. Each function is pure: given
// the same inputs it always produces the same (result, N, Z, C, V) tuple,
// independent of any machine state. The decoder is responsible for deciding
// whether the flags it returns are actually written back to the PSR (many
// Thumb-2 encodings, and any instruction executed inside an IT block,
// suppress the write).
//
// All of the overflow/carry computation is done by widening to 64 bits
// rather than with bit tricks, which keeps the edge cases (shifts by 32,
// signed overflow at the boundary) obviously correct by inspection.
package arm

// addWithCarry is the common implementation behind ADD, ADC, CMN and the
// "add" half of SUB/SBC/CMP (which call it with an inverted, incremented
// operand - see sub/sbc below). carryIn is the incoming carry for ADC/SBC;
// callers of plain ADD/SUB pass false/true respectively in the right place.
func addWithCarry(a, b uint32, carryIn bool) (result uint32, n, z, c, v bool) {
	var cin uint64
	if carryIn {
		cin = 1
	}

	unsignedSum := uint64(a) + uint64(b) + cin
	signedSum := int64(int32(a)) + int64(int32(b)) + int64(cin)

	result = uint32(unsignedSum)
	n = result&0x80000000 != 0
	z = result == 0
	c = unsignedSum > 0xffffffff
	v = int64(int32(result)) != signedSum

	return result, n, z, c, v
}

// Add computes a + b (mod 2^32) along with the N/Z/C/V flags ARM defines
// for ADD/ADDS.
func Add(a, b uint32) (result uint32, n, z, c, v bool) {
	return addWithCarry(a, b, false)
}

// Adc computes a + b + carryIn (mod 2^32), the ADC/ADCS operation.
func Adc(a, b uint32, carryIn bool) (result uint32, n, z, c, v bool) {
	return addWithCarry(a, b, carryIn)
}

// Sub computes a - b (mod 2^32) along with the N/Z/C/V flags ARM defines
// for SUB/SUBS/CMP. Subtraction is implemented as addition of the one's
// complement plus one, which is also how the carry flag ends up meaning
// "NOT borrow" - C is set exactly when a >= b unsigned.
func Sub(a, b uint32) (result uint32, n, z, c, v bool) {
	return addWithCarry(a, ^b, true)
}

// Sbc computes a - b - (1 - carryIn) (mod 2^32), the SBC/SBCS operation.
func Sbc(a, b uint32, carryIn bool) (result uint32, n, z, c, v bool) {
	return addWithCarry(a, ^b, carryIn)
}

// Lsl performs a logical shift left of src by n bits (0 <= n, not limited to
// 31 - the Thumb encodings that can produce n >= 32, notably Thumb-2
// register-controlled shifts, rely on this saturating correctly).
//
// carryValid is false when n == 0, in which case the caller must leave C
// unchanged rather than writing carryOut.
func Lsl(src, n uint32) (result uint32, carryOut bool, carryValid bool) {
	switch {
	case n == 0:
		return src, false, false
	case n < 32:
		carryOut = src&(1<<(32-n)) != 0
		return src << n, carryOut, true
	case n == 32:
		return 0, src&1 != 0, true
	default:
		return 0, false, true
	}
}

// Lsr performs a logical shift right of src by n bits. Callers decoding the
// Thumb format-1 "shift by 5 bit immediate" encoding must normalize an
// encoded shift amount of 0 to 32 before calling this function - see the
// ARM reference for LSR #0 meaning LSR #32 in that one encoding.
func Lsr(src, n uint32) (result uint32, carryOut bool) {
	switch {
	case n == 0:
		return src, false
	case n < 32:
		carryOut = src&(1<<(n-1)) != 0
		return src >> n, carryOut
	case n == 32:
		return 0, src&0x80000000 != 0
	default:
		return 0, false
	}
}

// Asr performs an arithmetic (sign-extending) shift right of src by n bits.
// Shifts of 32 or more saturate to the sign bit, computed without ever
// invoking Go's shift operator with a count >= the operand width (which the
// language leaves unspecified for signed shifts and we avoid regardless).
func Asr(src, n uint32) (result uint32, carryOut bool) {
	sign := src&0x80000000 != 0

	switch {
	case n == 0:
		return src, false
	case n < 32:
		carryOut = src&(1<<(n-1)) != 0
		result = src >> n
		if sign {
			result |= ^uint32(0) << (32 - n)
		}
		return result, carryOut
	default:
		if sign {
			return 0xffffffff, true
		}
		return 0, false
	}
}

// Ror performs a rotate right of src by n bits, used by the Thumb-2
// register-controlled shift encoding and by the ROR data-processing op.
// n is taken modulo 32 first, matching the ARM pseudocode.
func Ror(src, n uint32) (result uint32, carryOut bool) {
	if n == 0 {
		return src, false
	}
	n &= 31
	if n == 0 {
		// rotate by a multiple of 32: value unchanged, carry is the top bit
		return src, src&0x80000000 != 0
	}
	result = (src >> n) | (src << (32 - n))
	carryOut = result&0x80000000 != 0
	return result, carryOut
}

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

import "math/rand"

// rngByte returns a pseudo-random byte for the RNG.VALUE register. The real
// nRF RNG peripheral has a bias-correction mode and an interrupt; this
// emulator only needs a byte that looks random to firmware polling VALRDY,
// so a per-machine math/rand generator is enough.
func (m *Machine) rngByte() uint8 {
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(1))
	}
	return uint8(m.rng.Intn(256))
}

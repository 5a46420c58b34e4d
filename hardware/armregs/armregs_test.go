// This file is part of GopherProbe.
//
// GopherProbe is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherProbe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherProbe.  If not, see <https://www.gnu.org/licenses/>.

package armregs_test

import (
	"testing"

	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/test"
)

func TestSelectors(t *testing.T) {
	sel, ok := armregs.Selector(armregs.R0)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 0)

	sel, ok = armregs.Selector(armregs.PC)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 15)

	sel, ok = armregs.Selector(armregs.PSP)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 18)

	sel, ok = armregs.Selector(armregs.CtrlStack)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 0x14)

	sel, ok = armregs.Selector(armregs.FPSCR)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 0x21)

	sel, ok = armregs.Selector(armregs.D1)
	test.ExpectedSuccess(t, ok)
	test.Equate(t, sel, 0x42)

	// packed aliases have no selector
	_, ok = armregs.Selector(armregs.PRIMASK)
	test.ExpectedFailure(t, ok)
	_, ok = armregs.Selector(armregs.CONTROL)
	test.ExpectedFailure(t, ok)
}

func TestContainerPrecedesAliases(t *testing.T) {
	// the container register must come before all registers unpacked from
	// it, otherwise a bulk read cannot unpack aliases in file order
	for id := armregs.R0; id < armregs.NumRegisters; id++ {
		container, _, ok := armregs.Packing(id)
		if ok {
			test.ExpectedSuccess(t, container < id)
		}
	}
}

func TestFileExistence(t *testing.T) {
	f := armregs.NewFile(false)
	test.ExpectedSuccess(t, f.Reg(armregs.R0).Exists)
	test.ExpectedSuccess(t, f.Reg(armregs.CONTROL).Exists)
	test.ExpectedFailure(t, f.Reg(armregs.FPSCR).Exists)
	test.ExpectedFailure(t, f.Reg(armregs.D15).Exists)

	f = armregs.NewFile(true)
	test.ExpectedSuccess(t, f.Reg(armregs.FPSCR).Exists)
	test.ExpectedSuccess(t, f.Reg(armregs.D15).Exists)
	test.Equate(t, f.Reg(armregs.D15).Size, 64)
}

func TestInvalidate(t *testing.T) {
	f := armregs.NewFile(true)

	r := f.Reg(armregs.PC)
	r.SetUint32(0x20000000)
	r.Valid = true
	r.Dirty = true
	test.Equate(t, r.Uint32(), uint32(0x20000000))

	f.Invalidate()
	test.ExpectedFailure(t, r.Valid)
	test.ExpectedFailure(t, r.Dirty)
}

func TestValueWidths(t *testing.T) {
	f := armregs.NewFile(true)

	// 8-bit alias stores a single byte
	pm := f.Reg(armregs.PRIMASK)
	pm.SetUint32(0x101)
	test.Equate(t, pm.Uint32(), uint32(0x01))

	// 64-bit register round trip
	d := f.Reg(armregs.D3)
	d.SetUint64(0x0102030405060708)
	test.ExpectedSuccess(t, d.Uint64() == 0x0102030405060708)
	test.Equate(t, d.Uint32(), uint32(0x05060708))
}

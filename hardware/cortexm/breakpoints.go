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

package cortexm

// BreakpointType distinguishes hardware comparator breakpoints from soft
// breakpoints implemented by patching a BKPT instruction into memory.
type BreakpointType int

// List of breakpoint types.
const (
	BreakpointHard BreakpointType = iota
	BreakpointSoft
)

// Breakpoint is the minimal view of a breakpoint that run-control needs.
type Breakpoint struct {
	Address uint32
	Length  int
	Type    BreakpointType
}

// Breakpoints is the breakpoint collaborator. The hardware programming
// logic behind it (which comparator slots exist and how they are armed) is
// outside this package; run-control only issues the calls below.
//
// Add returns an error when no comparator slot is free. Set and Unset
// program and deprogram the hardware for an existing breakpoint without
// forgetting it.
type Breakpoints interface {
	Find(addr uint32) *Breakpoint
	Add(addr uint32, length int, typ BreakpointType) error
	Remove(addr uint32) error
	Set(bp *Breakpoint) error
	Unset(bp *Breakpoint) error
	EnableAll() error
}

// Watchpoints is the watchpoint collaborator.
type Watchpoints interface {
	EnableAll() error
}

// FPComparator remembers the last value programmed into a Flash Patch and
// Breakpoint unit comparator so that it can be replayed after a reset
// destroys the debug block's volatile state.
type FPComparator struct {
	// address of the FP_COMPn register
	Address uint32

	// last programmed value
	Value uint32
}

// DWTComparator remembers the last values programmed into a Data Watchpoint
// and Trace unit comparator block, for the same replay purpose as
// FPComparator.
type DWTComparator struct {
	// address of the first register in the COMP/MASK/FUNCTION block
	Address uint32

	Comp     uint32
	Mask     uint32
	Function uint32
}

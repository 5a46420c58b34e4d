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

package dapsim

// Line is the simulated SRST wire. It implements dap.ResetLine.
//
// Whether an asserted line gates the debug port is controlled by Gating:
// with gating on, every debug register access fails while the line is held.
type Line struct {
	sim *Sim

	// Gating makes debug register access fail while the line is asserted
	Gating bool
}

// ResetLine returns the simulated SRST wire of this debug block.
func (s *Sim) ResetLine(gating bool) *Line {
	return &Line{
		sim:    s,
		Gating: gating,
	}
}

// Assert implements the dap.ResetLine interface.
func (l *Line) Assert() error {
	l.sim.doReset()
	if l.Gating {
		l.sim.srstHeld = true
	}
	return nil
}

// Deassert implements the dap.ResetLine interface.
func (l *Line) Deassert() error {
	l.sim.srstHeld = false
	return nil
}

// DCCSend places one byte into the byte channel carried in the low
// halfword of the data register, as target firmware would. Bit zero flags
// the byte as fresh.
func (s *Sim) DCCSend(value byte) {
	s.dcrdr = s.dcrdr&0xffff0000 | uint32(value)<<8 | 0x1
}

// DCCBusy returns whether the previous byte is still unacknowledged.
func (s *Sim) DCCBusy() bool {
	return s.dcrdr&0x1 == 0x1
}

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

import (
	"github.com/jetsetilly/gopherprobe/curated"
)

// dccRead reads one byte from the emulated debug communication channel.
// Cortex-M has no real DCC; the low halfword of DCRDR carries a one byte
// software protocol: bit zero of the control byte flags that the data byte
// is fresh, and the debugger acknowledges by clearing the halfword.
func (c *Core) dccRead() (value byte, ctrl byte, err error) {
	var buf [2]byte
	if err := c.ap.ReadBufferNoIncr(DCRDR, 1, 2, buf[:]); err != nil {
		return 0, 0, curated.Errorf(TransportFailure, err)
	}

	ctrl = buf[0]
	value = buf[1]

	// ack the read so the target can send the next byte
	if ctrl&0x1 == 0x1 {
		var zero [2]byte
		if err := c.ap.WriteBufferNoIncr(DCRDR, 1, 2, zero[:]); err != nil {
			return 0, 0, curated.Errorf(TransportFailure, err)
		}
	}

	return value, ctrl, nil
}

// TargetRequestData reads size 32-bit words of debug message payload from
// the channel into buffer.
func (c *Core) TargetRequestData(size int, buffer []byte) error {
	for i := 0; i < size*4; i++ {
		data, _, err := c.dccRead()
		if err != nil {
			return err
		}
		buffer[i] = data
	}
	return nil
}

// HandleTargetRequest samples the channel for a request from the target.
// Call it periodically, from the same scheduler as Poll(). The channel is
// only serviced while the core is running with the channel enabled.
func (c *Core) HandleTargetRequest() error {
	if !c.dccEnabled {
		return nil
	}

	if c.state != Running {
		return nil
	}

	data, ctrl, err := c.dccRead()
	if err != nil {
		return err
	}

	// check if we have data
	if ctrl&0x1 != 0x1 {
		return nil
	}

	// assume the target is quick enough to feed the remaining bytes of
	// the request
	request := uint32(data)
	for i := 1; i <= 3; i++ {
		data, _, err = c.dccRead()
		if err != nil {
			return err
		}
		request |= uint32(data) << (i * 8)
	}

	if c.TargetRequestHandler != nil {
		c.TargetRequestHandler(c, request)
	}

	return nil
}

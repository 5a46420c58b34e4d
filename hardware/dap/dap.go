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

// Package dap defines the contract between the run-control core and the
// Debug Access Port. Implementations of the MemAP interface talk to a
// physical debug adapter, or to a simulation of one (see the dapsim
// package).
//
// The queued access functions do not touch the wire immediately. Queued
// accesses are batched and performed, in order, by the Run() function. The
// result of a queued read is not valid until Run() has returned. The atomic
// variants are equivalent to a queued access followed immediately by Run().
package dap

// MemAP provides memory-mapped word access to a processor's debug
// registers through a Debug Access Port.
type MemAP interface {
	// queued word accesses. for a queued read the value pointed to by
	// value is not valid until Run() has returned without error
	ReadWord(addr uint32, value *uint32) error
	WriteWord(addr uint32, value uint32) error

	// perform all queued accesses in order. the queue is emptied whether
	// or not an error occurred
	Run() error

	// atomic word accesses. equivalent to a queued access followed by
	// Run()
	ReadWordAtomic(addr uint32) (uint32, error)
	WriteWordAtomic(addr uint32, value uint32) error

	// buffer accesses. size is the width of each transfer in bytes (1, 2
	// or 4) and count is the number of transfers. the address
	// auto-increments for each transfer
	ReadBuffer(addr uint32, size int, count int, data []byte) error
	WriteBuffer(addr uint32, size int, count int, data []byte) error

	// like ReadBuffer/WriteBuffer but the address does not increment.
	// used for repeated access to a single register (the DCC channel)
	ReadBufferNoIncr(addr uint32, size int, count int, data []byte) error
	WriteBufferNoIncr(addr uint32, size int, count int, data []byte) error

	// Reconnect reinitialises the debug port connection. required after a
	// reset that may have dropped the connection
	Reconnect() error
}

// ResetLine controls the physical reset wire (SRST) of the target, if the
// adapter provides one.
type ResetLine interface {
	Assert() error
	Deassert() error
}

// ResetConfig describes the reset wiring of the target.
type ResetConfig struct {
	// a physical SRST line is available
	HasSRST bool

	// debug port access works even while SRST is asserted. when false and
	// SRST is asserted, the debug port is gated and must be reconnected
	// after the line is released
	SRSTNoGating bool
}

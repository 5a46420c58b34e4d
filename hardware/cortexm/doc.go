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

// Package cortexm is the run-control core for ARMv6-M, ARMv7-M and ARMv8-M
// processors. It drives a processor's Debug Access Port (see the dap
// package) to implement a halt/run/step/reset state machine suitable for
// use by a debugger front end.
//
// The Core type represents one physical processor's debug session. An
// external scheduler calls Poll() periodically; all asynchronous state
// transitions happen inside Poll(). Halt(), Resume(), Step() and the reset
// functions are called on demand.
//
// Several cores that share one debug connection can be grouped with the
// Group type, which fans run-control operations out to the whole group and
// reconciles individually polled halt events into one consistent report.
//
// Everything in this package is single-threaded and cooperative. No
// function spawns concurrent work and no function may be called from more
// than one goroutine.
package cortexm

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
	"fmt"
	"time"

	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/hardware/dap"
)

// Error patterns returned by this package. Compare with curated.Is() or
// curated.Has().
const (
	// a register transfer or an interrupt drain did not complete before
	// its deadline. recoverable: bulk reads fall back to the slow path
	// and a drained step leaves the core running
	Timeout = "cortexm: timeout: %s"

	// the Access Port reported a failed transaction. fatal to the current
	// operation
	TransportFailure = "cortexm: access port: %v"

	// the requested operation is not possible in the current state
	NotHalted = "cortexm: target not halted"

	// a halt was requested while reset gates the debug port
	HaltDuringGatedReset = "cortexm: can't request a halt while reset gates the debug port"

	// no reset mechanism is available at all
	NoResetAvailable = "cortexm: debug port not available, reset not asserted"

	// the core locked up on a double fault. the condition was recovered
	// by forcing a halt but the fault is still reported
	LockupRecovered = "cortexm: lockup cleared after double fault"

	// the requested soft reset mechanism is not supported by the core
	VectResetUnsupported = "cortexm: VECTRESET is not supported on this core"

	// a 16 or 32 bit memory access with a misaligned address on a core
	// that cannot do unaligned transfers
	UnalignedAccess = "cortexm: unaligned memory access"
)

// deadline for a register transfer to report ready.
const regReadyTimeout = 500 * time.Millisecond

// deadline for pending interrupts to retire during a single step in the
// MaskAuto policy.
const isrDrainTimeout = 500 * time.Millisecond

// Core is one physical processor's debug session.
//
// A Core is created at session setup and owns its lifecycle state, its
// debug status shadow and the accumulated sticky status mask. It must only
// be used from the one control goroutine that also services the poll loop.
type Core struct {
	name string
	ap   dap.MemAP
	prof Profile

	// reset wiring. rst may be nil when the adapter has no reset line
	rst    dap.ResetLine
	rstCfg dap.ResetConfig

	// collaborators
	regs *armregs.File
	bps  Breakpoints
	wps  Watchpoints

	// lifecycle
	state  State
	reason Reason

	// whether device examination has completed for this core. an
	// unexamined core is skipped by group operations and cannot be
	// halted after reset
	probed bool

	// dhcsr is the last-known value of the debug status register. sticky
	// accumulates the self-clearing status bits across reads
	dhcsr  uint32
	sticky uint32

	// last captured debug fault status
	dfsr uint32

	// fast/slow register transfer sub-machine
	transfer TransferMode

	// interrupt masking policy
	maskMode MaskMode

	// DEMCR vector catch bits requested by the user, rewritten at
	// end-of-reset (TRCENA is always added)
	demcr uint32

	// the DCC side channel is active. register transfers must save and
	// restore DCRDR around the select/read sequence while this is set
	dccEnabled bool

	// results of the most recent debug entry
	exceptionNumber int
	coreMode        Mode
	secure          bool

	// comparator programming to replay after reset
	FPComparators  []FPComparator
	DWTComparators []DWTComparator

	// halt event held back until the whole SMP group has been polled
	haltPostponed bool

	// srst is currently asserted. while it gates the debug port no halt
	// can be requested
	srstAsserted bool

	// the group this core belongs to. nil for a single core session
	group *Group

	// EventHandler is notified of run-control events. may be nil
	EventHandler func(*Core, Event)

	// TargetRequestHandler receives requests assembled from the DCC side
	// channel. may be nil
	TargetRequestHandler func(*Core, uint32)

	// KeepAlive is called inside bounded busy-waits so that other
	// periodic work can run without a dedicated thread. may be nil
	KeepAlive func()

	// ResetAssertOverride replaces the whole AssertReset() sequence when
	// not nil. used by targets that need a custom reset
	ResetAssertOverride func(*Core) error

	// timeouts are fields so the simulator driven tests can shorten them
	regReadyTimeout time.Duration
	isrDrainTimeout time.Duration
}

// NewCore creates a debug session for a single processor. rst may be nil if
// the adapter has no physical reset line.
func NewCore(name string, ap dap.MemAP, rst dap.ResetLine, rstCfg dap.ResetConfig,
	prof Profile, bps Breakpoints, wps Watchpoints) *Core {
	return &Core{
		name:            name,
		ap:              ap,
		prof:            prof,
		rst:             rst,
		rstCfg:          rstCfg,
		regs:            armregs.NewFile(prof.FPU),
		bps:             bps,
		wps:             wps,
		state:           Unknown,
		reason:          ReasonUndefined,
		transfer:        TransferFast,
		maskMode:        MaskAuto,
		probed:          true,
		regReadyTimeout: regReadyTimeout,
		isrDrainTimeout: isrDrainTimeout,
	}
}

// Name returns the name given to the core at session setup.
func (c *Core) Name() string {
	return c.name
}

// State returns the current lifecycle state of the session.
func (c *Core) State() State {
	return c.state
}

// Reason returns the reason for the most recent halt.
func (c *Core) Reason() Reason {
	return c.reason
}

// Registers returns the session's register file.
func (c *Core) Registers() *armregs.File {
	return c.regs
}

// Profile returns the core profile the session was created with.
func (c *Core) Profile() Profile {
	return c.prof
}

// TransferMode returns the current state of the fast/slow register
// transfer sub-machine.
func (c *Core) TransferMode() TransferMode {
	return c.transfer
}

// MaskMode returns the session's interrupt masking policy.
func (c *Core) MaskMode() MaskMode {
	return c.maskMode
}

// SetMaskMode changes the session's interrupt masking policy. The new
// policy takes effect at the next halt/run/step transition.
func (c *Core) SetMaskMode(mode MaskMode) {
	c.maskMode = mode
}

// Probed marks whether device examination has completed for this core.
func (c *Core) Probed() bool {
	return c.probed
}

// SetProbed is called by device examination (outside this package).
func (c *Core) SetProbed(probed bool) {
	c.probed = probed
}

// EnableDCC activates the emulated DCC side channel. While active,
// register transfers save and restore DCRDR around the select/read
// sequence.
func (c *Core) EnableDCC(enable bool) {
	c.dccEnabled = enable
}

// SetVectorCatch sets the DEMCR vector catch bits to be applied at
// end-of-reset. TRCENA is always added when the register is written.
func (c *Core) SetVectorCatch(demcr uint32) {
	c.demcr = demcr
}

// ExceptionNumber returns the active exception decoded on the most recent
// debug entry. Zero when the core is not in a handler.
func (c *Core) ExceptionNumber() int {
	return c.exceptionNumber
}

// CoreMode returns the processor mode decoded on the most recent debug
// entry.
func (c *Core) CoreMode() Mode {
	return c.coreMode
}

// Secure returns whether the core was in the secure state on the most
// recent debug entry. Always false for cores without the v8-M security
// extension.
func (c *Core) Secure() bool {
	return c.secure
}

// DebugStatus returns the last-known debug status register value and the
// accumulated sticky mask.
func (c *Core) DebugStatus() (uint32, uint32) {
	return c.dhcsr, c.sticky
}

// event sends an event to the handler, if one is attached.
func (c *Core) event(ev Event) {
	if c.EventHandler != nil {
		c.EventHandler(c, ev)
	}
}

// keepAlive yields to other periodic work during busy-waits.
func (c *Core) keepAlive() {
	if c.KeepAlive != nil {
		c.KeepAlive()
	}
}

func (c *Core) String() string {
	return fmt.Sprintf("%s: %s (%s)", c.name, c.state, c.prof.Arch)
}

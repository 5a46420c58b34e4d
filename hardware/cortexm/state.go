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

// State indicates the lifecycle state of a core session.
//
// DebugRunning means the core is executing code on behalf of the debugger
// itself. It is distinct from Running so that the front end can tell a
// user-visible resume from an internal one.
//
// All transitions happen inside Poll() or inside the explicit run-control
// operations. Poll() is the only place state is advanced asynchronously.
type State int

// List of possible core session states.
const (
	Unknown State = iota
	Running
	Halted
	Reset
	DebugRunning
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Reset:
		return "reset"
	case DebugRunning:
		return "debug-running"
	}
	return ""
}

// Reason records why a core halted, or why it is not halted.
type Reason int

// List of possible halt reasons.
//
// ReasonDebugRequest and ReasonSingleStep are definitive and are recorded
// by the operation that caused the halt. The remaining reasons are inferred
// from the debug fault status register on debug entry and never override a
// definitive reason.
const (
	ReasonUndefined Reason = iota
	ReasonDebugRequest
	ReasonBreakpoint
	ReasonWatchpoint
	ReasonWptAndBkpt
	ReasonSingleStep
	ReasonNotHalted
)

func (r Reason) String() string {
	switch r {
	case ReasonUndefined:
		return "undefined"
	case ReasonDebugRequest:
		return "debug-request"
	case ReasonBreakpoint:
		return "breakpoint"
	case ReasonWatchpoint:
		return "watchpoint"
	case ReasonWptAndBkpt:
		return "watchpoint-and-breakpoint"
	case ReasonSingleStep:
		return "single-step"
	case ReasonNotHalted:
		return "not-halted"
	}
	return ""
}

// Event is a notification sent to the session's event handler.
type Event int

// List of possible events.
//
// EventHalted and EventResumed are the user-visible halt/resume
// notifications. The Debug variants are their counterparts for
// debugger-internal execution. EventExternalReset reports a reset that was
// not requested through this session.
const (
	EventHalted Event = iota
	EventDebugHalted
	EventResumed
	EventDebugResumed
	EventExternalReset
)

func (e Event) String() string {
	switch e {
	case EventHalted:
		return "halted"
	case EventDebugHalted:
		return "debug-halted"
	case EventResumed:
		return "resumed"
	case EventDebugResumed:
		return "debug-resumed"
	case EventExternalReset:
		return "external-reset"
	}
	return ""
}

// Mode is the processor mode decoded on debug entry.
type Mode int

// List of possible processor modes.
const (
	ModeThread Mode = iota
	ModeUserThread
	ModeHandler
)

func (m Mode) String() string {
	switch m {
	case ModeThread:
		return "thread"
	case ModeUserThread:
		return "user-thread"
	case ModeHandler:
		return "handler"
	}
	return ""
}

// TransferMode is the two-state sub-machine controlling how bulk register
// reads are performed.
//
// The session starts in TransferFast. A timeout during a fast bulk read
// moves the session to TransferSlow; a bulk read that completes with no
// timeouts moves it back to TransferFast.
type TransferMode int

// List of possible transfer modes.
const (
	TransferFast TransferMode = iota
	TransferSlow
)

func (m TransferMode) String() string {
	switch m {
	case TransferFast:
		return "fast"
	case TransferSlow:
		return "slow"
	}
	return ""
}

// MaskMode selects the interrupt masking policy for the session.
type MaskMode int

// List of possible interrupt masking policies.
//
// MaskAuto masks interrupts only while single-stepping and lets pending
// interrupts retire before the step. MaskOff never masks. MaskOn always
// masks. MaskStepOnly masks only while stepping; on cores with the
// MASKINTS erratum the mask is applied at halt time instead.
const (
	MaskAuto MaskMode = iota
	MaskOff
	MaskOn
	MaskStepOnly
)

func (m MaskMode) String() string {
	switch m {
	case MaskAuto:
		return "auto"
	case MaskOff:
		return "off"
	case MaskOn:
		return "on"
	case MaskStepOnly:
		return "steponly"
	}
	return ""
}

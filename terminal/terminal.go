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

// Package terminal implements the interactive probe console. It wraps
// "github.com/pkg/term/termios", adding terminal geometry and friendlier
// names for the termios mode changes.
package terminal

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Geometry contains the dimensions of the output terminal.
type Geometry struct {
	// characters
	Rows uint16
	Cols uint16

	// pixels
	x uint16
	y uint16
}

// Terminal is the posix terminal the probe console runs on.
type Terminal struct {
	input  *os.File
	output *os.File

	geometry Geometry

	canAttr    unix.Termios
	rawAttr    unix.Termios
	cbreakAttr unix.Termios

	// sig/ack channels to control the window-size signal handler
	terminateHandlerSig chan bool
	terminateHandlerAck chan bool

	// geometry is updated from the signal handler goroutine
	mu sync.Mutex
}

// NewTerminal prepares a Terminal on the given input and output files,
// remembering the attributes needed for every terminal mode the console
// uses. The terminal is left in canonical mode.
func NewTerminal(input *os.File, output *os.File) (*Terminal, error) {
	if input == nil {
		return nil, fmt.Errorf("terminal: an input file is required")
	}
	if output == nil {
		return nil, fmt.Errorf("terminal: an output file is required")
	}

	trm := &Terminal{
		input:  input,
		output: output,
	}

	if err := termios.Tcgetattr(trm.input.Fd(), &trm.canAttr); err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	termios.Cfmakecbreak(&trm.cbreakAttr)
	termios.Cfmakeraw(&trm.rawAttr)

	trm.terminateHandlerSig = make(chan bool)
	trm.terminateHandlerAck = make(chan bool)

	_ = trm.updateGeometry()

	go func() {
		sigwinch := make(chan os.Signal, 1)
		signal.Notify(sigwinch, syscall.SIGWINCH)
		defer func() {
			trm.terminateHandlerAck <- true
		}()

		for {
			select {
			case <-sigwinch:
				_ = trm.updateGeometry()
			case <-trm.terminateHandlerSig:
				return
			}
		}
	}()

	return trm, nil
}

// CleanUp restores canonical mode and stops the signal handler.
func (trm *Terminal) CleanUp() {
	trm.CanonicalMode()
	trm.terminateHandlerSig <- true
	<-trm.terminateHandlerAck
}

// Print writes the formatted string to the output file.
func (trm *Terminal) Print(s string, a ...interface{}) {
	trm.output.WriteString(fmt.Sprintf(s, a...))
	trm.output.Sync()
}

// Geometry returns the current dimensions of the output terminal.
func (trm *Terminal) Geometry() Geometry {
	trm.mu.Lock()
	defer trm.mu.Unlock()
	return trm.geometry
}

func (trm *Terminal) updateGeometry() error {
	trm.mu.Lock()
	defer trm.mu.Unlock()

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, trm.output.Fd(),
		uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(&trm.geometry)))
	if errno != 0 {
		return fmt.Errorf("terminal: error updating geometry (%d)", errno)
	}
	return nil
}

// CanonicalMode puts the terminal into normal, everyday canonical mode.
func (trm *Terminal) CanonicalMode() {
	termios.Tcsetattr(trm.input.Fd(), termios.TCIFLUSH, &trm.canAttr)
}

// RawMode puts the terminal into raw mode.
func (trm *Terminal) RawMode() {
	termios.Tcsetattr(trm.input.Fd(), termios.TCIFLUSH, &trm.rawAttr)
}

// CBreakMode puts the terminal into cbreak mode.
func (trm *Terminal) CBreakMode() {
	termios.Tcsetattr(trm.input.Fd(), termios.TCIFLUSH, &trm.cbreakAttr)
}

// Flush empties the terminal's input and output buffers.
func (trm *Terminal) Flush() error {
	if err := termios.Tcflush(trm.input.Fd(), termios.TCIFLUSH); err != nil {
		return err
	}
	return termios.Tcflush(trm.output.Fd(), termios.TCOFLUSH)
}

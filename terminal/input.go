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

package terminal

import (
	"github.com/jetsetilly/gopherprobe/curated"
)

// UserInterrupt is returned by ReadLine when input is interrupted with
// ctrl-c.
const UserInterrupt = "terminal: user interrupt"

// control bytes we respond to while reading input
const (
	keyInterrupt = 3
	keyTab       = 9
	keyNewline   = 10
	keyReturn    = 13
	keyEsc       = 27
	keyBackspace = 8
	keyDelete    = 127
)

// ReadLine reads one line of input in cbreak mode, echoing and handling
// simple editing itself. The terminal is returned to canonical mode before
// the function returns.
func (trm *Terminal) ReadLine(prompt string) (string, error) {
	trm.CBreakMode()
	defer trm.CanonicalMode()

	trm.Print("%s", prompt)

	line := make([]byte, 0, 80)
	buf := make([]byte, 1)

	for {
		n, err := trm.input.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case keyInterrupt:
			trm.Print("\n")
			return "", curated.Errorf(UserInterrupt)

		case keyNewline, keyReturn:
			trm.Print("\n")
			return string(line), nil

		case keyBackspace, keyDelete:
			if len(line) > 0 {
				line = line[:len(line)-1]
				trm.Print("\b \b")
			}

		case keyEsc, keyTab:
			// no completion and no cursor movement. swallow the byte

		default:
			if buf[0] >= 32 && buf[0] < 127 {
				line = append(line, buf[0])
				trm.Print("%c", buf[0])
			}
		}
	}
}

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

package logger

import (
	"strings"
	"testing"

	"github.com/jetsetilly/gopherprobe/test"
)

func TestLogger(t *testing.T) {
	l := newLogger(maxCentral)

	s := &strings.Builder{}
	l.write(s)
	test.Equate(t, s.String(), "")

	l.log("test", "this is a test")
	s.Reset()
	l.write(s)
	test.Equate(t, s.String(), "test: this is a test\n")

	// a different entry is appended as normal
	l.log("test2", "this is another test")
	s.Reset()
	l.write(s)
	test.Equate(t, s.String(), "test: this is a test\ntest2: this is another test\n")
}

func TestRepeatFolding(t *testing.T) {
	l := newLogger(maxCentral)

	l.log("poll", "waiting for halt")
	l.log("poll", "waiting for halt")
	l.log("poll", "waiting for halt")

	s := &strings.Builder{}
	l.write(s)
	test.Equate(t, s.String(), "poll: waiting for halt (repeat x3)\n")
}

func TestTail(t *testing.T) {
	l := newLogger(maxCentral)

	l.log("tag", "one")
	l.log("tag", "two")
	l.log("tag", "three")

	s := &strings.Builder{}
	l.tail(s, 2)
	test.Equate(t, s.String(), "tag: two\ntag: three\n")

	// tail longer than the number of entries is capped
	s.Reset()
	l.tail(s, 100)
	test.Equate(t, s.String(), "tag: one\ntag: two\ntag: three\n")
}

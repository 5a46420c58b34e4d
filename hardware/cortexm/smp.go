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
	"github.com/jetsetilly/gopherprobe/logger"
)

// Group coordinates run-control across the cores of an SMP system. A halt
// of any member halts every member and a resume resumes every member.
//
// Like its member cores, a Group must only be used from the one control
// goroutine that also services the poll loop.
type Group struct {
	name  string
	cores []*Core
}

// NewGroup gathers cores into an SMP group. The order of the cores is the
// order in which group operations visit them.
func NewGroup(name string, cores ...*Core) *Group {
	g := &Group{
		name:  name,
		cores: cores,
	}
	for _, c := range cores {
		c.group = g
	}
	return g
}

// Cores returns the member cores in group order.
func (g *Group) Cores() []*Core {
	return g.cores
}

// HaltAll requests a halt of every core in the group. Unprobed and already
// halted cores are skipped. A failing core does not stop the fan-out; the
// first error is reported once every core has been visited.
func (g *Group) HaltAll() error {
	var firstErr error

	for _, c := range g.cores {
		if !c.probed || c.state == Halted {
			continue
		}
		if err := c.haltOne(); err != nil {
			logger.Logf(g.name, "halt of %s failed", c.name)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// restoreAll resumes every halted core in the group except the initiator,
// whose restart the caller handles itself. The first error stops the
// fan-out.
func (g *Group) restoreAll(initiator *Core, handleBreakpoints bool) error {
	for _, c := range g.cores {
		if c == initiator || !c.probed || c.state != Halted {
			continue
		}
		if err := c.restoreOne(true, 0, handleBreakpoints, false); err != nil {
			return err
		}
		if err := c.restartOne(false); err != nil {
			return err
		}
	}
	return nil
}

// postHaltPoll refreshes the state of every core that is not yet halted,
// picking up the halts requested by the reconciliation pass.
func (g *Group) postHaltPoll() error {
	var firstErr error

	for _, c := range g.cores {
		if !c.probed || c.state == Halted {
			continue
		}
		if err := c.pollOne(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Poll polls every core in the group and then reconciles halt state across
// the group as a whole: if any member halted this cycle every other member
// is halted too, and only then are the postponed halted events delivered.
//
// Delivering the events only after the reconciliation pass means an event
// handler always observes the whole group stopped.
func (g *Group) Poll() error {
	var firstErr error

	for _, c := range g.cores {
		if !c.probed {
			continue
		}
		if err := c.pollOne(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	postponed := false
	for _, c := range g.cores {
		if c.haltPostponed {
			postponed = true
			break
		}
	}

	if postponed {
		logger.Log(g.name, "halting all cores in the group")
		if err := g.HaltAll(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := g.postHaltPoll(); err != nil && firstErr == nil {
			firstErr = err
		}

		for _, c := range g.cores {
			if c.haltPostponed {
				c.haltPostponed = false
				if c.state == Halted {
					c.event(EventHalted)
				}
			}
		}
	}

	return firstErr
}

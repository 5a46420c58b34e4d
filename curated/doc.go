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

// Package curated provides the error type used throughout GopherProbe.
//
// Curated errors are created with a pattern string rather than a fully
// formatted message. The pattern is kept alongside the message arguments,
// which means errors can be compared by identity with the Is() and Has()
// functions. Packages declare their patterns as exported constants next to
// the code that can return them. For example:
//
//	return curated.Errorf(cortexm.RegisterReadyTimeout)
//
// Callers can then test for the condition without string matching on the
// formatted message:
//
//	if curated.Has(err, cortexm.RegisterReadyTimeout) {
//	}
//
// Wrapping one curated error in another is done by passing the inner error
// as one of the message arguments to Errorf().
package curated

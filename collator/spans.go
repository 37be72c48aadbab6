// Copyright 2021 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package collator

import "github.com/ethereum/go-ethereum/common"

// Tracer creates trace spans scoped to active relay parents. Implementations
// forward to whatever tracing backend the node runs; the subsystem itself
// only opens, tags and ends spans.
type Tracer interface {
	// LeafSpan opens a span covering the lifetime of an active relay parent.
	LeafSpan(relayParent common.Hash, name string) Span
}

// Span is a single trace scope.
type Span interface {
	// Child opens a sub-scope of the span.
	Child(name string) Span

	// SetTag attaches a string tag to the span.
	SetTag(key, value string)

	// End closes the span.
	End()
}

// noopSpan is used when no tracer is configured.
type noopSpan struct{}

func (noopSpan) Child(string) Span     { return noopSpan{} }
func (noopSpan) SetTag(string, string) {}
func (noopSpan) End()                  {}

// leafSpan opens a span for the relay parent, falling back to a no-op span
// without a tracer.
func (pm *ProtocolManager) leafSpan(relayParent common.Hash, name string) Span {
	if pm.cfg.Tracer == nil {
		return noopSpan{}
	}
	return pm.cfg.Tracer.LeafSpan(relayParent, name)
}

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

import "time"

// EvictionPolicy bounds how long a collator peer may stay connected without
// being useful.
type EvictionPolicy struct {
	// UndeclaredGrace is how long a connected peer may wait before
	// declaring.
	UndeclaredGrace time.Duration

	// InactiveGrace is how long a declared collator may stay idle before
	// being disconnected.
	InactiveGrace time.Duration
}

// Config are the configuration parameters of the validator side.
type Config struct {
	// Eviction is the inactivity policy for collator peers.
	Eviction EvictionPolicy

	// ActivityPoll is the cadence of the inactivity sweep.
	ActivityPoll time.Duration

	// FetchTimeout is the wall-clock deadline of a single collation fetch.
	FetchTimeout time.Duration

	// Tracer receives per-leaf trace spans. Nil disables tracing.
	Tracer Tracer
}

// DefaultConfig contains the default settings of the validator side.
var DefaultConfig = Config{
	Eviction: EvictionPolicy{
		UndeclaredGrace: time.Second,
		InactiveGrace:   24 * time.Hour,
	},
	ActivityPoll: time.Second,
	FetchTimeout: 2 * time.Second,
}

// sanitize fills zero fields with their defaults.
func (c Config) sanitize() Config {
	if c.Eviction.UndeclaredGrace == 0 {
		c.Eviction.UndeclaredGrace = DefaultConfig.Eviction.UndeclaredGrace
	}
	if c.Eviction.InactiveGrace == 0 {
		c.Eviction.InactiveGrace = DefaultConfig.Eviction.InactiveGrace
	}
	if c.ActivityPoll == 0 {
		c.ActivityPoll = DefaultConfig.ActivityPoll
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultConfig.FetchTimeout
	}
	return c
}

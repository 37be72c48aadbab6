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

package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ValidatorID is the session key of a relay-chain validator.
type ValidatorID [32]byte

func (v ValidatorID) String() string {
	return hexutil.Encode(v[:])
}

// ValidatorIndex is the index of a validator within the active set at some
// relay parent.
type ValidatorIndex uint32

// GroupIndex is the index of a validator group.
type GroupIndex uint32

// CoreKind describes the occupancy of an availability core.
type CoreKind int

const (
	// CoreFree means no parachain is scheduled on the core.
	CoreFree CoreKind = iota
	// CoreScheduled means a parachain is scheduled to occupy the core.
	CoreScheduled
	// CoreOccupied means a parachain candidate currently occupies the core.
	CoreOccupied
)

// CoreState is the state of a single availability core at some relay parent.
type CoreState struct {
	Kind CoreKind
	Para ParaID
}

// FreeCore returns an unoccupied core.
func FreeCore() CoreState { return CoreState{Kind: CoreFree} }

// ScheduledCore returns a core with the given parachain scheduled on it.
func ScheduledCore(para ParaID) CoreState {
	return CoreState{Kind: CoreScheduled, Para: para}
}

// OccupiedCore returns a core currently occupied by a candidate of the given
// parachain.
func OccupiedCore(para ParaID) CoreState {
	return CoreState{Kind: CoreOccupied, Para: para}
}

// ParaID returns the parachain assigned to the core, if any.
func (c CoreState) ParaID() (ParaID, bool) {
	if c.Kind == CoreFree {
		return 0, false
	}
	return c.Para, true
}

// GroupRotationInfo describes how validator groups rotate across availability
// cores over relay-chain blocks.
type GroupRotationInfo struct {
	// The block number at which the current session started.
	SessionStartBlock uint64
	// Group rotation frequency in blocks. Zero means no rotation.
	GroupRotationFrequency uint64
	// The block number the info was queried at.
	Now uint64
}

// rotations returns the number of rotations that have occurred since the
// session started.
func (g GroupRotationInfo) rotations() uint64 {
	if g.GroupRotationFrequency == 0 {
		return 0
	}
	return (g.Now - g.SessionStartBlock) / g.GroupRotationFrequency
}

// CoreForGroup returns the core the given group is assigned to at the block
// the info was queried at. cores is the total number of availability cores.
func (g GroupRotationInfo) CoreForGroup(group GroupIndex, cores int) int {
	if cores == 0 {
		return 0
	}
	return int((uint64(group) + g.rotations()) % uint64(cores))
}

// BumpRotation returns the rotation info one rotation into the future.
func (g GroupRotationInfo) BumpRotation() GroupRotationInfo {
	g.Now += g.GroupRotationFrequency
	return g
}

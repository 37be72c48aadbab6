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

import (
	"context"

	"github.com/Folyd/polkadot/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// groupAssignments are the parachains this validator's group is assigned to
// at a tracked relay parent, for the current and the next rotation.
type groupAssignments struct {
	current *types.ParaID
	next    *types.ParaID
}

// activeParas tracks the parachains of interest across all tracked relay
// parents. Interest is reference counted: a parachain may be the current or
// next assignment of several relay parents at once and stays interesting
// until the last of them is removed.
type activeParas struct {
	assignments map[common.Hash]groupAssignments
	current     map[types.ParaID]int
	next        map[types.ParaID]int
}

func newActiveParas() *activeParas {
	return &activeParas{
		assignments: make(map[common.Hash]groupAssignments),
		current:     make(map[types.ParaID]int),
		next:        make(map[types.ParaID]int),
	}
}

// assignIncoming queries the runtime for every newly tracked relay parent
// and records the group assignments there. Parents whose queries fail, or
// where this node is not a validator, are skipped; they are retried only if
// a later view change re-adds them.
func (a *activeParas) assignIncoming(ctx context.Context, runtime RuntimeAPI, keystore Keystore, added []common.Hash) {
	for _, relayParent := range added {
		validators, groups, rotation, cores, err := queryRuntime(ctx, runtime, relayParent)
		if err != nil {
			log.Debug("Failed to query runtime API for relay parent", "hash", relayParent, "err", err)
			continue
		}

		_, index, ok := keystore.SigningKey(validators)
		if !ok {
			log.Trace("Not a validator", "hash", relayParent)
			continue
		}
		group, ok := findValidatorGroup(groups, index)
		if !ok {
			log.Trace("Not in any validator group", "hash", relayParent, "index", index)
			continue
		}

		// This does not work for parathreads: a parathread claim is
		// multiplexed onto a core and comes with a known collator, which
		// would have to be admitted regardless of the group assignment.
		// Parachains get a dedicated core each, which is all that is handled
		// here.
		coreNow := rotation.CoreForGroup(group, len(cores))
		coreNext := rotation.BumpRotation().CoreForGroup(group, len(cores))

		assignment := groupAssignments{
			current: coreParaID(cores, coreNow),
			next:    coreParaID(cores, coreNext),
		}
		if assignment.current != nil {
			a.current[*assignment.current]++
		}
		if assignment.next != nil {
			a.next[*assignment.next]++
		}
		a.assignments[relayParent] = assignment

		log.Trace("Assigned incoming relay parent", "hash", relayParent,
			"current", assignment.current, "next", assignment.next)
	}
}

// removeOutgoing drops the assignments of relay parents that left the view,
// decrementing the interest counts.
func (a *activeParas) removeOutgoing(removed []common.Hash) {
	for _, relayParent := range removed {
		assignment, ok := a.assignments[relayParent]
		if !ok {
			continue
		}
		delete(a.assignments, relayParent)

		if assignment.current != nil {
			if a.current[*assignment.current]--; a.current[*assignment.current] <= 0 {
				delete(a.current, *assignment.current)
			}
		}
		if assignment.next != nil {
			if a.next[*assignment.next]--; a.next[*assignment.next] <= 0 {
				delete(a.next, *assignment.next)
			}
		}
	}
}

// isCurrentOrNext reports whether the parachain is of interest at any
// tracked relay parent.
func (a *activeParas) isCurrentOrNext(id types.ParaID) bool {
	if _, ok := a.current[id]; ok {
		return true
	}
	_, ok := a.next[id]
	return ok
}

// queryRuntime gathers the validator set, groups with rotation info and the
// availability cores at the relay parent.
func queryRuntime(ctx context.Context, runtime RuntimeAPI, relayParent common.Hash) (
	[]types.ValidatorID, [][]types.ValidatorIndex, types.GroupRotationInfo, []types.CoreState, error,
) {
	validators, err := runtime.Validators(ctx, relayParent)
	if err != nil {
		return nil, nil, types.GroupRotationInfo{}, nil, errors.Wrap(err, "validators")
	}
	groups, rotation, err := runtime.ValidatorGroups(ctx, relayParent)
	if err != nil {
		return nil, nil, types.GroupRotationInfo{}, nil, errors.Wrap(err, "validator groups")
	}
	cores, err := runtime.AvailabilityCores(ctx, relayParent)
	if err != nil {
		return nil, nil, types.GroupRotationInfo{}, nil, errors.Wrap(err, "availability cores")
	}
	return validators, groups, rotation, cores, nil
}

// coreParaID resolves a core index to the parachain scheduled or occupying
// it, if any.
func coreParaID(cores []types.CoreState, index int) *types.ParaID {
	if index < 0 || index >= len(cores) {
		return nil
	}
	para, ok := cores[index].ParaID()
	if !ok {
		return nil
	}
	return &para
}

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
	"testing"

	"github.com/Folyd/polkadot/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testAssignmentRuntime() *testRuntime {
	validators := make([]types.ValidatorID, 5)
	for i := range validators {
		validators[i] = types.ValidatorID{byte(i + 1)}
	}
	return &testRuntime{
		validators: validators,
		groups: [][]types.ValidatorIndex{
			{0, 1},
			{2, 3},
			{4},
		},
		rotation: types.GroupRotationInfo{GroupRotationFrequency: 1},
		cores: []types.CoreState{
			types.ScheduledCore(1),
			types.FreeCore(),
			types.OccupiedCore(2),
		},
	}
}

func TestAssignmentTracking(t *testing.T) {
	var (
		paras    = newActiveParas()
		runtime  = testAssignmentRuntime()
		keystore = &testKeystore{key: runtime.validators[0]}
		hashA    = common.Hash{0x0a}
		hashB    = common.Hash{0x0b}
	)
	// Group 0 sits on the scheduled core of para 1; the next rotation moves
	// it onto the free core.
	paras.assignIncoming(context.Background(), runtime, keystore, []common.Hash{hashA})
	require.True(t, paras.isCurrentOrNext(1))
	require.False(t, paras.isCurrentOrNext(2))

	// Interest is reference counted across relay parents.
	paras.assignIncoming(context.Background(), runtime, keystore, []common.Hash{hashB})
	paras.removeOutgoing([]common.Hash{hashA})
	require.True(t, paras.isCurrentOrNext(1))

	paras.removeOutgoing([]common.Hash{hashB})
	require.False(t, paras.isCurrentOrNext(1))

	// Removing an untracked parent is a no-op.
	paras.removeOutgoing([]common.Hash{hashA})
	require.False(t, paras.isCurrentOrNext(1))
}

func TestAssignmentNextRotation(t *testing.T) {
	var (
		paras    = newActiveParas()
		runtime  = testAssignmentRuntime()
		keystore = &testKeystore{key: runtime.validators[4]}
		hashA    = common.Hash{0x0a}
	)
	// Group 2 sits on the occupied core of para 2 now and rotates onto the
	// scheduled core of para 1 next.
	paras.assignIncoming(context.Background(), runtime, keystore, []common.Hash{hashA})
	require.True(t, paras.isCurrentOrNext(2))
	require.True(t, paras.isCurrentOrNext(1))
}

func TestAssignmentSkipsOnRuntimeError(t *testing.T) {
	var (
		paras    = newActiveParas()
		runtime  = testAssignmentRuntime()
		keystore = &testKeystore{key: runtime.validators[0]}
		hashA    = common.Hash{0x0a}
	)
	runtime.err = errors.New("unavailable")

	paras.assignIncoming(context.Background(), runtime, keystore, []common.Hash{hashA})
	require.False(t, paras.isCurrentOrNext(1))
	require.Empty(t, paras.assignments)
}

func TestAssignmentSkipsNonValidator(t *testing.T) {
	var (
		paras   = newActiveParas()
		runtime = testAssignmentRuntime()
		hashA   = common.Hash{0x0a}
	)
	// Our session key is not part of the validator set at this parent.
	keystore := &testKeystore{key: types.ValidatorID{0xff}}

	paras.assignIncoming(context.Background(), runtime, keystore, []common.Hash{hashA})
	require.False(t, paras.isCurrentOrNext(1))
	require.Empty(t, paras.assignments)
}

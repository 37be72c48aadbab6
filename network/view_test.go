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

package network

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestViewMembership(t *testing.T) {
	var (
		hashA = common.Hash{0x0a}
		hashB = common.Hash{0x0b}
		hashC = common.Hash{0x0c}
	)
	view := NewView(hashA, hashB)
	require.True(t, view.Contains(hashA))
	require.True(t, view.Contains(hashB))
	require.False(t, view.Contains(hashC))
	require.Equal(t, 2, view.Len())
	require.Equal(t, []common.Hash{hashA, hashB}, view.Heads())
}

func TestViewDifference(t *testing.T) {
	var (
		hashA = common.Hash{0x0a}
		hashB = common.Hash{0x0b}
		hashC = common.Hash{0x0c}
	)
	old := NewView(hashA, hashB)
	updated := NewView(hashB, hashC)

	require.Equal(t, []common.Hash{hashC}, updated.Difference(old))
	require.Equal(t, []common.Hash{hashA}, old.Difference(updated))
	require.Empty(t, old.Difference(old))
}

func TestViewZeroValue(t *testing.T) {
	var (
		zero  View
		hashA = common.Hash{0x0a}
		view  = NewView(hashA)
	)
	require.False(t, zero.Contains(hashA))
	require.Equal(t, 0, zero.Len())
	require.Empty(t, zero.Heads())
	require.Empty(t, zero.Difference(view))
	require.Equal(t, []common.Hash{hashA}, view.Difference(zero))
}

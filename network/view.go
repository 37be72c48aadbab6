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
	"bytes"
	"sort"

	"github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
)

// View is the set of relay-parent hashes a party considers active. The zero
// value is the empty view.
type View struct {
	heads mapset.Set
}

// NewView creates a view over the given relay parents.
func NewView(heads ...common.Hash) View {
	s := mapset.NewSet()
	for _, h := range heads {
		s.Add(h)
	}
	return View{heads: s}
}

// Contains reports whether the relay parent is part of the view.
func (v View) Contains(h common.Hash) bool {
	if v.heads == nil {
		return false
	}
	return v.heads.Contains(h)
}

// Len returns the number of relay parents in the view.
func (v View) Len() int {
	if v.heads == nil {
		return 0
	}
	return v.heads.Cardinality()
}

// Heads returns the relay parents of the view in a stable order.
func (v View) Heads() []common.Hash {
	if v.heads == nil {
		return nil
	}
	return sortedHashes(v.heads.ToSlice())
}

// Difference returns the relay parents present in v but not in other, in a
// stable order.
func (v View) Difference(other View) []common.Hash {
	if v.heads == nil {
		return nil
	}
	if other.heads == nil {
		return v.Heads()
	}
	return sortedHashes(v.heads.Difference(other.heads).ToSlice())
}

func sortedHashes(items []interface{}) []common.Hash {
	hashes := make([]common.Hash, 0, len(items))
	for _, item := range items {
		hashes = append(hashes, item.(common.Hash))
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}

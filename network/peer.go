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

// Package network contains the peer-facing primitives of the collator
// protocol: peer identities, views, the v1 wire messages and the reputation
// and request contracts the network bridge implements.
package network

import (
	"crypto/rand"
	"fmt"
)

// PeerID is the opaque network identity of a connected peer.
type PeerID [32]byte

// RandomPeerID returns a fresh random peer identity.
func RandomPeerID() PeerID {
	var id PeerID
	rand.Read(id[:])
	return id
}

func (p PeerID) String() string {
	return fmt.Sprintf("%x", p[:8])
}

// PeerSet designates which logical peer set of the network bridge an
// operation applies to.
type PeerSet int

const (
	// CollationPeerSet holds collator peers.
	CollationPeerSet PeerSet = iota
	// ValidationPeerSet holds validator peers.
	ValidationPeerSet
)

func (ps PeerSet) String() string {
	switch ps {
	case CollationPeerSet:
		return "collation"
	case ValidationPeerSet:
		return "validation"
	default:
		return "unknown"
	}
}

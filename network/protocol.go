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
	"github.com/Folyd/polkadot/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// ProtocolName is the official short name of the collation protocol used
// during capability negotiation.
var ProtocolName = "collation"

// ProtocolVersion is the supported version of the collation protocol.
const ProtocolVersion = 1

// Collation protocol message codes.
const (
	DeclareMsg            = 0x00
	AdvertiseCollationMsg = 0x01
	CollationSecondedMsg  = 0x02
)

// Declare is sent by a collator to bind its public key to a parachain. The
// signature covers the declare payload of the sending peer under the collator
// key.
type Declare struct {
	CollatorID types.CollatorID
	ParaID     types.ParaID
	Signature  []byte
}

// AdvertiseCollation is a collator's claim that it has a collation for the
// given relay parent.
type AdvertiseCollation struct {
	RelayParent common.Hash
}

// CollationSeconded notifies a collator that a validator seconded its
// collation on the given relay parent.
type CollationSeconded struct {
	RelayParent common.Hash
	Statement   types.SignedStatement
}

// Event is a notification delivered by the network bridge to the subsystem.
// It is one of PeerConnected, PeerDisconnected, PeerViewChange,
// OurViewChange or PeerMessage.
type Event interface{}

// PeerConnected signals that a peer joined the collation peer set.
type PeerConnected struct {
	Peer PeerID
}

// PeerDisconnected signals that a peer left the collation peer set.
type PeerDisconnected struct {
	Peer PeerID
}

// PeerViewChange carries the new view of a peer.
type PeerViewChange struct {
	Peer PeerID
	View View
}

// OurViewChange carries this node's new view.
type OurViewChange struct {
	View View
}

// PeerMessage carries a collation protocol wire message received from a
// peer. Message is one of Declare, AdvertiseCollation or CollationSeconded.
type PeerMessage struct {
	Peer    PeerID
	Message interface{}
}

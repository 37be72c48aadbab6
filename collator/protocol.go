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

// Package collator implements the validator side of the collator protocol:
// the subsystem that accepts declarations and collation advertisements from
// untrusted collator peers, fetches advertised collations and hands them to
// candidate backing, while penalizing protocol violations through the
// network bridge's reputation channel.
package collator

import (
	"context"
	"errors"

	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/ethereum/go-ethereum/common"
)

var (
	errTerminated = errors.New("terminated")
)

// Reputation deltas applied by the validator side.
var (
	repUnexpectedMessage = network.CostMinor("An unexpected message")
	repCorruptedMessage  = network.CostMinor("Message was corrupt")
	repNetworkError      = network.CostMinor("Some network error")
	repRequestTimedOut   = network.CostMinor("A collation request has timed out")
	repInvalidSignature  = network.Malicious("Invalid network message signature")
	repReportBad         = network.Malicious("A collator was reported by another subsystem")
	repWrongPara         = network.Malicious("A collator provided a collation for the wrong para")
	repUnneededCollator  = network.CostMinor("An unneeded collator connected")
	repNotifyGood        = network.BenefitMinor("A collator was noted good by another subsystem")
)

// Subsystem bus messages. The message channel of the ProtocolManager accepts
// exactly these types; everything meaningless on the validator side is warned
// about and dropped.

// CollateOnMsg instructs the collator side to collate on a parachain. Not
// expected here.
type CollateOnMsg struct {
	Para types.ParaID
}

// DistributeCollationMsg distributes a produced collation. Not expected here.
type DistributeCollationMsg struct {
	Receipt types.CandidateReceipt
	PoV     types.PoV
}

// CollationFetchingRequestMsg is an inbound fetching request from a
// validator. Not expected here.
type CollationFetchingRequestMsg struct {
	Peer    network.PeerID
	Request network.CollationFetchingRequest
}

// ReportCollatorMsg reports a collator for malicious actions observed by
// another subsystem.
type ReportCollatorMsg struct {
	CollatorID types.CollatorID
}

// NoteGoodCollationMsg notes a collator as good, bumping the reputation of
// its peer.
type NoteGoodCollationMsg struct {
	CollatorID types.CollatorID
}

// NetworkBridgeUpdateMsg wraps an event delivered by the network bridge.
type NetworkBridgeUpdateMsg struct {
	Event network.Event
}

// SecondedMsg notifies the subsystem that candidate backing seconded the
// candidate fetched for the given relay parent.
type SecondedMsg struct {
	RelayParent common.Hash
	Statement   types.SignedStatement
}

// InvalidMsg notifies the subsystem that candidate backing found the
// candidate fetched for the given relay parent invalid.
type InvalidMsg struct {
	RelayParent common.Hash
	Receipt     types.CandidateReceipt
}

// NetworkBridge is the subsystem's handle to the network layer. All methods
// are message submissions; back-pressure is the bridge's concern.
type NetworkBridge interface {
	// ReportPeer nudges the reputation of a peer.
	ReportPeer(peer network.PeerID, rep network.ReputationChange)

	// DisconnectPeer asks the bridge to drop the peer from the given set.
	DisconnectPeer(peer network.PeerID, set network.PeerSet)

	// SendCollationMessage sends a collation protocol wire message to the
	// given peers.
	SendCollationMessage(peers []network.PeerID, msg interface{})

	// SendRequests dispatches outgoing requests, answering on each request's
	// response channel.
	SendRequests(reqs []*network.OutgoingRequest, policy network.IfDisconnected)
}

// CandidateBacking consumes fetched collations for deeper validation.
type CandidateBacking interface {
	// Second asks candidate backing to second the candidate built on the
	// given relay parent.
	Second(relayParent common.Hash, receipt types.CandidateReceipt, pov types.PoV)
}

// RuntimeAPI answers runtime state queries at a given relay parent.
type RuntimeAPI interface {
	// Validators returns the active validator set.
	Validators(ctx context.Context, relayParent common.Hash) ([]types.ValidatorID, error)

	// ValidatorGroups returns the validator groups and the group rotation
	// info.
	ValidatorGroups(ctx context.Context, relayParent common.Hash) ([][]types.ValidatorIndex, types.GroupRotationInfo, error)

	// AvailabilityCores returns the state of every availability core.
	AvailabilityCores(ctx context.Context, relayParent common.Hash) ([]types.CoreState, error)
}

// Keystore exposes which session keys the node holds.
type Keystore interface {
	// SigningKey returns the first validator of the set whose session key is
	// held by this node, along with its index.
	SigningKey(validators []types.ValidatorID) (types.ValidatorID, types.ValidatorIndex, bool)
}

// findValidatorGroup locates the group containing the given validator index.
func findValidatorGroup(groups [][]types.ValidatorIndex, index types.ValidatorIndex) (types.GroupIndex, bool) {
	for g, group := range groups {
		for _, member := range group {
			if member == index {
				return types.GroupIndex(g), true
			}
		}
	}
	return 0, false
}

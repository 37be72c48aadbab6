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
	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// FetchedEvent is posted when a fetched collation is forwarded to candidate
// backing.
type FetchedEvent struct {
	RelayParent common.Hash
	CollatorID  types.CollatorID
	Receipt     types.CandidateReceipt
}

// SecondedEvent is posted when candidate backing seconded a fetched
// collation and the collator was notified.
type SecondedEvent struct {
	RelayParent common.Hash
	Peer        network.PeerID
	CollatorID  types.CollatorID
}

// InvalidEvent is posted when candidate backing rejected a fetched collation
// as invalid.
type InvalidEvent struct {
	RelayParent common.Hash
	CollatorID  types.CollatorID
}

// SubscribeFetchedEvent subscribes to notifications of collations forwarded
// to candidate backing.
func (pm *ProtocolManager) SubscribeFetchedEvent(ch chan<- FetchedEvent) event.Subscription {
	return pm.scope.Track(pm.fetchedFeed.Subscribe(ch))
}

// SubscribeSecondedEvent subscribes to notifications of seconded collations.
func (pm *ProtocolManager) SubscribeSecondedEvent(ch chan<- SecondedEvent) event.Subscription {
	return pm.scope.Track(pm.secondedFeed.Subscribe(ch))
}

// SubscribeInvalidEvent subscribes to notifications of collations rejected
// by candidate backing.
func (pm *ProtocolManager) SubscribeInvalidEvent(ch chan<- InvalidEvent) event.Subscription {
	return pm.scope.Track(pm.invalidFeed.Subscribe(ch))
}

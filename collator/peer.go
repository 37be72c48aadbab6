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
	"errors"
	"sync"
	"time"

	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
)

var (
	errDuplicateAdvertisement = errors.New("advertisement already known")
	errOutOfView              = errors.New("advertisement out of our view")
	errUndeclaredCollator     = errors.New("peer has not declared")
)

// declareOutcome is the result of a Declare validation.
type declareOutcome int

const (
	declareAccepted declareOutcome = iota
	declareDuplicateCollator
	declareAlreadyCollating
	declareInvalidSignature
	declareUnknownPeer
)

// peerState is the connection-lifecycle state of a collator peer, either
// connectedState or collatingState. The transition connected -> collating is
// one-way for the lifetime of a connection.
type peerState interface {
	// inactive reports whether the peer exceeded its grace period.
	inactive(now time.Time, policy EvictionPolicy) bool
}

// connectedState is a peer that is known to the network but has not declared
// as a collator yet.
type connectedState struct {
	since time.Time
}

func (s *connectedState) inactive(now time.Time, policy EvictionPolicy) bool {
	return s.since.Add(policy.UndeclaredGrace).Before(now)
}

// collatingState is a peer that declared itself a collator for a parachain
// and may advertise collations.
type collatingState struct {
	collatorID     types.CollatorID
	paraID         types.ParaID
	advertisements mapset.Set // of common.Hash
	lastActive     time.Time
}

func (s *collatingState) inactive(now time.Time, policy EvictionPolicy) bool {
	return s.lastActive.Add(policy.InactiveGrace).Before(now)
}

// peerData tracks the view and state of a single peer.
type peerData struct {
	view  network.View
	state peerState
}

func newPeerData() *peerData {
	return &peerData{
		state: &connectedState{since: time.Now()},
	}
}

// updateView replaces the peer's view, dropping advertisements for relay
// parents outside the new view.
func (p *peerData) updateView(view network.View) {
	p.view = view
	if state, ok := p.state.(*collatingState); ok {
		for _, item := range state.advertisements.ToSlice() {
			if hash := item.(common.Hash); !view.Contains(hash) {
				state.advertisements.Remove(hash)
			}
		}
	}
}

// pruneAdvertisements drops advertisements for relay parents outside our
// view.
func (p *peerData) pruneAdvertisements(ourView network.View) {
	state, ok := p.state.(*collatingState)
	if !ok {
		return
	}
	for _, item := range state.advertisements.ToSlice() {
		if hash := item.(common.Hash); !ourView.Contains(hash) {
			state.advertisements.Remove(hash)
		}
	}
}

// insertAdvertisement notes an advertisement by the peer, refreshing its
// activity timestamp. It fails if the peer has not declared, the relay parent
// is outside our view, or the advertisement is a duplicate.
func (p *peerData) insertAdvertisement(relayParent common.Hash, ourView network.View) (types.CollatorID, types.ParaID, error) {
	state, ok := p.state.(*collatingState)
	if !ok {
		return types.CollatorID{}, 0, errUndeclaredCollator
	}
	if !ourView.Contains(relayParent) {
		return types.CollatorID{}, 0, errOutOfView
	}
	if !state.advertisements.Add(relayParent) {
		return types.CollatorID{}, 0, errDuplicateAdvertisement
	}
	state.lastActive = time.Now()
	return state.collatorID, state.paraID, nil
}

// isCollating reports whether the peer has declared.
func (p *peerData) isCollating() bool {
	_, ok := p.state.(*collatingState)
	return ok
}

// setCollating transitions the peer into the collating state. Only valid
// while the peer is merely connected.
func (p *peerData) setCollating(collatorID types.CollatorID, paraID types.ParaID) {
	p.state = &collatingState{
		collatorID:     collatorID,
		paraID:         paraID,
		advertisements: mapset.NewSet(),
		lastActive:     time.Now(),
	}
}

// collatorID returns the declared collator identity, if any.
func (p *peerData) collatorID() (types.CollatorID, bool) {
	if state, ok := p.state.(*collatingState); ok {
		return state.collatorID, true
	}
	return types.CollatorID{}, false
}

// collatingPara returns the parachain the peer collates for, if declared.
func (p *peerData) collatingPara() (types.ParaID, bool) {
	if state, ok := p.state.(*collatingState); ok {
		return state.paraID, true
	}
	return 0, false
}

// hasAdvertised reports whether the peer advertised a collation for the
// relay parent.
func (p *peerData) hasAdvertised(relayParent common.Hash) bool {
	if state, ok := p.state.(*collatingState); ok {
		return state.advertisements.Contains(relayParent)
	}
	return false
}

// isInactive applies the eviction policy to the peer's current state.
func (p *peerData) isInactive(now time.Time, policy EvictionPolicy) bool {
	return p.state.inactive(now, policy)
}

// peerSet tracks all peers of the collation peer set. Cross-peer invariants
// (a collator identity binds to at most one peer) are enforced here, never by
// callers.
type peerSet struct {
	peers map[network.PeerID]*peerData
	lock  sync.RWMutex
}

func newPeerSet() *peerSet {
	return &peerSet{
		peers: make(map[network.PeerID]*peerData),
	}
}

// register inserts a default record for the peer if none exists.
func (ps *peerSet) register(id network.PeerID) *peerData {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	p, ok := ps.peers[id]
	if !ok {
		p = newPeerData()
		ps.peers[id] = p
	}
	return p
}

// unregister drops the peer's record.
func (ps *peerSet) unregister(id network.PeerID) {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	delete(ps.peers, id)
}

// peer retrieves the record of the given peer.
func (ps *peerSet) peer(id network.PeerID) *peerData {
	ps.lock.RLock()
	defer ps.lock.RUnlock()

	return ps.peers[id]
}

// len returns the current number of peers in the set.
func (ps *peerSet) len() int {
	ps.lock.RLock()
	defer ps.lock.RUnlock()

	return len(ps.peers)
}

// each invokes fn for every tracked peer.
func (ps *peerSet) each(fn func(id network.PeerID, p *peerData)) {
	ps.lock.RLock()
	defer ps.lock.RUnlock()

	for id, p := range ps.peers {
		fn(id, p)
	}
}

// collatorPeer finds the peer a collator identity is bound to. Linear scan;
// the peer set is bounded by the bridge's connection cap.
func (ps *peerSet) collatorPeer(id types.CollatorID) (network.PeerID, bool) {
	ps.lock.RLock()
	defer ps.lock.RUnlock()

	for peer, data := range ps.peers {
		if declared, ok := data.collatorID(); ok && declared == id {
			return peer, true
		}
	}
	return network.PeerID{}, false
}

// declare validates a Declare message from the peer and, on success,
// transitions it into the collating state.
func (ps *peerSet) declare(id network.PeerID, collatorID types.CollatorID, paraID types.ParaID, sig []byte) declareOutcome {
	if _, taken := ps.collatorPeer(collatorID); taken {
		return declareDuplicateCollator
	}

	ps.lock.Lock()
	defer ps.lock.Unlock()

	p, ok := ps.peers[id]
	if !ok {
		return declareUnknownPeer
	}
	if p.isCollating() {
		return declareAlreadyCollating
	}
	if !network.VerifyDeclareSignature(collatorID, id, sig) {
		return declareInvalidSignature
	}
	p.setCollating(collatorID, paraID)
	return declareAccepted
}

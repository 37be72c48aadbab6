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
	"sync"
	"time"

	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

const (
	// completionQueueSize is the buffer of the fetch completion channel.
	completionQueueSize = 64

	// disconnectCacheSize bounds the set of peers with an outstanding
	// disconnect request. Entries are cleared when the bridge confirms the
	// disconnect.
	disconnectCacheSize = 512
)

// collationEvent pairs an in-flight or fetched collation with the collator
// that advertised it.
type collationEvent struct {
	collatorID types.CollatorID
	collation  pendingCollation
}

// completedFetch is the outcome of a single collation fetch: the fetched
// collation, or nil if the pool dropped the fetch without a usable collation
// or the requester-side deadline elapsed first.
type completedFetch struct {
	event  collationEvent
	result *fetchedCollation
}

// ProtocolManager runs the validator side of the collator protocol. All
// mutable state is owned by a single event loop; cross-subsystem
// communication happens exclusively through message passing.
type ProtocolManager struct {
	cfg Config

	bridge   NetworkBridge
	backing  CandidateBacking
	runtime  RuntimeAPI
	keystore Keystore

	view  network.View // our own view
	paras *activeParas // paras we accept collators for, based on our view
	peers *peerSet
	pool  *fetchPool

	// At most one fetched collation per relay parent awaits a verdict from
	// candidate backing.
	pendingCandidates map[common.Hash]collationEvent

	spans map[common.Hash]Span

	// Peers with an outstanding disconnect request; metadata is pruned only
	// once PeerDisconnected arrives.
	requestedDisconnects *lru.Cache

	fetchedFeed  event.Feed
	secondedFeed event.Feed
	invalidFeed  event.Feed
	scope        event.SubscriptionScope

	msgCh       chan interface{}
	completions chan completedFetch
	quit        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewProtocolManager creates the validator side of the collator protocol,
// wired to the given network bridge, candidate backing, runtime API and
// keystore.
func NewProtocolManager(cfg Config, bridge NetworkBridge, backing CandidateBacking, runtime RuntimeAPI, keystore Keystore) *ProtocolManager {
	requestedDisconnects, _ := lru.New(disconnectCacheSize)

	pm := &ProtocolManager{
		cfg:                  cfg.sanitize(),
		bridge:               bridge,
		backing:              backing,
		runtime:              runtime,
		keystore:             keystore,
		paras:                newActiveParas(),
		peers:                newPeerSet(),
		pendingCandidates:    make(map[common.Hash]collationEvent),
		spans:                make(map[common.Hash]Span),
		requestedDisconnects: requestedDisconnects,
		msgCh:                make(chan interface{}),
		completions:          make(chan completedFetch, completionQueueSize),
		quit:                 make(chan struct{}),
	}
	pm.ctx, pm.cancel = context.WithCancel(context.Background())
	pm.pool = newFetchPool(pm.cfg.FetchTimeout, pm.reportPeer)
	return pm
}

// Start boots the event loop.
func (pm *ProtocolManager) Start() {
	pm.wg.Add(1)
	go pm.loop()
}

// Stop terminates the event loop and cancels all in-flight fetches.
func (pm *ProtocolManager) Stop() {
	pm.closeOnce.Do(func() {
		close(pm.quit)
		pm.cancel()
	})
	pm.wg.Wait()
	pm.scope.Close()
}

// Send delivers a subsystem bus message to the event loop. It fails only
// after the manager was stopped.
func (pm *ProtocolManager) Send(msg interface{}) error {
	select {
	case pm.msgCh <- msg:
		return nil
	case <-pm.quit:
		return errTerminated
	}
}

// PeerCount returns the number of peers currently tracked on the collation
// peer set.
func (pm *ProtocolManager) PeerCount() int {
	return pm.peers.len()
}

// loop is the main event loop. It multiplexes bus messages, the inactivity
// timer and completed fetches; after every event the in-flight responses are
// swept once without blocking.
func (pm *ProtocolManager) loop() {
	defer pm.wg.Done()

	ticker := time.NewTicker(pm.cfg.ActivityPoll)
	defer ticker.Stop()

	for {
		select {
		case msg := <-pm.msgCh:
			pm.processMsg(msg)

		case <-ticker.C:
			pm.disconnectInactive()

		case done := <-pm.completions:
			pm.handleCompletedFetch(done)

		case <-pm.quit:
			return
		}
		pm.pool.pollOnce()
	}
}

// processMsg is the main bus message switch.
func (pm *ProtocolManager) processMsg(msg interface{}) {
	defer func(start time.Time) {
		processMsgTimer.UpdateSince(start)
	}(time.Now())

	switch m := msg.(type) {
	case CollateOnMsg:
		log.Warn("CollateOn message is not expected on the validator side of the protocol", "para", m.Para)

	case DistributeCollationMsg:
		log.Warn("DistributeCollation message is not expected on the validator side of the protocol")

	case CollationFetchingRequestMsg:
		log.Warn("CollationFetchingRequest message is not expected on the validator side of the protocol", "peer", m.Peer)

	case ReportCollatorMsg:
		pm.reportCollator(m.CollatorID)

	case NoteGoodCollationMsg:
		pm.noteGoodCollation(m.CollatorID)

	case NetworkBridgeUpdateMsg:
		pm.handleNetworkEvent(m.Event)

	case SecondedMsg:
		pm.handleSeconded(m.RelayParent, m.Statement)

	case InvalidMsg:
		pm.handleInvalid(m.RelayParent, m.Receipt)

	default:
		log.Warn("Unknown subsystem message dropped", "msg", msg)
	}
}

// handleNetworkEvent is the network bridge event switch.
func (pm *ProtocolManager) handleNetworkEvent(ev network.Event) {
	switch e := ev.(type) {
	case network.PeerConnected:
		pm.peers.register(e.Peer)
		pm.requestedDisconnects.Remove(e.Peer)
		collatorPeerGauge.Update(int64(pm.peers.len()))

	case network.PeerDisconnected:
		pm.peers.unregister(e.Peer)
		pm.requestedDisconnects.Remove(e.Peer)
		collatorPeerGauge.Update(int64(pm.peers.len()))

	case network.PeerViewChange:
		pm.handlePeerViewChange(e.Peer, e.View)

	case network.OurViewChange:
		pm.handleOurViewChange(e.View)

	case network.PeerMessage:
		pm.handlePeerMessage(e.Peer, e.Message)

	default:
		log.Warn("Unknown network bridge event dropped", "event", ev)
	}
}

// handlePeerViewChange updates the view of a peer and cancels fetches for
// advertisements that fell out of it.
func (pm *ProtocolManager) handlePeerViewChange(peer network.PeerID, view network.View) {
	p := pm.peers.register(peer)
	p.updateView(view)
	pm.pool.dropForPeer(peer, p.hasAdvertised)
}

// handleOurViewChange transitions the subsystem onto a new own view: stale
// fetches, candidates and spans are dropped, assignments for new relay
// parents are computed, and peers collating for paras that are no longer of
// interest are disconnected.
func (pm *ProtocolManager) handleOurViewChange(view network.View) {
	old := pm.view
	pm.view = view

	added := view.Difference(old)
	removed := old.Difference(view)

	for _, hash := range removed {
		pm.pool.dropRelayParent(hash)
		delete(pm.pendingCandidates, hash)
		if span, ok := pm.spans[hash]; ok {
			span.End()
			delete(pm.spans, hash)
		}
	}
	for _, hash := range added {
		pm.spans[hash] = pm.leafSpan(hash, "validator-side")
	}

	pm.paras.assignIncoming(pm.ctx, pm.runtime, pm.keystore, added)
	pm.paras.removeOutgoing(removed)

	pm.peers.each(func(id network.PeerID, p *peerData) {
		p.pruneAdvertisements(pm.view)

		// Peers that have not declared yet are left to the inactivity sweep.
		if para, ok := p.collatingPara(); ok && !pm.paras.isCurrentOrNext(para) {
			pm.disconnectPeer(id)
		}
	})
}

// handlePeerMessage is the collation wire message switch.
func (pm *ProtocolManager) handlePeerMessage(origin network.PeerID, msg interface{}) {
	switch m := msg.(type) {
	case network.Declare:
		pm.handleDeclare(origin, m)

	case network.AdvertiseCollation:
		pm.handleAdvertise(origin, m.RelayParent)

	case network.CollationSeconded:
		log.Warn("Unexpected CollationSeconded message", "peer", origin)

	default:
		log.Warn("Unknown collation protocol message", "peer", origin)
	}
}

// handleDeclare validates a collator declaration and rejects or admits the
// peer based on whether its para is of interest.
func (pm *ProtocolManager) handleDeclare(origin network.PeerID, declare network.Declare) {
	declareInMeter.Mark(1)

	switch pm.peers.declare(origin, declare.CollatorID, declare.ParaID, declare.Signature) {
	case declareAccepted:
		if pm.paras.isCurrentOrNext(declare.ParaID) {
			log.Debug("Declared as collator for current or next para",
				"peer", origin, "collator", declare.CollatorID, "para", declare.ParaID)
		} else {
			log.Debug("Declared as collator for unneeded para",
				"peer", origin, "collator", declare.CollatorID, "para", declare.ParaID)
			pm.reportPeer(origin, repUnneededCollator)
			pm.disconnectPeer(origin)
		}

	case declareInvalidSignature:
		pm.reportPeer(origin, repInvalidSignature)

	default:
		// Duplicate collator identity, redeclaration or unknown peer.
		pm.reportPeer(origin, repUnexpectedMessage)
	}
}

// handleAdvertise imports an advertisement and starts fetching the advertised
// collation.
func (pm *ProtocolManager) handleAdvertise(origin network.PeerID, relayParent common.Hash) {
	advertiseInMeter.Mark(1)

	if !pm.view.Contains(relayParent) {
		log.Debug("Advertise collation out of view", "peer", origin, "hash", relayParent)
		pm.reportPeer(origin, repUnexpectedMessage)
		return
	}
	p := pm.peers.peer(origin)
	if p == nil {
		pm.reportPeer(origin, repUnexpectedMessage)
		return
	}
	collatorID, paraID, err := p.insertAdvertisement(relayParent, pm.view)
	if err != nil {
		log.Debug("Invalid advertisement", "peer", origin, "hash", relayParent, "err", err)
		pm.reportPeer(origin, repUnexpectedMessage)
		return
	}
	log.Debug("Received advertise collation", "peer", origin, "para", paraID, "hash", relayParent)

	pc := pendingCollation{
		relayParent: relayParent,
		paraID:      paraID,
		peerID:      origin,
	}
	reply := make(chan fetchedCollation, 1)

	var span Span = noopSpan{}
	if leaf, ok := pm.spans[relayParent]; ok {
		span = leaf.Child("collation-request")
		span.SetTag("para", paraID.String())
	}
	if req, ok := pm.pool.enqueue(pc, reply, span); ok {
		log.Debug("Requesting collation", "peer", origin, "para", paraID, "hash", relayParent)
		pm.bridge.SendRequests([]*network.OutgoingRequest{req}, network.ImmediateError)
	}

	pm.wg.Add(1)
	go pm.awaitFetch(collationEvent{collatorID: collatorID, collation: pc}, reply)
}

// awaitFetch waits for the reply sink of a fetch or its deadline and hands
// the outcome to the completion queue.
func (pm *ProtocolManager) awaitFetch(ev collationEvent, reply <-chan fetchedCollation) {
	defer pm.wg.Done()

	timeout := time.NewTimer(pm.cfg.FetchTimeout)
	defer timeout.Stop()

	var done completedFetch
	select {
	case fetched, ok := <-reply:
		if ok {
			done = completedFetch{event: ev, result: &fetched}
		} else {
			// The pool dropped the request without a usable collation.
			done = completedFetch{event: ev}
		}
	case <-timeout.C:
		done = completedFetch{event: ev}
	case <-pm.quit:
		return
	}
	select {
	case pm.completions <- done:
	case <-pm.quit:
	}
}

// handleCompletedFetch forwards a fetched collation to candidate backing,
// unless one was already forwarded for the same relay parent: the first
// successful fetch per leaf wins.
func (pm *ProtocolManager) handleCompletedFetch(done completedFetch) {
	relayParent := done.event.collation.relayParent
	if done.result == nil {
		log.Debug("Collation fetching has timed out", "hash", relayParent, "collator", done.event.collatorID)
		return
	}
	if _, ok := pm.pendingCandidates[relayParent]; ok {
		log.Debug("Collation for this relay parent has already been seconded",
			"hash", relayParent, "collator", done.event.collatorID)
		return
	}
	receipt, pov := done.result.receipt, done.result.pov
	commitments := receipt.CommitmentsHash
	done.event.collation.commitmentsHash = &commitments
	pm.pendingCandidates[relayParent] = done.event

	pm.backing.Second(relayParent, receipt, pov)
	pm.fetchedFeed.Send(FetchedEvent{
		RelayParent: relayParent,
		CollatorID:  done.event.collatorID,
		Receipt:     receipt,
	})
}

// handleSeconded notifies the collator of its seconded collation and bumps
// its reputation.
func (pm *ProtocolManager) handleSeconded(relayParent common.Hash, statement types.SignedStatement) {
	ev, ok := pm.pendingCandidates[relayParent]
	if !ok {
		log.Debug("Collation has been seconded, but the relay parent is deactivated", "hash", relayParent)
		return
	}
	delete(pm.pendingCandidates, relayParent)

	pm.noteGoodCollation(ev.collatorID)

	peer := ev.collation.peerID
	pm.bridge.SendCollationMessage([]network.PeerID{peer}, network.CollationSeconded{
		RelayParent: relayParent,
		Statement:   statement,
	})
	pm.reportPeer(peer, repNotifyGood)
	secondedOutMeter.Mark(1)

	pm.secondedFeed.Send(SecondedEvent{
		RelayParent: relayParent,
		Peer:        peer,
		CollatorID:  ev.collatorID,
	})
}

// handleInvalid penalizes the collator of a candidate rejected by backing.
// Verdicts for unknown or hash-mismatched candidates are stale and ignored;
// the first verdict per relay parent wins.
func (pm *ProtocolManager) handleInvalid(relayParent common.Hash, receipt types.CandidateReceipt) {
	ev, ok := pm.pendingCandidates[relayParent]
	if !ok || ev.collation.commitmentsHash == nil || *ev.collation.commitmentsHash != receipt.CommitmentsHash {
		return
	}
	delete(pm.pendingCandidates, relayParent)

	pm.reportCollator(ev.collatorID)
	pm.invalidFeed.Send(InvalidEvent{
		RelayParent: relayParent,
		CollatorID:  ev.collatorID,
	})
}

// disconnectInactive requests disconnection of every peer that exceeded its
// grace period.
func (pm *ProtocolManager) disconnectInactive() {
	now := time.Now()
	pm.peers.each(func(id network.PeerID, p *peerData) {
		if p.isInactive(now, pm.cfg.Eviction) {
			pm.disconnectPeer(id)
		}
	})
}

// disconnectPeer asks the bridge to drop a peer, at most once per
// connection.
func (pm *ProtocolManager) disconnectPeer(id network.PeerID) {
	if pm.requestedDisconnects.Contains(id) {
		return
	}
	pm.requestedDisconnects.Add(id, struct{}{})
	disconnectOutMeter.Mark(1)
	pm.bridge.DisconnectPeer(id, network.CollationPeerSet)
}

// reportCollator penalizes the peer bound to a collator reported by another
// subsystem.
func (pm *ProtocolManager) reportCollator(id types.CollatorID) {
	if peer, ok := pm.peers.collatorPeer(id); ok {
		pm.reportPeer(peer, repReportBad)
	}
}

// noteGoodCollation bumps the reputation of the peer bound to a collator.
func (pm *ProtocolManager) noteGoodCollation(id types.CollatorID) {
	if peer, ok := pm.peers.collatorPeer(id); ok {
		pm.reportPeer(peer, repNotifyGood)
	}
}

func (pm *ProtocolManager) reportPeer(peer network.PeerID, rep network.ReputationChange) {
	pm.bridge.ReportPeer(peer, rep)
}

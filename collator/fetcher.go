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
	"time"

	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// reportFn relays a reputation change for a peer to the network bridge.
type reportFn func(peer network.PeerID, rep network.ReputationChange)

// pendingCollation identifies a single advertised collation. The commitments
// hash is nil while the fetch is outstanding and filled in once the receipt
// arrived.
type pendingCollation struct {
	relayParent     common.Hash
	paraID          types.ParaID
	peerID          network.PeerID
	commitmentsHash *common.Hash
}

// collationKey is the map key of an in-flight fetch.
type collationKey struct {
	relayParent common.Hash
	paraID      types.ParaID
	peerID      network.PeerID
}

func (pc pendingCollation) key() collationKey {
	return collationKey{
		relayParent: pc.relayParent,
		paraID:      pc.paraID,
		peerID:      pc.peerID,
	}
}

// fetchedCollation is a successfully fetched and validated collation,
// delivered on the reply sink of a fetch.
type fetchedCollation struct {
	receipt types.CandidateReceipt
	pov     types.PoV
}

// fetchEntry is a single in-flight collation request. The pool owns the
// response channel and the reply sink exclusively.
type fetchEntry struct {
	response <-chan network.Response
	reply    chan<- fetchedCollation
	span     Span
	deadline time.Time
}

// fetchPool tracks the in-flight collation requests, keyed by relay parent,
// para and peer. At most one request exists per key at any time.
type fetchPool struct {
	entries map[collationKey]*fetchEntry
	timeout time.Duration
	report  reportFn
}

func newFetchPool(timeout time.Duration, report reportFn) *fetchPool {
	return &fetchPool{
		entries: make(map[collationKey]*fetchEntry),
		timeout: timeout,
		report:  report,
	}
}

// enqueue creates an in-flight entry for the advertised collation and
// returns the outbound request the caller routes through the network bridge.
// A duplicate of an existing key is logged and dropped.
func (f *fetchPool) enqueue(pc pendingCollation, reply chan<- fetchedCollation, span Span) (*network.OutgoingRequest, bool) {
	key := pc.key()
	if _, ok := f.entries[key]; ok {
		log.Warn("Collation has already been requested", "peer", pc.peerID, "para", pc.paraID, "hash", pc.relayParent)
		return nil, false
	}

	req := network.NewOutgoingRequest(pc.peerID, network.CollationFetchingRequest{
		RelayParent: pc.relayParent,
		ParaID:      pc.paraID,
	})
	f.entries[key] = &fetchEntry{
		response: req.Response,
		reply:    reply,
		span:     span,
		deadline: time.Now().Add(f.timeout),
	}
	return req, true
}

// dropRelayParent removes all entries built on the given relay parent and
// closes their reply sinks. The underlying transport requests are not
// canceled; a response that still arrives is never read.
func (f *fetchPool) dropRelayParent(relayParent common.Hash) {
	for key, entry := range f.entries {
		if key.relayParent == relayParent {
			f.drop(key, entry)
		}
	}
}

// dropForPeer removes entries of the given peer for which keep returns
// false.
func (f *fetchPool) dropForPeer(peer network.PeerID, keep func(relayParent common.Hash) bool) {
	for key, entry := range f.entries {
		if key.peerID == peer && !keep(key.relayParent) {
			f.drop(key, entry)
		}
	}
}

// drop removes an entry, waking its requester through the closed reply sink.
func (f *fetchPool) drop(key collationKey, entry *fetchEntry) {
	entry.span.End()
	close(entry.reply)
	delete(f.entries, key)
}

// len returns the number of in-flight requests.
func (f *fetchPool) len() int {
	return len(f.entries)
}

// pollOnce sweeps all in-flight entries without blocking. Ready responses
// are classified: transport and protocol failures cost reputation, proper
// collations are forwarded to the entry's reply sink. Handled entries are
// removed.
func (f *fetchPool) pollOnce() {
	now := time.Now()
	for key, entry := range f.entries {
		resp, ready, canceled := pollResponse(entry.response)
		if !ready && now.After(entry.deadline) {
			// The wall-clock deadline elapsed with no answer, equivalent to a
			// transport-level cancellation.
			ready, canceled = true, true
		}
		if !ready {
			continue
		}
		f.handleResponse(key, entry, resp, canceled)
		f.drop(key, entry)
	}
}

// pollResponse does a non-blocking read of a response channel.
func pollResponse(ch <-chan network.Response) (resp network.Response, ready bool, canceled bool) {
	select {
	case resp, ok := <-ch:
		if !ok {
			return network.Response{}, true, true
		}
		return resp, true, false
	default:
		return network.Response{}, false, false
	}
}

// handleResponse classifies a ready response and performs its effects.
func (f *fetchPool) handleResponse(key collationKey, entry *fetchEntry, resp network.Response, canceled bool) {
	defer func(start time.Time) {
		handleResponseTimer.UpdateSince(start)
	}(time.Now())

	succeeded := false
	switch {
	case canceled:
		log.Warn("Collation request timed out", "hash", key.relayParent, "para", key.paraID, "peer", key.peerID)
		f.report(key.peerID, repRequestTimedOut)

	case resp.Err != nil:
		log.Warn("Fetching collation failed due to network error",
			"hash", key.relayParent, "para", key.paraID, "peer", key.peerID, "err", resp.Err)
		f.report(key.peerID, repNetworkError)

	default:
		collation, err := network.DecodeCollationFetchingResponse(resp.Data)
		if err != nil {
			log.Warn("Collator provided response that could not be decoded",
				"hash", key.relayParent, "para", key.paraID, "peer", key.peerID, "err", err)
			f.report(key.peerID, repCorruptedMessage)
			break
		}
		if collation.Receipt.Descriptor.ParaID != key.paraID {
			log.Debug("Got wrong para ID for requested collation",
				"expected", key.paraID, "got", collation.Receipt.Descriptor.ParaID, "peer", key.peerID)
			f.report(key.peerID, repWrongPara)
			break
		}
		log.Debug("Received collation", "para", key.paraID, "hash", key.relayParent,
			"candidate", collation.Receipt.Hash())
		select {
		case entry.reply <- fetchedCollation{receipt: collation.Receipt, pov: collation.PoV}:
			succeeded = true
		default:
			log.Warn("Sending response back to requester failed (receiving side closed)",
				"hash", key.relayParent, "para", key.paraID, "peer", key.peerID)
		}
	}
	if succeeded {
		collationRequestSucceededMeter.Mark(1)
		entry.span.SetTag("success", "true")
	} else {
		collationRequestFailedMeter.Mark(1)
		entry.span.SetTag("success", "false")
	}
}

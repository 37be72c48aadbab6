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
	"testing"
	"time"

	"github.com/Folyd/polkadot/core/types"
	"github.com/Folyd/polkadot/network"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// testTimeout bounds every single expectation in the tests.
	testTimeout = 200 * time.Millisecond

	// activityTimeout is the inactive-collator grace used in tests.
	activityTimeout = 50 * time.Millisecond

	// declareTimeout is the undeclared grace used in tests.
	declareTimeout = 25 * time.Millisecond
)

type reportedPeer struct {
	peer network.PeerID
	rep  network.ReputationChange
}

type disconnectedPeer struct {
	peer network.PeerID
	set  network.PeerSet
}

type sentCollationMessage struct {
	peers []network.PeerID
	msg   interface{}
}

type secondedCall struct {
	relayParent common.Hash
	receipt     types.CandidateReceipt
	pov         types.PoV
}

// testBridge records every outbound network bridge submission.
type testBridge struct {
	reports     chan reportedPeer
	disconnects chan disconnectedPeer
	collations  chan sentCollationMessage
	requests    chan *network.OutgoingRequest
}

func newTestBridge() *testBridge {
	return &testBridge{
		reports:     make(chan reportedPeer, 64),
		disconnects: make(chan disconnectedPeer, 64),
		collations:  make(chan sentCollationMessage, 64),
		requests:    make(chan *network.OutgoingRequest, 64),
	}
}

func (b *testBridge) ReportPeer(peer network.PeerID, rep network.ReputationChange) {
	b.reports <- reportedPeer{peer: peer, rep: rep}
}

func (b *testBridge) DisconnectPeer(peer network.PeerID, set network.PeerSet) {
	b.disconnects <- disconnectedPeer{peer: peer, set: set}
}

func (b *testBridge) SendCollationMessage(peers []network.PeerID, msg interface{}) {
	b.collations <- sentCollationMessage{peers: peers, msg: msg}
}

func (b *testBridge) SendRequests(reqs []*network.OutgoingRequest, policy network.IfDisconnected) {
	for _, req := range reqs {
		b.requests <- req
	}
}

// testBacking records every candidate handed to candidate backing.
type testBacking struct {
	seconded chan secondedCall
}

func newTestBacking() *testBacking {
	return &testBacking{seconded: make(chan secondedCall, 16)}
}

func (b *testBacking) Second(relayParent common.Hash, receipt types.CandidateReceipt, pov types.PoV) {
	b.seconded <- secondedCall{relayParent: relayParent, receipt: receipt, pov: pov}
}

// testRuntime answers runtime queries from fixed state.
type testRuntime struct {
	lock       sync.Mutex
	validators []types.ValidatorID
	groups     [][]types.ValidatorIndex
	rotation   types.GroupRotationInfo
	cores      []types.CoreState
	err        error
}

func (r *testRuntime) Validators(ctx context.Context, relayParent common.Hash) ([]types.ValidatorID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.validators, r.err
}

func (r *testRuntime) ValidatorGroups(ctx context.Context, relayParent common.Hash) ([][]types.ValidatorIndex, types.GroupRotationInfo, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.groups, r.rotation, r.err
}

func (r *testRuntime) AvailabilityCores(ctx context.Context, relayParent common.Hash) ([]types.CoreState, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.cores, r.err
}

func (r *testRuntime) setRotation(rotation types.GroupRotationInfo) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.rotation = rotation
}

// testKeystore holds the session key of a single validator.
type testKeystore struct {
	key types.ValidatorID
}

func (k *testKeystore) SigningKey(validators []types.ValidatorID) (types.ValidatorID, types.ValidatorIndex, bool) {
	for i, v := range validators {
		if v == k.key {
			return v, types.ValidatorIndex(i), true
		}
	}
	return types.ValidatorID{}, 0, false
}

// testEnv wires a ProtocolManager to recording stubs with shortened test
// timings.
type testEnv struct {
	t           *testing.T
	pm          *ProtocolManager
	bridge      *testBridge
	backing     *testBacking
	runtime     *testRuntime
	relayParent common.Hash
	paraIDs     []types.ParaID
	collators   []*network.CollatorKey
}

func newTestEnv(t *testing.T) *testEnv {
	validators := make([]types.ValidatorID, 5)
	for i := range validators {
		validators[i] = types.ValidatorID{byte(i + 1)}
	}
	runtime := &testRuntime{
		validators: validators,
		groups: [][]types.ValidatorIndex{
			{0, 1},
			{2, 3},
			{4},
		},
		rotation: types.GroupRotationInfo{
			SessionStartBlock:      0,
			GroupRotationFrequency: 1,
			Now:                    0,
		},
		cores: []types.CoreState{
			types.ScheduledCore(1),
			types.FreeCore(),
			types.OccupiedCore(2),
		},
	}
	collators := make([]*network.CollatorKey, 4)
	for i := range collators {
		key, err := network.GenerateCollatorKey()
		if err != nil {
			t.Fatalf("failed to generate collator key: %v", err)
		}
		collators[i] = key
	}
	bridge := newTestBridge()
	backing := newTestBacking()

	pm := NewProtocolManager(Config{
		Eviction: EvictionPolicy{
			UndeclaredGrace: declareTimeout,
			InactiveGrace:   activityTimeout,
		},
		ActivityPoll: 10 * time.Millisecond,
	}, bridge, backing, runtime, &testKeystore{key: validators[0]})
	pm.Start()
	t.Cleanup(pm.Stop)

	return &testEnv{
		t:           t,
		pm:          pm,
		bridge:      bridge,
		backing:     backing,
		runtime:     runtime,
		relayParent: common.Hash{0x05, 0x05, 0x05},
		paraIDs:     []types.ParaID{1, 2},
		collators:   collators,
	}
}

func (env *testEnv) send(msg interface{}) {
	env.t.Helper()
	if err := env.pm.Send(msg); err != nil {
		env.t.Fatalf("failed to send message: %v", err)
	}
}

func (env *testEnv) networkEvent(ev network.Event) {
	env.send(NetworkBridgeUpdateMsg{Event: ev})
}

func (env *testEnv) ourViewChange(hashes ...common.Hash) {
	env.networkEvent(network.OurViewChange{View: network.NewView(hashes...)})
}

func (env *testEnv) connect(peer network.PeerID) {
	env.networkEvent(network.PeerConnected{Peer: peer})
}

func (env *testEnv) peerMessage(peer network.PeerID, msg interface{}) {
	env.networkEvent(network.PeerMessage{Peer: peer, Message: msg})
}

func (env *testEnv) declare(peer network.PeerID, key *network.CollatorKey, para types.ParaID) {
	env.t.Helper()
	sig, err := key.SignDeclare(peer)
	if err != nil {
		env.t.Fatalf("failed to sign declare payload: %v", err)
	}
	env.peerMessage(peer, network.Declare{
		CollatorID: key.ID(),
		ParaID:     para,
		Signature:  sig,
	})
}

func (env *testEnv) advertise(peer network.PeerID, relayParent common.Hash) {
	env.peerMessage(peer, network.AdvertiseCollation{RelayParent: relayParent})
}

func (env *testEnv) expectReport(peer network.PeerID, rep network.ReputationChange) {
	env.t.Helper()
	select {
	case got := <-env.bridge.reports:
		if got.peer != peer {
			env.t.Fatalf("reputation change for wrong peer: got %v, want %v", got.peer, peer)
		}
		if got.rep != rep {
			env.t.Fatalf("wrong reputation change: got %v, want %v", got.rep, rep)
		}
	case <-time.After(testTimeout):
		env.t.Fatalf("no ReportPeer(%v) within %v", rep, testTimeout)
	}
}

func (env *testEnv) expectDisconnect(peer network.PeerID) {
	env.t.Helper()
	select {
	case got := <-env.bridge.disconnects:
		if got.peer != peer {
			env.t.Fatalf("disconnect for wrong peer: got %v, want %v", got.peer, peer)
		}
		if got.set != network.CollationPeerSet {
			env.t.Fatalf("disconnect from wrong peer set: got %v", got.set)
		}
	case <-time.After(testTimeout):
		env.t.Fatalf("no DisconnectPeer within %v", testTimeout)
	}
}

func (env *testEnv) expectRequest(relayParent common.Hash, para types.ParaID) *network.OutgoingRequest {
	env.t.Helper()
	select {
	case req := <-env.bridge.requests:
		if req.Request.RelayParent != relayParent {
			env.t.Fatalf("request for wrong relay parent: got %v, want %v", req.Request.RelayParent, relayParent)
		}
		if req.Request.ParaID != para {
			env.t.Fatalf("request for wrong para: got %v, want %v", req.Request.ParaID, para)
		}
		return req
	case <-time.After(testTimeout):
		env.t.Fatalf("no collation request within %v", testTimeout)
		return nil
	}
}

func (env *testEnv) expectSecond() secondedCall {
	env.t.Helper()
	select {
	case call := <-env.backing.seconded:
		return call
	case <-time.After(testTimeout):
		env.t.Fatalf("no Second within %v", testTimeout)
		return secondedCall{}
	}
}

func (env *testEnv) expectNoSecond(wait time.Duration) {
	env.t.Helper()
	select {
	case call := <-env.backing.seconded:
		env.t.Fatalf("unexpected Second for %v", call.relayParent)
	case <-time.After(wait):
	}
}

// respond answers an outgoing collation request with the given collation.
func (env *testEnv) respond(req *network.OutgoingRequest, receipt types.CandidateReceipt, pov types.PoV) {
	env.t.Helper()
	data, err := (&network.CollationFetchingResponse{Receipt: receipt, PoV: pov}).Encode()
	if err != nil {
		env.t.Fatalf("failed to encode response: %v", err)
	}
	req.Response <- network.Response{Data: data}
}

// testReceipt builds a candidate receipt for the given para and relay
// parent, committing to the proof data.
func testReceipt(collator types.CollatorID, para types.ParaID, relayParent common.Hash, pov types.PoV) types.CandidateReceipt {
	commitments := types.CandidateCommitments{HeadData: pov.BlockData}
	return types.CandidateReceipt{
		Descriptor: types.CandidateDescriptor{
			ParaID:      para,
			RelayParent: relayParent,
			Collator:    collator,
			PoVHash:     pov.Hash(),
		},
		CommitmentsHash: commitments.Hash(),
	}
}

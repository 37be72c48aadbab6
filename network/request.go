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
	"github.com/ethereum/go-ethereum/rlp"
)

// IfDisconnected tells the network bridge what to do with a request when the
// recipient is not connected.
type IfDisconnected int

const (
	// TryConnect dials the recipient before sending the request.
	TryConnect IfDisconnected = iota
	// ImmediateError fails the request right away.
	ImmediateError
)

// CollationFetchingRequest asks a collator for its collation on the given
// relay parent.
type CollationFetchingRequest struct {
	RelayParent common.Hash
	ParaID      types.ParaID
}

// CollationFetchingResponse is the payload a collator answers a fetching
// request with.
type CollationFetchingResponse struct {
	Receipt types.CandidateReceipt
	PoV     types.PoV
}

// Encode returns the RLP encoding of the response.
func (r *CollationFetchingResponse) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(r)
}

// DecodeCollationFetchingResponse decodes a raw response payload.
func DecodeCollationFetchingResponse(data []byte) (*CollationFetchingResponse, error) {
	resp := new(CollationFetchingResponse)
	if err := rlp.DecodeBytes(data, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Response is a single answer delivered by the network bridge on the response
// channel of an outgoing request. Err carries transport-level failures; a
// closed channel means the request was canceled before any answer arrived.
type Response struct {
	Data []byte
	Err  error
}

// OutgoingRequest is a collation fetching request routed to a specific peer.
// The bridge delivers exactly one Response on the Response channel, or closes
// it if the request is canceled.
type OutgoingRequest struct {
	Peer     PeerID
	Request  CollationFetchingRequest
	Response chan Response
}

// NewOutgoingRequest creates a request to the given peer with a fresh
// response channel.
func NewOutgoingRequest(peer PeerID, req CollationFetchingRequest) *OutgoingRequest {
	return &OutgoingRequest{
		Peer:     peer,
		Request:  req,
		Response: make(chan Response, 1),
	}
}

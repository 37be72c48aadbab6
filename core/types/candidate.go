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

// Package types contains the relay-chain and parachain primitives shared by
// the collator protocol subsystems.
package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// ParaID is the numeric identifier of a parachain.
type ParaID uint32

func (p ParaID) String() string {
	return fmt.Sprintf("%d", uint32(p))
}

// CollatorIDLength is the byte length of a collator public key (compressed
// secp256k1).
const CollatorIDLength = 33

// CollatorID is the public key a collator identifies itself with. It is
// untrusted until a Declare signature binding it to a peer has been verified.
type CollatorID [CollatorIDLength]byte

// BytesToCollatorID converts b to a CollatorID, left-truncating if necessary.
func BytesToCollatorID(b []byte) CollatorID {
	var id CollatorID
	if len(b) > len(id) {
		b = b[len(b)-CollatorIDLength:]
	}
	copy(id[CollatorIDLength-len(b):], b)
	return id
}

// Bytes returns the raw bytes of the collator public key.
func (c CollatorID) Bytes() []byte { return c[:] }

func (c CollatorID) String() string {
	return hexutil.Encode(c[:])
}

// TerminalString implements log.TerminalStringer, formatting a string for
// console output during logging.
func (c CollatorID) TerminalString() string {
	return fmt.Sprintf("%x…%x", c[:3], c[30:])
}

// PoV is the proof-of-validity data blob accompanying a candidate. It is
// opaque to the collator protocol and forwarded to candidate backing as-is.
type PoV struct {
	BlockData []byte
}

// Hash returns the blake2b-256 digest of the proof data.
func (p *PoV) Hash() common.Hash {
	return common.Hash(blake2b.Sum256(p.BlockData))
}

// CandidateDescriptor is the unique descriptor of a candidate receipt.
type CandidateDescriptor struct {
	// The parachain this candidate belongs to.
	ParaID ParaID
	// The relay-chain block the candidate is built against.
	RelayParent common.Hash
	// The collator that produced the candidate.
	Collator CollatorID
	// Hash of the accompanying proof-of-validity blob.
	PoVHash common.Hash
}

// CandidateCommitments are the outputs of candidate execution that the
// receipt commits to.
type CandidateCommitments struct {
	HeadData                  []byte
	ProcessedDownwardMessages uint32
	HrmpWatermark             uint32
}

// Hash returns the blake2b-256 digest of the RLP encoding of the commitments.
func (c *CandidateCommitments) Hash() common.Hash {
	return rlpHash(c)
}

// CandidateReceipt is a receipt for a parachain candidate: the descriptor
// together with the hash of the commitments.
type CandidateReceipt struct {
	Descriptor      CandidateDescriptor
	CommitmentsHash common.Hash
}

// Hash returns the blake2b-256 digest of the RLP encoding of the receipt.
func (r *CandidateReceipt) Hash() common.Hash {
	return rlpHash(r)
}

// SignedStatement is a validator's signed statement about a candidate, as
// relayed back to the collator after seconding.
type SignedStatement struct {
	CandidateHash  common.Hash
	ValidatorIndex ValidatorIndex
	Signature      []byte
}

func rlpHash(x interface{}) common.Hash {
	var buf bytes.Buffer
	// Encoding only fails for unsupported types, which the callers never are.
	rlp.Encode(&buf, x)
	return common.Hash(blake2b.Sum256(buf.Bytes()))
}

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
	"crypto/ecdsa"

	"github.com/Folyd/polkadot/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// declareDomain is appended to the peer identity before hashing, binding
// Declare signatures to the collation protocol.
var declareDomain = []byte("COLL")

// DeclareSignaturePayload returns the digest a collator must sign when
// declaring to the given peer-identified connection. Binding the peer
// identity into the payload prevents a declaration from being replayed by
// another peer.
func DeclareSignaturePayload(peer PeerID) []byte {
	payload := make([]byte, 0, len(peer)+len(declareDomain))
	payload = append(payload, peer[:]...)
	payload = append(payload, declareDomain...)
	digest := blake2b.Sum256(payload)
	return digest[:]
}

// VerifyDeclareSignature checks that sig is a valid collator signature over
// the declare payload of the given peer.
func VerifyDeclareSignature(collator types.CollatorID, peer PeerID, sig []byte) bool {
	if len(sig) < crypto.SignatureLength-1 {
		return false
	}
	return crypto.VerifySignature(collator.Bytes(), DeclareSignaturePayload(peer), sig[:64])
}

// CollatorKey is a collator's secp256k1 signing key.
type CollatorKey struct {
	priv *ecdsa.PrivateKey
}

// GenerateCollatorKey creates a fresh collator signing key.
func GenerateCollatorKey() (*CollatorKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &CollatorKey{priv: priv}, nil
}

// ID returns the public collator identity of the key.
func (k *CollatorKey) ID() types.CollatorID {
	return types.BytesToCollatorID(crypto.CompressPubkey(&k.priv.PublicKey))
}

// SignDeclare signs the declare payload binding the key to the given peer.
func (k *CollatorKey) SignDeclare(peer PeerID) ([]byte, error) {
	return crypto.Sign(DeclareSignaturePayload(peer), k.priv)
}

// Sign signs an arbitrary 32-byte digest with the collator key.
func (k *CollatorKey) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, k.priv)
}

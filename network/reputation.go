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

import "fmt"

// Reputation change magnitudes. The network layer clamps the accumulated
// per-peer value; a peer reaching the banning threshold is disconnected by
// the bridge.
const (
	costMinorValue     = -100_000
	costMaliciousValue = -1 << 30
	benefitMinorValue  = 100_000
)

// ReputationChange is a signed reputation delta together with the reason it
// was applied, relayed to the network bridge via ReportPeer.
type ReputationChange struct {
	Value  int32
	Reason string
}

// CostMinor returns a small reputation penalty.
func CostMinor(reason string) ReputationChange {
	return ReputationChange{Value: costMinorValue, Reason: reason}
}

// Malicious returns a reputation penalty for provably malicious behaviour.
func Malicious(reason string) ReputationChange {
	return ReputationChange{Value: costMaliciousValue, Reason: reason}
}

// BenefitMinor returns a small reputation benefit.
func BenefitMinor(reason string) ReputationChange {
	return ReputationChange{Value: benefitMinorValue, Reason: reason}
}

func (r ReputationChange) String() string {
	return fmt.Sprintf("%s (%d)", r.Reason, r.Value)
}

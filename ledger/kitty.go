// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
)

const DnaSize = 16

// KittyIndex identifies a kitty. Indexes are assigned sequentially by the chain
type KittyIndex = uint32

// Balance is an amount of the chain's native currency
type Balance = uint64

// Dna is the raw payload of a kitty record
type Dna [DnaSize]byte

// NewDnaFromBytes returns a Dna from a byte slice of exactly DnaSize bytes
func NewDnaFromBytes(data []byte) (Dna, error) {
	var d Dna
	if len(data) != DnaSize {
		return d, fmt.Errorf(
			"invalid DNA length: expected %d bytes, got %d",
			DnaSize,
			len(data),
		)
	}
	copy(d[:], data)
	return d, nil
}

// NewDnaFromHex returns a Dna from its hex representation
func NewDnaFromHex(hexData string) (Dna, error) {
	data, err := hex.DecodeString(hexData)
	if err != nil {
		return Dna{}, fmt.Errorf("invalid DNA hex: %w", err)
	}
	return NewDnaFromBytes(data)
}

func (d Dna) Bytes() []byte {
	return d[:]
}

func (d Dna) String() string {
	return hex.EncodeToString(d[:])
}

// Combine mixes two DNAs bytewise using a selector. Bits set in the selector come from d,
// the rest from other
func (d Dna) Combine(other Dna, selector Dna) Dna {
	var ret Dna
	for i := range ret {
		ret[i] = (selector[i] & d[i]) | (^selector[i] & other[i])
	}
	return ret
}

func (d Dna) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(d[:])
}

func (d *Dna) UnmarshalCBOR(data []byte) error {
	var tmp []byte
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	tmpDna, err := NewDnaFromBytes(tmp)
	if err != nil {
		return err
	}
	*d = tmpDna
	return nil
}

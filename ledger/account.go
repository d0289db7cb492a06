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
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	AccountIdSize = 32

	// SS58 address format prefix for generic substrate-style chains
	SS58PrefixGeneric uint8 = 42

	ss58ChecksumSize = 2
	// Prefixes from this value on take two bytes
	ss58TwoBytePrefix = 64
)

var ss58ChecksumPrefix = []byte("SS58PRE")

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidChecksum = errors.New("invalid address checksum")
)

// AccountId is the 32-byte public key identifying an account
type AccountId [AccountIdSize]byte

// NewAccountIdFromBytes returns an AccountId from a byte slice of exactly AccountIdSize
// bytes
func NewAccountIdFromBytes(data []byte) (AccountId, error) {
	var a AccountId
	if len(data) != AccountIdSize {
		return a, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidAddress,
			AccountIdSize,
			len(data),
		)
	}
	copy(a[:], data)
	return a, nil
}

// NewAccountIdFromSS58 decodes an SS58 address string with the generic prefix
func NewAccountIdFromSS58(addr string) (AccountId, error) {
	return NewAccountIdFromSS58WithPrefix(addr, SS58PrefixGeneric)
}

// NewAccountIdFromSS58WithPrefix decodes an SS58 address string and checks that it uses
// the provided network prefix
func NewAccountIdFromSS58WithPrefix(addr string, prefix uint8) (AccountId, error) {
	decoded := base58.Decode(addr)
	if len(decoded) == 0 {
		return AccountId{}, fmt.Errorf("%w: empty or malformed address", ErrInvalidAddress)
	}
	prefixLen := 1
	decodedPrefix := uint16(decoded[0])
	if decoded[0]&0x40 != 0 {
		if len(decoded) < 2 {
			return AccountId{}, fmt.Errorf("%w: truncated prefix", ErrInvalidAddress)
		}
		prefixLen = 2
		lower := decoded[0]<<2 | decoded[1]>>6
		upper := decoded[1] & 0x3f
		decodedPrefix = uint16(lower) | uint16(upper)<<8
	}
	if len(decoded) != prefixLen+AccountIdSize+ss58ChecksumSize {
		return AccountId{}, fmt.Errorf(
			"%w: unexpected decoded length %d",
			ErrInvalidAddress,
			len(decoded),
		)
	}
	if decodedPrefix != uint16(prefix) {
		return AccountId{}, fmt.Errorf(
			"%w: network prefix %d does not match expected %d",
			ErrInvalidAddress,
			decodedPrefix,
			prefix,
		)
	}
	payload := decoded[:prefixLen+AccountIdSize]
	checksum := ss58Checksum(payload)
	if !bytes.Equal(checksum, decoded[prefixLen+AccountIdSize:]) {
		return AccountId{}, ErrInvalidChecksum
	}
	return NewAccountIdFromBytes(payload[prefixLen:])
}

// ss58PrefixBytes encodes a network prefix. Prefixes below 64 are a single byte, the
// rest use the two-byte form with bit 6 of the first byte set
func ss58PrefixBytes(prefix uint8) []byte {
	if prefix < ss58TwoBytePrefix {
		return []byte{prefix}
	}
	return []byte{
		(prefix&0xfc)>>2 | 0x40,
		(prefix & 0x03) << 6,
	}
}

func ss58Checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58ChecksumPrefix)
	h.Write(payload)
	return h.Sum(nil)[:ss58ChecksumSize]
}

func (a AccountId) Bytes() []byte {
	return a[:]
}

// SS58 returns the SS58 address for the account using the provided network prefix
func (a AccountId) SS58(prefix uint8) string {
	payload := make([]byte, 0, 2+AccountIdSize+ss58ChecksumSize)
	payload = append(payload, ss58PrefixBytes(prefix)...)
	payload = append(payload, a[:]...)
	payload = append(payload, ss58Checksum(payload)...)
	return base58.Encode(payload)
}

// String returns the SS58 address for the account using the generic prefix
func (a AccountId) String() string {
	return a.SS58(SS58PrefixGeneric)
}

// Hex returns the hex representation of the raw public key
func (a AccountId) Hex() string {
	return hex.EncodeToString(a[:])
}

// Validate checks that the account ID is a valid ed25519 public key
func (a AccountId) Validate() error {
	if _, err := new(edwards25519.Point).SetBytes(a[:]); err != nil {
		return fmt.Errorf("%w: not a valid public key: %w", ErrInvalidAddress, err)
	}
	return nil
}

func (a AccountId) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(a[:])
}

func (a *AccountId) UnmarshalCBOR(data []byte) error {
	var tmp []byte
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	tmpAccount, err := NewAccountIdFromBytes(tmp)
	if err != nil {
		return err
	}
	*a = tmpAccount
	return nil
}

func (a AccountId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

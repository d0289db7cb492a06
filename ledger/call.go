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
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
	"golang.org/x/crypto/blake2b"
)

// Pallet and callable names of the kitties runtime module
const (
	PalletKitties = "kittiesModule"

	CallableCreate   = "create"
	CallableBreed    = "breed"
	CallableTransfer = "transfer"
	CallableAsk      = "ask"
	CallableBuy      = "buy"
)

// Blake2b256 is a 32-byte blake2b hash
type Blake2b256 [blake2b.Size256]byte

func (h Blake2b256) String() string {
	return hex.EncodeToString(h[:])
}

// Call is a dispatchable call into a runtime pallet. Args holds the CBOR encoded argument
// list
type Call struct {
	cbor.StructAsArray
	Pallet   string
	Callable string
	Args     cbor.RawMessage
}

// NewCall returns a Call with the provided arguments encoded as a CBOR list
func NewCall(pallet string, callable string, args ...any) (Call, error) {
	if args == nil {
		args = []any{}
	}
	argsCbor, err := cbor.Encode(args)
	if err != nil {
		return Call{}, fmt.Errorf("encode call arguments: %w", err)
	}
	return Call{
		Pallet:   pallet,
		Callable: callable,
		Args:     argsCbor,
	}, nil
}

// DecodeArgs decodes the argument list into dest, which is usually a pointer to one of the
// *Args types
func (c Call) DecodeArgs(dest any) error {
	if _, err := cbor.Decode(c.Args, dest); err != nil {
		return fmt.Errorf(
			"decode arguments for %s.%s: %w",
			c.Pallet,
			c.Callable,
			err,
		)
	}
	return nil
}

func (c Call) String() string {
	return c.Pallet + "." + c.Callable
}

// BreedArgs are the arguments of kittiesModule.breed
type BreedArgs struct {
	cbor.StructAsArray
	KittyId1 KittyIndex
	KittyId2 KittyIndex
}

// TransferArgs are the arguments of kittiesModule.transfer
type TransferArgs struct {
	cbor.StructAsArray
	To      AccountId
	KittyId KittyIndex
}

// AskArgs are the arguments of kittiesModule.ask. An empty price removes the kitty from
// sale
type AskArgs struct {
	cbor.StructAsArray
	KittyId KittyIndex
	Price   Option[Balance]
}

// BuyArgs are the arguments of kittiesModule.buy
type BuyArgs struct {
	cbor.StructAsArray
	KittyId KittyIndex
	Price   Balance
}

// SignedCall is a Call signed by the account submitting it
type SignedCall struct {
	cbor.StructAsArray
	Call      Call
	Signer    AccountId
	Nonce     uint64
	Signature []byte
}

// SigningPayload returns the bytes an account signs to authorize a call
func SigningPayload(call Call, signer AccountId, nonce uint64) ([]byte, error) {
	data, err := cbor.Encode([]any{call, signer, nonce})
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)
	return sum[:], nil
}

// Verify checks the signature against the signer's public key
func (s SignedCall) Verify() error {
	if len(s.Signature) != ed25519.SignatureSize {
		return fmt.Errorf(
			"%w: unexpected signature length %d",
			ErrBadSignature,
			len(s.Signature),
		)
	}
	payload, err := SigningPayload(s.Call, s.Signer, s.Nonce)
	if err != nil {
		return err
	}
	if !ed25519.Verify(s.Signer[:], payload, s.Signature) {
		return ErrBadSignature
	}
	return nil
}

// Hash returns the blake2b-256 hash of the encoded signed call
func (s SignedCall) Hash() (Blake2b256, error) {
	data, err := cbor.Encode(s)
	if err != nil {
		return Blake2b256{}, err
	}
	return blake2b.Sum256(data), nil
}

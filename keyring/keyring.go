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

// Package keyring holds the ed25519 key pairs used to sign calls submitted to the chain
package keyring

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/blinklabs-io/gokitties/ledger"
	"golang.org/x/crypto/blake2b"
)

// Names of the well-known development accounts
var DevAccountNames = []string{
	"Alice",
	"Bob",
	"Charlie",
	"Dave",
	"Eve",
	"Ferdie",
}

var ErrKeyNotFound = errors.New("key not found")

// KeyPair is an ed25519 key pair with an optional display name
type KeyPair struct {
	Name       string
	publicKey  ledger.AccountId
	privateKey ed25519.PrivateKey
}

// NewKeyPairFromSeed returns a key pair derived from a 32-byte seed
func NewKeyPairFromSeed(name string, seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"invalid seed length: expected %d bytes, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey, err := ledger.NewAccountIdFromBytes(
		privateKey.Public().(ed25519.PublicKey),
	)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Name:       name,
		publicKey:  publicKey,
		privateKey: privateKey,
	}, nil
}

// NewKeyPairFromURI returns a key pair derived from a secret URI. URIs of the form "//Name"
// derive the seed by hashing the URI, which is how the development accounts are created
func NewKeyPairFromURI(uri string) (*KeyPair, error) {
	name, ok := strings.CutPrefix(uri, "//")
	if !ok || name == "" {
		return nil, fmt.Errorf("unsupported secret URI: %q", uri)
	}
	seed := blake2b.Sum256([]byte(uri))
	return NewKeyPairFromSeed(name, seed[:])
}

// AccountId returns the public key of the pair
func (k *KeyPair) AccountId() ledger.AccountId {
	return k.publicKey
}

// Address returns the SS58 address of the pair
func (k *KeyPair) Address() string {
	return k.publicKey.String()
}

// Sign signs the provided message
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.privateKey, msg)
}

// SignCall signs a call with the provided nonce
func (k *KeyPair) SignCall(call ledger.Call, nonce uint64) (ledger.SignedCall, error) {
	payload, err := ledger.SigningPayload(call, k.publicKey, nonce)
	if err != nil {
		return ledger.SignedCall{}, err
	}
	return ledger.SignedCall{
		Call:      call,
		Signer:    k.publicKey,
		Nonce:     nonce,
		Signature: k.Sign(payload),
	}, nil
}

// Keyring is a set of key pairs, which can be looked up by name or address
type Keyring struct {
	mutex sync.RWMutex
	pairs []*KeyPair
}

// New returns an empty Keyring
func New() *Keyring {
	return &Keyring{}
}

// NewDevKeyring returns a Keyring populated with the development accounts
func NewDevKeyring() *Keyring {
	k := New()
	for _, name := range DevAccountNames {
		pair, err := NewKeyPairFromURI("//" + name)
		if err != nil {
			// Dev URIs are always well formed
			panic(fmt.Sprintf("unexpected error deriving dev account: %s", err))
		}
		k.Add(pair)
	}
	return k
}

// Add adds a key pair. A pair with the same public key replaces the existing one
func (k *Keyring) Add(pair *KeyPair) {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	for i, existing := range k.pairs {
		if existing.publicKey == pair.publicKey {
			k.pairs[i] = pair
			return
		}
	}
	k.pairs = append(k.pairs, pair)
}

// Get returns the key pair matching a name (case insensitive) or SS58 address
func (k *Keyring) Get(nameOrAddress string) (*KeyPair, error) {
	k.mutex.RLock()
	defer k.mutex.RUnlock()
	for _, pair := range k.pairs {
		if strings.EqualFold(pair.Name, nameOrAddress) {
			return pair, nil
		}
	}
	if account, err := ledger.NewAccountIdFromSS58(nameOrAddress); err == nil {
		for _, pair := range k.pairs {
			if pair.publicKey == account {
				return pair, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, nameOrAddress)
}

// Pairs returns all key pairs in the order they were added
func (k *Keyring) Pairs() []*KeyPair {
	k.mutex.RLock()
	defer k.mutex.RUnlock()
	return slices.Clone(k.pairs)
}

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

package keyring_test

import (
	"testing"

	"github.com/blinklabs-io/gokitties/keyring"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevKeyring(t *testing.T) {
	k := keyring.NewDevKeyring()
	pairs := k.Pairs()
	require.Len(t, pairs, len(keyring.DevAccountNames))
	seen := make(map[ledger.AccountId]bool)
	for i, pair := range pairs {
		assert.Equal(t, keyring.DevAccountNames[i], pair.Name)
		require.NoError(t, pair.AccountId().Validate())
		assert.False(t, seen[pair.AccountId()], "duplicate dev account")
		seen[pair.AccountId()] = true
	}
	// Derivation is deterministic
	again := keyring.NewDevKeyring().Pairs()
	assert.Equal(t, pairs[0].AccountId(), again[0].AccountId())
}

func TestKeyringGet(t *testing.T) {
	k := keyring.NewDevKeyring()
	alice, err := k.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Name)
	byAddress, err := k.Get(alice.Address())
	require.NoError(t, err)
	assert.Same(t, alice, byAddress)
	_, err = k.Get("Mallory")
	require.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestKeyPairFromURI(t *testing.T) {
	_, err := keyring.NewKeyPairFromURI("Alice")
	require.Error(t, err)
	_, err = keyring.NewKeyPairFromURI("//")
	require.Error(t, err)
	_, err = keyring.NewKeyPairFromSeed("short", []byte{1, 2, 3})
	require.Error(t, err)
}

func TestSignCall(t *testing.T) {
	k := keyring.NewDevKeyring()
	bob, err := k.Get("Bob")
	require.NoError(t, err)
	call, err := ledger.NewCall(ledger.PalletKitties, ledger.CallableCreate)
	require.NoError(t, err)
	signed, err := bob.SignCall(call, 1)
	require.NoError(t, err)
	assert.Equal(t, bob.AccountId(), signed.Signer)
	require.NoError(t, signed.Verify())
	// A signature from another account doesn't verify
	alice, err := k.Get("Alice")
	require.NoError(t, err)
	signed.Signer = alice.AccountId()
	require.ErrorIs(t, signed.Verify(), ledger.ErrBadSignature)
}

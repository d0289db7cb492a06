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

package main

import (
	"testing"

	"github.com/blinklabs-io/gokitties/keyring"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	devKeyring := keyring.NewDevKeyring()
	bob, err := devKeyring.Get("Bob")
	require.NoError(t, err)
	testDefs := []struct {
		name     string
		args     []string
		callable string
		expected []any
	}{
		{name: "create", callable: ledger.CallableCreate, expected: []any{}},
		{
			name:     "breed",
			args:     []string{"1", "2"},
			callable: ledger.CallableBreed,
			expected: []any{ledger.KittyIndex(1), ledger.KittyIndex(2)},
		},
		{
			name:     "transfer",
			args:     []string{"bob", "3"},
			callable: ledger.CallableTransfer,
			expected: []any{bob.AccountId(), ledger.KittyIndex(3)},
		},
		{
			name:     "transfer",
			args:     []string{bob.Address(), "3"},
			callable: ledger.CallableTransfer,
			expected: []any{bob.AccountId(), ledger.KittyIndex(3)},
		},
		{
			name:     "ask",
			args:     []string{"1", "10"},
			callable: ledger.CallableAsk,
			expected: []any{ledger.KittyIndex(1), ledger.Some[ledger.Balance](10)},
		},
		{
			name:     "ask",
			args:     []string{"1"},
			callable: ledger.CallableAsk,
			expected: []any{ledger.KittyIndex(1), ledger.None[ledger.Balance]()},
		},
		{
			name:     "buy",
			args:     []string{"1", "10"},
			callable: ledger.CallableBuy,
			expected: []any{ledger.KittyIndex(1), ledger.Balance(10)},
		},
	}
	for _, test := range testDefs {
		req, err := buildRequest(test.name, test.args, devKeyring)
		require.NoError(t, err, "%s %v", test.name, test.args)
		assert.Equal(t, ledger.PalletKitties, req.Pallet)
		assert.Equal(t, test.callable, req.Callable)
		assert.Equal(t, test.expected, req.Args)
	}
}

func TestBuildRequestErrors(t *testing.T) {
	devKeyring := keyring.NewDevKeyring()
	testDefs := []struct {
		name string
		args []string
	}{
		{name: "breed", args: []string{"1"}},
		{name: "breed", args: []string{"1", "x"}},
		{name: "transfer", args: []string{"mallory", "1"}},
		{name: "ask", args: []string{}},
		{name: "ask", args: []string{"1", "-5"}},
		{name: "buy", args: []string{"1"}},
		{name: "buy", args: []string{"99999999999", "1"}},
		{name: "mint"},
	}
	for _, test := range testDefs {
		_, err := buildRequest(test.name, test.args, devKeyring)
		assert.Error(t, err, "%s %v", test.name, test.args)
	}
}

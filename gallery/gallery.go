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

// Package gallery assembles the kitty list shown to users. The Orchestrator keeps the
// kitty count, the kitty DNA and the kitty owners in sync with a DataSource, and the
// Reconciler joins them into one record per kitty index.
package gallery

import (
	"context"

	"github.com/blinklabs-io/gokitties/ledger"
)

// DataSource is the node the kitty data is read from
type DataSource interface {
	// Count returns the number of kitty indexes in use
	Count(ctx context.Context) (uint32, error)
	// BatchGet returns the DNA of each kitty, in the order of ids
	BatchGet(ctx context.Context, ids []ledger.KittyIndex) ([]ledger.Option[ledger.Dna], error)
	// BatchGetOwner returns the owner of each kitty, in the order of ids
	BatchGetOwner(ctx context.Context, ids []ledger.KittyIndex) ([]ledger.Option[ledger.AccountId], error)
}

// Submitter submits signed calls to the node
type Submitter interface {
	SubmitCall(ctx context.Context, signedCall ledger.SignedCall) (ledger.Blake2b256, error)
}

// Signer signs calls on behalf of an account
type Signer interface {
	AccountId() ledger.AccountId
	SignCall(call ledger.Call, nonce uint64) (ledger.SignedCall, error)
}

// Record is one entry of the kitty list. Payload and Owner are empty when the node has no
// data for the index
type Record struct {
	ID      ledger.KittyIndex
	Payload ledger.Option[ledger.Dna]
	Owner   ledger.Option[string]
}

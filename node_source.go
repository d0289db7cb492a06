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

package kitties

import (
	"context"
	"errors"

	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/ledger"
)

var (
	ErrNotConnected              = errors.New("connection not established")
	ErrCallSubmissionUnsupported = errors.New(
		"call submission is not supported by the negotiated protocol version",
	)
)

var (
	_ gallery.DataSource = (*NodeSource)(nil)
	_ gallery.Submitter  = (*NodeSource)(nil)
)

// NodeSource reads kitties from and submits calls to a node over a Connection
type NodeSource struct {
	conn *Connection
}

// NewNodeSource returns a NodeSource for an established connection
func NewNodeSource(conn *Connection) *NodeSource {
	return &NodeSource{
		conn: conn,
	}
}

// Connection returns the underlying connection
func (s *NodeSource) Connection() *Connection {
	return s.conn
}

// Count returns the number of kitty indexes in use
func (s *NodeSource) Count(ctx context.Context) (uint32, error) {
	if err := s.checkQuery(); err != nil {
		return 0, err
	}
	return s.conn.KittyQuery().Client.Count(ctx)
}

// BatchGet returns the DNA of each kitty, in the order of ids
func (s *NodeSource) BatchGet(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Dna], error) {
	if err := s.checkQuery(); err != nil {
		return nil, err
	}
	return s.conn.KittyQuery().Client.GetKitties(ctx, ids)
}

// BatchGetOwner returns the owner of each kitty, in the order of ids
func (s *NodeSource) BatchGetOwner(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.AccountId], error) {
	if err := s.checkQuery(); err != nil {
		return nil, err
	}
	return s.conn.KittyQuery().Client.GetOwners(ctx, ids)
}

// BatchGetPrice returns the asking price of each kitty, in the order of ids. It requires
// protocol version 2 or later
func (s *NodeSource) BatchGetPrice(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Balance], error) {
	if err := s.checkQuery(); err != nil {
		return nil, err
	}
	return s.conn.KittyQuery().Client.GetPrices(ctx, ids)
}

// SubmitCall submits a signed call and returns its hash once the node accepts it
func (s *NodeSource) SubmitCall(
	ctx context.Context,
	signedCall ledger.SignedCall,
) (ledger.Blake2b256, error) {
	if s.conn == nil {
		return ledger.Blake2b256{}, ErrNotConnected
	}
	callSubmission := s.conn.CallSubmission()
	if callSubmission == nil || callSubmission.Client == nil {
		return ledger.Blake2b256{}, ErrCallSubmissionUnsupported
	}
	return callSubmission.Client.SubmitCall(ctx, signedCall)
}

func (s *NodeSource) checkQuery() error {
	if s.conn == nil {
		return ErrNotConnected
	}
	kittyQuery := s.conn.KittyQuery()
	if kittyQuery == nil || kittyQuery.Client == nil {
		return ErrNotConnected
	}
	return nil
}

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
	"fmt"
)

// Event is emitted by the chain when a call changes kitty state
type Event interface {
	fmt.Stringer
	EventName() string
}

// EventCreated is emitted when a kitty is created or bred
type EventCreated struct {
	Owner   AccountId
	KittyId KittyIndex
	Dna     Dna
}

func (EventCreated) EventName() string { return "Created" }

func (e EventCreated) String() string {
	return fmt.Sprintf("Created(owner=%s, kitty=%d, dna=%s)", e.Owner, e.KittyId, e.Dna)
}

// EventTransferred is emitted when a kitty changes owner without a sale
type EventTransferred struct {
	From    AccountId
	To      AccountId
	KittyId KittyIndex
}

func (EventTransferred) EventName() string { return "Transferred" }

func (e EventTransferred) String() string {
	return fmt.Sprintf("Transferred(from=%s, to=%s, kitty=%d)", e.From, e.To, e.KittyId)
}

// EventAsk is emitted when an owner sets or clears the asking price of a kitty
type EventAsk struct {
	Owner   AccountId
	KittyId KittyIndex
	Price   Option[Balance]
}

func (EventAsk) EventName() string { return "Ask" }

func (e EventAsk) String() string {
	if price, ok := e.Price.Get(); ok {
		return fmt.Sprintf("Ask(owner=%s, kitty=%d, price=%d)", e.Owner, e.KittyId, price)
	}
	return fmt.Sprintf("Ask(owner=%s, kitty=%d, price=none)", e.Owner, e.KittyId)
}

// EventSold is emitted when a kitty is bought
type EventSold struct {
	Seller  AccountId
	Buyer   AccountId
	KittyId KittyIndex
	Price   Balance
}

func (EventSold) EventName() string { return "Sold" }

func (e EventSold) String() string {
	return fmt.Sprintf(
		"Sold(seller=%s, buyer=%s, kitty=%d, price=%d)",
		e.Seller,
		e.Buyer,
		e.KittyId,
		e.Price,
	)
}

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

package gallery

import (
	"github.com/blinklabs-io/gokitties/ledger"
)

// CallRequest describes a call to submit: the pallet, the callable and its arguments
type CallRequest struct {
	Pallet   string
	Callable string
	Args     []any
}

// Call returns the ledger call for the request
func (r CallRequest) Call() (ledger.Call, error) {
	return ledger.NewCall(r.Pallet, r.Callable, r.Args...)
}

func (r CallRequest) String() string {
	return r.Pallet + "." + r.Callable
}

// CreateRequest creates a new kitty with random DNA. It takes no arguments
func CreateRequest() CallRequest {
	return CallRequest{
		Pallet:   ledger.PalletKitties,
		Callable: ledger.CallableCreate,
		Args:     []any{},
	}
}

// BreedRequest creates a new kitty whose DNA mixes the DNA of two existing kitties
func BreedRequest(kittyId1, kittyId2 ledger.KittyIndex) CallRequest {
	return CallRequest{
		Pallet:   ledger.PalletKitties,
		Callable: ledger.CallableBreed,
		Args:     []any{kittyId1, kittyId2},
	}
}

// TransferRequest gives a kitty to another account
func TransferRequest(to ledger.AccountId, kittyId ledger.KittyIndex) CallRequest {
	return CallRequest{
		Pallet:   ledger.PalletKitties,
		Callable: ledger.CallableTransfer,
		Args:     []any{to, kittyId},
	}
}

// AskRequest puts a kitty up for sale, or takes it off sale when price is empty
func AskRequest(kittyId ledger.KittyIndex, price ledger.Option[ledger.Balance]) CallRequest {
	return CallRequest{
		Pallet:   ledger.PalletKitties,
		Callable: ledger.CallableAsk,
		Args:     []any{kittyId, price},
	}
}

// BuyRequest buys a kitty for at most price
func BuyRequest(kittyId ledger.KittyIndex, price ledger.Balance) CallRequest {
	return CallRequest{
		Pallet:   ledger.PalletKitties,
		Callable: ledger.CallableBuy,
		Args:     []any{kittyId, price},
	}
}

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

// Package devnode implements an in-memory kitties chain for development and testing. It
// applies kittiesModule calls to its state and serves it over the kitty-query and
// call-submission mini-protocols.
package devnode

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/keyring"
	"github.com/blinklabs-io/gokitties/ledger"
	"golang.org/x/crypto/blake2b"
)

const (
	// ExistentialDeposit is the minimum free balance an account must keep when paying
	ExistentialDeposit ledger.Balance = 1
	// KittyReserve is reserved from the creator's free balance for each created kitty
	KittyReserve ledger.Balance = 1
	// DevEndowment is the initial free balance of each development account
	DevEndowment ledger.Balance = 1 << 60
)

// Call errors. The error text is used as the rejection reason on the wire
var (
	ErrKittiesCountOverflow = errors.New("KittiesCountOverflow")
	ErrInvalidKittyId       = errors.New("InvalidKittyId")
	ErrRequireOwner         = errors.New("RequireOwner")
	ErrNotForSale           = errors.New("NotForSale")
	ErrPriceTooLow          = errors.New("PriceTooLow")
	ErrInsufficientBalance  = errors.New("InsufficientBalance")
	ErrStaleNonce           = errors.New("StaleNonce")
	ErrUnknownCall          = errors.New("UnknownCall")
	ErrBadArguments         = errors.New("BadArguments")
)

// State holds the kitties chain state
type State struct {
	mutex          sync.RWMutex
	kittiesCount   ledger.Option[ledger.KittyIndex]
	kitties        map[ledger.KittyIndex]ledger.Dna
	owners         map[ledger.KittyIndex]ledger.AccountId
	prices         map[ledger.KittyIndex]ledger.Balance
	free           map[ledger.AccountId]ledger.Balance
	reserved       map[ledger.AccountId]ledger.Balance
	nonces         map[ledger.AccountId]uint64
	events         []ledger.Event
	seed           []byte
	extrinsicIndex uint32
	maxKittyIndex  ledger.KittyIndex
}

// StateOptionFunc is a type that represents functions that modify the State config
type StateOptionFunc func(*State)

// WithSeed specifies the seed mixed into generated DNA
func WithSeed(seed []byte) StateOptionFunc {
	return func(s *State) {
		s.seed = slices.Clone(seed)
	}
}

// WithEndowment sets the initial free balance of an account
func WithEndowment(account ledger.AccountId, balance ledger.Balance) StateOptionFunc {
	return func(s *State) {
		s.free[account] = balance
	}
}

// WithDevEndowments gives every development account DevEndowment
func WithDevEndowments() StateOptionFunc {
	return func(s *State) {
		for _, pair := range keyring.NewDevKeyring().Pairs() {
			s.free[pair.AccountId()] = DevEndowment
		}
	}
}

// WithMaxKittyIndex sets the bound on assigned kitty indexes. The bound itself is never
// assigned
func WithMaxKittyIndex(maxKittyIndex ledger.KittyIndex) StateOptionFunc {
	return func(s *State) {
		s.maxKittyIndex = maxKittyIndex
	}
}

// NewState returns a new, empty State
func NewState(opts ...StateOptionFunc) *State {
	s := &State{
		kitties:       make(map[ledger.KittyIndex]ledger.Dna),
		owners:        make(map[ledger.KittyIndex]ledger.AccountId),
		prices:        make(map[ledger.KittyIndex]ledger.Balance),
		free:          make(map[ledger.AccountId]ledger.Balance),
		reserved:      make(map[ledger.AccountId]ledger.Balance),
		nonces:        make(map[ledger.AccountId]uint64),
		seed:          []byte("gokitties"),
		maxKittyIndex: math.MaxUint32,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Count returns the number of kitty indexes in use. Index 0 is never assigned, so this is
// one more than the number of kitties once any exist
func (s *State) Count() uint32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.kittiesCount.OrElse(0)
}

// Kitties returns the DNA of each requested kitty
func (s *State) Kitties(ids []ledger.KittyIndex) []ledger.Option[ledger.Dna] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return lookup(s.kitties, ids)
}

// Owners returns the owner of each requested kitty
func (s *State) Owners(ids []ledger.KittyIndex) []ledger.Option[ledger.AccountId] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return lookup(s.owners, ids)
}

// Prices returns the asking price of each requested kitty
func (s *State) Prices(ids []ledger.KittyIndex) []ledger.Option[ledger.Balance] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return lookup(s.prices, ids)
}

// Balance returns the free and reserved balance of an account
func (s *State) Balance(account ledger.AccountId) (ledger.Balance, ledger.Balance) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.free[account], s.reserved[account]
}

// Events returns the events emitted so far, oldest first
func (s *State) Events() []ledger.Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return slices.Clone(s.events)
}

// LastEvent returns the most recent event, if any
func (s *State) LastEvent() ledger.Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

// Apply verifies a signed call and applies it to the state. A call that fails leaves the
// kitty state and balances unchanged, but still uses up its nonce
func (s *State) Apply(signedCall ledger.SignedCall) (ledger.Event, error) {
	if err := signedCall.Verify(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sender := signedCall.Signer
	if lastNonce, ok := s.nonces[sender]; ok && signedCall.Nonce <= lastNonce {
		return nil, ErrStaleNonce
	}
	s.nonces[sender] = signedCall.Nonce
	s.extrinsicIndex++
	event, err := s.dispatch(sender, signedCall.Call)
	if err != nil {
		return nil, err
	}
	s.events = append(s.events, event)
	return event, nil
}

func (s *State) dispatch(sender ledger.AccountId, call ledger.Call) (ledger.Event, error) {
	if call.Pallet != ledger.PalletKitties {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCall, call)
	}
	switch call.Callable {
	case ledger.CallableCreate:
		return s.create(sender)
	case ledger.CallableBreed:
		var args ledger.BreedArgs
		if err := call.DecodeArgs(&args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
		}
		return s.breed(sender, args.KittyId1, args.KittyId2)
	case ledger.CallableTransfer:
		var args ledger.TransferArgs
		if err := call.DecodeArgs(&args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
		}
		return s.transfer(sender, args.To, args.KittyId)
	case ledger.CallableAsk:
		var args ledger.AskArgs
		if err := call.DecodeArgs(&args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
		}
		return s.ask(sender, args.KittyId, args.Price)
	case ledger.CallableBuy:
		var args ledger.BuyArgs
		if err := call.DecodeArgs(&args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
		}
		return s.buy(sender, args.KittyId, args.Price)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCall, call)
	}
}

func (s *State) create(sender ledger.AccountId) (ledger.Event, error) {
	kittyId, err := s.nextKittyId()
	if err != nil {
		return nil, err
	}
	if s.free[sender] < KittyReserve {
		return nil, ErrInsufficientBalance
	}
	dna, err := s.randomValue(sender)
	if err != nil {
		return nil, err
	}
	s.insertKitty(sender, kittyId, dna)
	s.free[sender] -= KittyReserve
	s.reserved[sender] += KittyReserve
	return ledger.EventCreated{Owner: sender, KittyId: kittyId, Dna: dna}, nil
}

func (s *State) breed(
	sender ledger.AccountId,
	kittyId1 ledger.KittyIndex,
	kittyId2 ledger.KittyIndex,
) (ledger.Event, error) {
	dna1, ok := s.kitties[kittyId1]
	if !ok {
		return nil, ErrInvalidKittyId
	}
	dna2, ok := s.kitties[kittyId2]
	if !ok {
		return nil, ErrInvalidKittyId
	}
	kittyId, err := s.nextKittyId()
	if err != nil {
		return nil, err
	}
	selector, err := s.randomValue(sender)
	if err != nil {
		return nil, err
	}
	dna := dna1.Combine(dna2, selector)
	s.insertKitty(sender, kittyId, dna)
	return ledger.EventCreated{Owner: sender, KittyId: kittyId, Dna: dna}, nil
}

func (s *State) transfer(
	sender ledger.AccountId,
	to ledger.AccountId,
	kittyId ledger.KittyIndex,
) (ledger.Event, error) {
	if owner, ok := s.owners[kittyId]; !ok || owner != sender {
		return nil, ErrRequireOwner
	}
	s.owners[kittyId] = to
	return ledger.EventTransferred{From: sender, To: to, KittyId: kittyId}, nil
}

func (s *State) ask(
	sender ledger.AccountId,
	kittyId ledger.KittyIndex,
	price ledger.Option[ledger.Balance],
) (ledger.Event, error) {
	if owner, ok := s.owners[kittyId]; !ok || owner != sender {
		return nil, ErrRequireOwner
	}
	if newPrice, ok := price.Get(); ok {
		s.prices[kittyId] = newPrice
	} else {
		delete(s.prices, kittyId)
	}
	return ledger.EventAsk{Owner: sender, KittyId: kittyId, Price: price}, nil
}

func (s *State) buy(
	sender ledger.AccountId,
	kittyId ledger.KittyIndex,
	price ledger.Balance,
) (ledger.Event, error) {
	owner, ok := s.owners[kittyId]
	if !ok {
		return nil, ErrInvalidKittyId
	}
	kittyPrice, ok := s.prices[kittyId]
	if !ok {
		return nil, ErrNotForSale
	}
	if price < kittyPrice {
		return nil, ErrPriceTooLow
	}
	// The buyer must stay above the existential deposit
	if s.free[sender] < kittyPrice || s.free[sender]-kittyPrice < ExistentialDeposit {
		return nil, ErrInsufficientBalance
	}
	s.free[sender] -= kittyPrice
	s.free[owner] += kittyPrice
	delete(s.prices, kittyId)
	s.owners[kittyId] = sender
	return ledger.EventSold{
		Seller:  owner,
		Buyer:   sender,
		KittyId: kittyId,
		Price:   kittyPrice,
	}, nil
}

// nextKittyId returns the index for a new kitty. The first kitty gets index 1
func (s *State) nextKittyId() (ledger.KittyIndex, error) {
	kittyId, ok := s.kittiesCount.Get()
	if !ok {
		return 1, nil
	}
	if kittyId >= s.maxKittyIndex {
		return 0, ErrKittiesCountOverflow
	}
	return kittyId, nil
}

func (s *State) insertKitty(owner ledger.AccountId, kittyId ledger.KittyIndex, dna ledger.Dna) {
	s.kitties[kittyId] = dna
	nextCount := kittyId
	if nextCount < math.MaxUint32 {
		nextCount++
	}
	s.kittiesCount = ledger.Some(nextCount)
	s.owners[kittyId] = owner
}

// randomValue returns 16 bytes derived from the seed, the sender and the extrinsic index
func (s *State) randomValue(sender ledger.AccountId) (ledger.Dna, error) {
	payload, err := cbor.Encode([]any{s.seed, sender, s.extrinsicIndex})
	if err != nil {
		return ledger.Dna{}, err
	}
	hasher, err := blake2b.New(ledger.DnaSize, nil)
	if err != nil {
		return ledger.Dna{}, err
	}
	hasher.Write(payload)
	return ledger.NewDnaFromBytes(hasher.Sum(nil))
}

func lookup[K comparable, V any](m map[K]V, ids []K) []ledger.Option[V] {
	ret := make([]ledger.Option[V], len(ids))
	for i, id := range ids {
		if v, ok := m[id]; ok {
			ret[i] = ledger.Some(v)
		}
	}
	return ret
}

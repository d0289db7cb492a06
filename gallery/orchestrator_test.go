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

package gallery_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/keyring"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	waitTimeout  = 2 * time.Second
	waitInterval = 5 * time.Millisecond
)

var devKeyring = keyring.NewDevKeyring()

func devAccount(t *testing.T, name string) ledger.AccountId {
	t.Helper()
	pair, err := devKeyring.Get(name)
	require.NoError(t, err)
	return pair.AccountId()
}

// fakeSource is an in-memory DataSource. A single BatchGet call for holdIds ids can be
// held until released, returning the data it saw when it was issued
type fakeSource struct {
	mu        sync.Mutex
	dnas      []ledger.Option[ledger.Dna]
	owners    []ledger.Option[ledger.AccountId]
	countErr  error
	holdIds   int
	hold      chan struct{}
	held      chan struct{}
	countHold chan struct{}
	countHeld chan struct{}
	submitted []ledger.SignedCall
	submitErr error
	onSubmit  func()
}

func newFakeSource(owners ...ledger.AccountId) *fakeSource {
	f := &fakeSource{}
	for _, owner := range owners {
		f.addKitty(owner)
	}
	return f
}

func (f *fakeSource) addKitty(owner ledger.AccountId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dnas = append(f.dnas, ledger.Some(testDna(byte(len(f.dnas)+1))))
	f.owners = append(f.owners, ledger.Some(owner))
}

func (f *fakeSource) setOwner(idx int, owner ledger.Option[ledger.AccountId]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[idx] = owner
}

func (f *fakeSource) setCountErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countErr = err
}

// holdBatchGet holds the next BatchGet for ids ids. The returned channels report when
// the call is held and release it
func (f *fakeSource) holdBatchGet(ids int) (chan struct{}, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdIds = ids
	f.hold = make(chan struct{})
	f.held = make(chan struct{})
	return f.held, f.hold
}

// holdCount holds the next Count call, which returns the count it saw when it was issued
func (f *fakeSource) holdCount() (chan struct{}, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countHold = make(chan struct{})
	f.countHeld = make(chan struct{})
	return f.countHeld, f.countHold
}

func (f *fakeSource) Count(ctx context.Context) (uint32, error) {
	f.mu.Lock()
	if f.countErr != nil {
		f.mu.Unlock()
		return 0, f.countErr
	}
	count := uint32(len(f.dnas)) // #nosec G115
	hold := f.countHold
	if hold != nil {
		f.countHold = nil
		close(f.countHeld)
	}
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return count, nil
}

func (f *fakeSource) BatchGet(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Dna], error) {
	f.mu.Lock()
	ret := make([]ledger.Option[ledger.Dna], len(ids))
	for i, id := range ids {
		if int(id) < len(f.dnas) {
			ret[i] = f.dnas[id]
		}
	}
	var hold chan struct{}
	if f.hold != nil && len(ids) == f.holdIds {
		hold = f.hold
		f.hold = nil
		close(f.held)
	}
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return ret, nil
}

func (f *fakeSource) BatchGetOwner(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.AccountId], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([]ledger.Option[ledger.AccountId], len(ids))
	for i, id := range ids {
		if int(id) < len(f.owners) {
			ret[i] = f.owners[id]
		}
	}
	return ret, nil
}

func (f *fakeSource) SubmitCall(
	ctx context.Context,
	signedCall ledger.SignedCall,
) (ledger.Blake2b256, error) {
	f.mu.Lock()
	onSubmit := f.onSubmit
	f.mu.Unlock()
	if onSubmit != nil {
		onSubmit()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return ledger.Blake2b256{}, f.submitErr
	}
	f.submitted = append(f.submitted, signedCall)
	return signedCall.Hash()
}

// readOnlySource hides the SubmitCall method of the wrapped source
type readOnlySource struct {
	gallery.DataSource
}

func startOrchestrator(
	t *testing.T,
	source gallery.DataSource,
	opts ...gallery.OrchestratorOptionFunc,
) *gallery.Orchestrator {
	t.Helper()
	// Cleanups run in reverse, so the leak check runs after Stop
	t.Cleanup(func() { goleak.VerifyNone(t) })
	o := gallery.New(source, opts...)
	require.NoError(t, o.Start(context.Background()))
	t.Cleanup(o.Stop)
	return o
}

func waitForRecords(
	t *testing.T,
	o *gallery.Orchestrator,
	msg string,
	check func([]gallery.Record) bool,
) {
	t.Helper()
	require.Eventually(
		t,
		func() bool {
			return check(o.Records())
		},
		waitTimeout,
		waitInterval,
		msg,
	)
}

func allPresent(count int) func([]gallery.Record) bool {
	return func(records []gallery.Record) bool {
		if len(records) != count {
			return false
		}
		for _, record := range records {
			if record.Payload.IsNone() || record.Owner.IsNone() {
				return false
			}
		}
		return true
	}
}

func TestOrchestratorInitialLoad(t *testing.T) {
	alice := devAccount(t, "alice")
	bob := devAccount(t, "bob")
	source := newFakeSource(alice, bob, alice)
	source.setOwner(1, ledger.None[ledger.AccountId]())
	o := startOrchestrator(t, source)
	waitForRecords(t, o, "records did not load", func(records []gallery.Record) bool {
		return len(records) == 3 &&
			records[2].Payload.IsSome() &&
			records[0].Owner.IsSome()
	})
	records := o.Records()
	for i, record := range records {
		assert.Equal(t, ledger.KittyIndex(i), record.ID) // #nosec G115
		dna, ok := record.Payload.Get()
		require.True(t, ok)
		assert.Equal(t, testDna(byte(i+1)), dna)
	}
	assert.Equal(t, ledger.Some(alice.SS58(ledger.SS58PrefixGeneric)), records[0].Owner)
	assert.True(t, records[1].Owner.IsNone())
	count, ok := o.Count()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), count)
	// The self re-reads of DNA and owners settle once they read back equal data
	require.Eventually(
		t,
		func() bool {
			return o.Stats().Graph.Suppressed >= 2
		},
		waitTimeout,
		waitInterval,
	)
	assert.Zero(t, o.Stats().Graph.StageErrors)
	select {
	case update := <-o.Updates():
		assert.NotNil(t, update)
	case <-time.After(waitTimeout):
		t.Fatal("did not receive update")
	}
}

func TestOrchestratorEmptySource(t *testing.T) {
	o := startOrchestrator(t, newFakeSource())
	require.Eventually(
		t,
		func() bool {
			_, ok := o.Count()
			return ok && o.Stats().Reconciles > 0
		},
		waitTimeout,
		waitInterval,
	)
	records := o.Records()
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestOrchestratorCountChangeRereads(t *testing.T) {
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice)
	o := startOrchestrator(t, source)
	waitForRecords(t, o, "initial load", allPresent(2))
	source.addKitty(alice)
	source.addKitty(alice)
	require.NoError(t, o.RefreshCount())
	waitForRecords(t, o, "records did not grow", allPresent(4))
}

func TestOrchestratorCountShrinks(t *testing.T) {
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice, alice)
	o := startOrchestrator(t, source)
	waitForRecords(t, o, "initial load", allPresent(3))
	before := o.Records()
	source.mu.Lock()
	source.dnas = source.dnas[:2]
	source.owners = source.owners[:2]
	source.mu.Unlock()
	require.NoError(t, o.RefreshCount())
	waitForRecords(t, o, "records did not shrink", func(records []gallery.Record) bool {
		return len(records) == 2
	})
	assert.Equal(t, before[:2], o.Records())
}

func TestOrchestratorFetchErrorKeepsState(t *testing.T) {
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice)
	o := startOrchestrator(t, source)
	waitForRecords(t, o, "initial load", allPresent(2))
	before := o.Records()
	source.setCountErr(errors.New("node unavailable"))
	source.addKitty(alice)
	require.NoError(t, o.RefreshCount())
	require.Eventually(
		t,
		func() bool {
			return o.Stats().FetchErrors > 0
		},
		waitTimeout,
		waitInterval,
	)
	assert.Equal(t, before, o.Records())
	count, _ := o.Count()
	assert.Equal(t, uint32(2), count)
}

// payloadShrinkDetector reports when a shorter DNA list replaces a longer one
func payloadShrinkDetector(shrunk *atomic.Bool) pipeline.EqualFunc {
	return func(a, b any) bool {
		oldPayloads, ok1 := a.([]ledger.Option[ledger.Dna])
		newPayloads, ok2 := b.([]ledger.Option[ledger.Dna])
		if ok1 && ok2 && len(newPayloads) < len(oldPayloads) {
			shrunk.Store(true)
		}
		return reflect.DeepEqual(a, b)
	}
}

// holdStaleRead loads two kitties with the first DNA read held, then grows the source
// to three kitties and waits until they are all shown
func holdStaleRead(
	t *testing.T,
	opts ...gallery.OrchestratorOptionFunc,
) (*gallery.Orchestrator, chan struct{}) {
	t.Helper()
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice)
	held, release := source.holdBatchGet(2)
	o := startOrchestrator(t, source, opts...)
	select {
	case <-held:
	case <-time.After(waitTimeout):
		t.Fatal("DNA read was not issued")
	}
	source.addKitty(alice)
	require.NoError(t, o.RefreshCount())
	waitForRecords(t, o, "newer read did not apply", allPresent(3))
	return o, release
}

func TestOrchestratorDiscardsStaleResponses(t *testing.T) {
	var shrunk atomic.Bool
	o, release := holdStaleRead(t, gallery.WithEqualFunc(payloadShrinkDetector(&shrunk)))
	close(release)
	require.Eventually(
		t,
		func() bool {
			return o.Stats().StaleDrops > 0
		},
		waitTimeout,
		waitInterval,
	)
	assert.False(t, shrunk.Load(), "stale DNA list was applied")
	assert.True(t, allPresent(3)(o.Records()))
}

func TestOrchestratorLastWriterWins(t *testing.T) {
	var shrunk atomic.Bool
	o, release := holdStaleRead(
		t,
		gallery.WithDiscardStale(false),
		gallery.WithEqualFunc(payloadShrinkDetector(&shrunk)),
	)
	close(release)
	require.Eventually(t, shrunk.Load, waitTimeout, waitInterval, "stale DNA list was not applied")
	// The changed DNA list is read again for the current count
	waitForRecords(t, o, "records did not recover", allPresent(3))
	assert.Zero(t, o.Stats().StaleDrops)
}

func TestOrchestratorDiscardsSupersededCount(t *testing.T) {
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice)
	held, release := source.holdCount()
	o := startOrchestrator(t, source)
	select {
	case <-held:
	case <-time.After(waitTimeout):
		t.Fatal("count read was not issued")
	}
	source.addKitty(alice)
	require.NoError(t, o.RefreshCount())
	waitForRecords(t, o, "newer count did not apply", allPresent(3))
	close(release)
	require.Eventually(
		t,
		func() bool {
			return o.Stats().StaleDrops > 0
		},
		waitTimeout,
		waitInterval,
	)
	count, ok := o.Count()
	require.True(t, ok)
	assert.Equal(t, uint32(3), count)
	assert.True(t, allPresent(3)(o.Records()))
}

func TestOrchestratorDefersWhenWorkersBusy(t *testing.T) {
	alice := devAccount(t, "alice")
	source := newFakeSource(alice, alice)
	held, release := source.holdBatchGet(2)
	o := startOrchestrator(t, source, gallery.WithWorkers(1))
	select {
	case <-held:
	case <-time.After(waitTimeout):
		t.Fatal("DNA read was not issued")
	}
	for range 3 {
		require.NoError(t, o.RefreshCount())
		require.NoError(t, o.RefreshPayloads(2))
		require.NoError(t, o.RefreshOwners(2))
	}
	require.Eventually(
		t,
		func() bool {
			return o.Stats().DeferredFetches > 0
		},
		waitTimeout,
		waitInterval,
	)
	close(release)
	waitForRecords(t, o, "deferred reads did not run", allPresent(2))
}

func TestOrchestratorPolling(t *testing.T) {
	alice := devAccount(t, "alice")
	bob := devAccount(t, "bob")
	source := newFakeSource(alice)
	o := startOrchestrator(t, source, gallery.WithPollInterval(20*time.Millisecond))
	waitForRecords(t, o, "initial load", allPresent(1))
	source.addKitty(alice)
	waitForRecords(t, o, "poll did not pick up new kitty", allPresent(2))
	// An owner change without a count change
	source.setOwner(0, ledger.Some(bob))
	bobAddr := bob.SS58(ledger.SS58PrefixGeneric)
	waitForRecords(t, o, "poll did not pick up transfer", func(records []gallery.Record) bool {
		return len(records) == 2 && records[0].Owner.OrElse("") == bobAddr
	})
}

func TestOrchestratorSetSource(t *testing.T) {
	alice := devAccount(t, "alice")
	bob := devAccount(t, "bob")
	o := startOrchestrator(t, newFakeSource(alice))
	waitForRecords(t, o, "initial load", allPresent(1))
	require.NoError(t, o.SetSource(newFakeSource(bob, bob, bob)))
	bobAddr := bob.SS58(ledger.SS58PrefixGeneric)
	waitForRecords(t, o, "new source not read", func(records []gallery.Record) bool {
		return allPresent(3)(records) && records[0].Owner.OrElse("") == bobAddr
	})
}

func TestOrchestratorSS58Prefix(t *testing.T) {
	alice := devAccount(t, "alice")
	o := startOrchestrator(t, newFakeSource(alice), gallery.WithSS58Prefix(0))
	waitForRecords(t, o, "initial load", allPresent(1))
	assert.Equal(t, ledger.Some(alice.SS58(0)), o.Records()[0].Owner)
}

func TestOrchestratorRecordsAreCopies(t *testing.T) {
	alice := devAccount(t, "alice")
	o := startOrchestrator(t, newFakeSource(alice))
	waitForRecords(t, o, "initial load", allPresent(1))
	records := o.Records()
	records[0].ID = 99
	records[0].Owner = ledger.None[string]()
	assert.Equal(t, ledger.KittyIndex(0), o.Records()[0].ID)
	assert.True(t, o.Records()[0].Owner.IsSome())
}

func TestOrchestratorLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	o := gallery.New(newFakeSource())
	require.ErrorIs(t, o.RefreshCount(), gallery.ErrNotStarted)
	require.NoError(t, o.Start(context.Background()))
	require.NoError(t, o.Start(context.Background()))
	o.Stop()
	o.Stop()
	require.ErrorIs(t, o.RefreshCount(), gallery.ErrStopped)
	require.ErrorIs(t, o.Start(context.Background()), gallery.ErrStopped)
	// Updates is closed once stopped
	for range o.Updates() {
	}
}

func TestOrchestratorStopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	o := gallery.New(newFakeSource())
	o.Stop()
	select {
	case _, ok := <-o.Updates():
		assert.False(t, ok)
	case <-time.After(waitTimeout):
		t.Fatal("Updates was not closed")
	}
	require.ErrorIs(t, o.Start(context.Background()), gallery.ErrStopped)
	require.ErrorIs(t, o.RefreshCount(), gallery.ErrStopped)
}

func TestOrchestratorSubmit(t *testing.T) {
	alice, err := devKeyring.Get("alice")
	require.NoError(t, err)
	source := newFakeSource()
	o := startOrchestrator(t, source, gallery.WithNonceFunc(func() uint64 { return 7 }))
	var statusDuringSubmit string
	source.onSubmit = func() {
		statusDuringSubmit = o.Status()
	}
	hash, err := o.Submit(context.Background(), alice, gallery.CreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "Sending kittiesModule.create...", statusDuringSubmit)
	assert.Equal(t, "Finalized. Call hash: 0x"+hash.String(), o.Status())
	require.Len(t, source.submitted, 1)
	signed := source.submitted[0]
	require.NoError(t, signed.Verify())
	assert.Equal(t, alice.AccountId(), signed.Signer)
	assert.Equal(t, uint64(7), signed.Nonce)
	assert.Equal(t, ledger.PalletKitties, signed.Call.Pallet)
	assert.Equal(t, ledger.CallableCreate, signed.Call.Callable)
	var args []any
	require.NoError(t, signed.Call.DecodeArgs(&args))
	assert.Empty(t, args)
}

func TestOrchestratorSubmitFailure(t *testing.T) {
	alice, err := devKeyring.Get("alice")
	require.NoError(t, err)
	source := newFakeSource()
	source.submitErr = errors.New("RequireOwner")
	o := startOrchestrator(t, source)
	_, err = o.Submit(
		context.Background(),
		alice,
		gallery.TransferRequest(devAccount(t, "bob"), 0),
	)
	require.ErrorIs(t, err, source.submitErr)
	assert.Equal(t, "Transaction failed: RequireOwner", o.Status())
}

func TestOrchestratorSubmitWithoutSubmitter(t *testing.T) {
	alice, err := devKeyring.Get("alice")
	require.NoError(t, err)
	o := startOrchestrator(t, readOnlySource{newFakeSource()})
	_, err = o.Submit(context.Background(), alice, gallery.CreateRequest())
	require.ErrorIs(t, err, gallery.ErrNoSubmitter)
	assert.Equal(t, "Transaction failed: "+gallery.ErrNoSubmitter.Error(), o.Status())
}

func TestOrchestratorSubmitUsesConfiguredSubmitter(t *testing.T) {
	alice, err := devKeyring.Get("alice")
	require.NoError(t, err)
	submitter := newFakeSource()
	o := startOrchestrator(
		t,
		readOnlySource{newFakeSource()},
		gallery.WithSubmitter(submitter),
	)
	_, err = o.Submit(context.Background(), alice, gallery.BreedRequest(0, 1))
	require.NoError(t, err)
	require.Len(t, submitter.submitted, 1)
	var args ledger.BreedArgs
	require.NoError(t, submitter.submitted[0].Call.DecodeArgs(&args))
	assert.Equal(t, ledger.BreedArgs{KittyId1: 0, KittyId2: 1}, args)
}

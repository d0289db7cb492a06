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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/pipeline"
	"github.com/jinzhu/copier"
)

// Names of the values in the dataflow graph
const (
	valueSource   = "source"
	valueCount    = "count"
	valuePayloads = "payloads"
	valueOwners   = "owners"
)

// How long to wait before retrying reads that found every worker busy
const deferredRetryInterval = 10 * time.Millisecond

var (
	ErrNotStarted  = errors.New("gallery: orchestrator not started")
	ErrStopped     = errors.New("gallery: orchestrator stopped")
	ErrNoSubmitter = errors.New("gallery: no submitter available")
)

// Stats contains statistics about orchestrator activity
type Stats struct {
	CountFetches   uint64
	PayloadFetches uint64
	OwnerFetches   uint64
	// FetchErrors counts failed reads. A failed read leaves the held data unchanged
	FetchErrors uint64
	// StaleDrops counts responses discarded because they were issued for an older
	// count or source
	StaleDrops uint64
	// DeferredFetches counts reads postponed because every worker was busy
	DeferredFetches uint64
	Reconciles      uint64
	Graph           pipeline.GraphStats
}

// generation identifies the source and count a read was issued for
type generation struct {
	source uint64
	count  uint64
}

type pendingFetch struct {
	count     uint32
	requested bool
}

type sourceHolder struct {
	source DataSource
}

// Orchestrator keeps the kitty count, DNA and owners in sync with a DataSource and
// publishes the reconciled record list.
//
// All held data is owned by a single event loop goroutine. Reads run on a worker pool and
// hand their results back to the loop, so they may complete in any order. Re-reads are
// driven by a dataflow graph: a count change re-reads DNA and owners, a DNA or owner
// change re-reads itself, and any change rebuilds the record list. Results equal to the
// held ones trigger nothing, which lets the chain of re-reads settle.
type Orchestrator struct {
	config    Config
	logger    *slog.Logger
	graph     *pipeline.Graph
	pool      *pipeline.WorkerPool
	eventChan chan func()
	updates   chan []Record

	// Owned by the event loop
	source          DataSource
	gen             generation
	count           uint32
	countKnown      bool
	countSeq        uint64
	appliedCountSeq uint64
	pendingCount    bool
	pendingPayloads pendingFetch
	pendingOwners   pendingFetch

	currentSource atomic.Pointer[sourceHolder]
	records       atomic.Pointer[[]Record]
	status        atomic.Pointer[string]
	lastCount     atomic.Int64

	countFetches    atomic.Uint64
	payloadFetches  atomic.Uint64
	ownerFetches    atomic.Uint64
	fetchErrors     atomic.Uint64
	staleDrops      atomic.Uint64
	deferredFetches atomic.Uint64
	reconciles      atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex // protects Start/Stop
	started atomic.Bool
	stopped atomic.Bool
}

// New returns a new Orchestrator reading from source
func New(source DataSource, opts ...OrchestratorOptionFunc) *Orchestrator {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Orchestrator{
		config:    config,
		logger:    logger,
		eventChan: make(chan func(), 16),
		updates:   make(chan []Record, 1),
		source:    source,
		pool: pipeline.NewWorkerPool(pipeline.WorkerPoolConfig{
			NumWorkers: config.Workers,
			QueueSize:  config.Workers,
		}),
	}
	o.lastCount.Store(-1)
	o.currentSource.Store(&sourceHolder{source: source})
	graphOpts := []pipeline.GraphOption{
		pipeline.WithLogger(logger),
	}
	if config.EqualFunc != nil {
		graphOpts = append(graphOpts, pipeline.WithEqualFunc(config.EqualFunc))
	}
	o.graph = pipeline.New(graphOpts...)
	stages := []pipeline.Stage{
		pipeline.NewStageFunc(
			"refresh-count",
			[]string{valueSource},
			func(context.Context, pipeline.Values) error {
				o.refreshCount()
				return nil
			},
		),
		pipeline.NewStageFunc(
			"refresh-payloads",
			[]string{valueCount, valuePayloads},
			func(context.Context, pipeline.Values) error {
				o.refreshPayloads(o.count)
				return nil
			},
		),
		pipeline.NewStageFunc(
			"refresh-owners",
			[]string{valueCount, valueOwners},
			func(context.Context, pipeline.Values) error {
				o.refreshOwners(o.count)
				return nil
			},
		),
		pipeline.NewStageFunc(
			"reconcile",
			[]string{valueCount, valuePayloads, valueOwners},
			o.reconcile,
		),
	}
	for _, stage := range stages {
		if err := o.graph.AddStage(stage); err != nil {
			panic(fmt.Sprintf("unexpected error building orchestrator graph: %s", err))
		}
	}
	return o
}

// Start starts the event loop and issues the initial count read
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped.Load() {
		return ErrStopped
	}
	if o.started.Load() {
		return nil
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	if err := o.pool.Start(o.ctx); err != nil { //nolint:contextcheck
		o.cancel()
		return err
	}
	o.wg.Add(1)
	go o.loop()
	o.started.Store(true)
	return o.post(func() {
		o.publish(valueSource, o.gen.source)
	})
}

// Stop stops the event loop and cancels reads in flight. The Updates channel is closed
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped.Swap(true) {
		return
	}
	if o.started.Load() {
		o.cancel()
		o.pool.Stop()
		o.wg.Wait()
	}
	close(o.updates)
}

// RefreshCount issues a count read. A changed count re-reads DNA and owners
func (o *Orchestrator) RefreshCount() error {
	return o.post(o.refreshCount)
}

// RefreshPayloads issues a DNA read for indexes 0 through count-1
func (o *Orchestrator) RefreshPayloads(count uint32) error {
	return o.post(func() {
		o.refreshPayloads(count)
	})
}

// RefreshOwners issues an owner read for indexes 0 through count-1
func (o *Orchestrator) RefreshOwners(count uint32) error {
	return o.post(func() {
		o.refreshOwners(count)
	})
}

// Refresh re-reads the count, and the DNA and owners for the last known count
func (o *Orchestrator) Refresh() error {
	return o.post(o.refreshAll)
}

// SetSource replaces the data source, for example after reconnecting, and re-reads the
// count from it
func (o *Orchestrator) SetSource(source DataSource) error {
	return o.post(func() {
		o.source = source
		o.gen.source++
		o.currentSource.Store(&sourceHolder{source: source})
		o.logger.Debug(
			"data source replaced",
			"component", "gallery",
			"source_generation", o.gen.source,
		)
		o.publish(valueSource, o.gen.source)
	})
}

// Records returns a copy of the latest record list
func (o *Orchestrator) Records() []Record {
	p := o.records.Load()
	if p == nil {
		return []Record{}
	}
	return copyRecords(*p)
}

// Count returns the last observed count, if any
func (o *Orchestrator) Count() (uint32, bool) {
	count := o.lastCount.Load()
	if count < 0 {
		return 0, false
	}
	return uint32(count), true // #nosec G115
}

// Updates returns a channel delivering each new record list. Only the latest list is
// kept when the receiver falls behind
func (o *Orchestrator) Updates() <-chan []Record {
	return o.updates
}

// SetStatus sets the status message
func (o *Orchestrator) SetStatus(msg string) {
	o.status.Store(&msg)
}

// Status returns the last status message
func (o *Orchestrator) Status() string {
	p := o.status.Load()
	if p == nil {
		return ""
	}
	return *p
}

// Stats returns the current orchestrator statistics
func (o *Orchestrator) Stats() Stats {
	return Stats{
		CountFetches:    o.countFetches.Load(),
		PayloadFetches:  o.payloadFetches.Load(),
		OwnerFetches:    o.ownerFetches.Load(),
		FetchErrors:     o.fetchErrors.Load(),
		StaleDrops:      o.staleDrops.Load(),
		DeferredFetches: o.deferredFetches.Load(),
		Reconciles:      o.reconciles.Load(),
		Graph:           o.graph.Stats(),
	}
}

// Submit signs the call described by req and submits it, keeping the status message up
// to date. After the call is accepted everything is re-read
func (o *Orchestrator) Submit(
	ctx context.Context,
	signer Signer,
	req CallRequest,
) (ledger.Blake2b256, error) {
	o.logger.Debug(
		fmt.Sprintf("calling Submit(call: %s)", req),
		"component", "gallery",
		"signer", signer.AccountId().String(),
	)
	submitter := o.config.Submitter
	if submitter == nil {
		if holder := o.currentSource.Load(); holder != nil {
			submitter, _ = holder.source.(Submitter)
		}
	}
	if submitter == nil {
		return o.submitFailed(ErrNoSubmitter)
	}
	call, err := req.Call()
	if err != nil {
		return o.submitFailed(err)
	}
	signedCall, err := signer.SignCall(call, o.config.NonceFunc())
	if err != nil {
		return o.submitFailed(err)
	}
	o.SetStatus(fmt.Sprintf("Sending %s...", req))
	hash, err := submitter.SubmitCall(ctx, signedCall)
	if err != nil {
		return o.submitFailed(err)
	}
	o.SetStatus("Finalized. Call hash: 0x" + hash.String())
	if o.started.Load() {
		_ = o.post(o.refreshAll)
	}
	return hash, nil
}

func (o *Orchestrator) submitFailed(err error) (ledger.Blake2b256, error) {
	o.SetStatus("Transaction failed: " + err.Error())
	return ledger.Blake2b256{}, err
}

// post hands fn to the event loop
func (o *Orchestrator) post(fn func()) error {
	if o.stopped.Load() {
		return ErrStopped
	}
	if !o.started.Load() {
		return ErrNotStarted
	}
	select {
	case o.eventChan <- fn:
		return nil
	case <-o.ctx.Done():
		return ErrStopped
	}
}

func (o *Orchestrator) loop() {
	defer o.wg.Done()
	var pollChan <-chan time.Time
	if o.config.PollInterval > 0 {
		ticker := time.NewTicker(o.config.PollInterval)
		defer ticker.Stop()
		pollChan = ticker.C
	}
	for {
		var retryChan <-chan time.Time
		if o.hasPending() {
			retryChan = time.After(deferredRetryInterval)
		}
		select {
		case <-o.ctx.Done():
			return
		case fn := <-o.eventChan:
			fn()
		case <-pollChan:
			o.refreshAll()
		case <-retryChan:
		}
		o.flushPending()
	}
}

func (o *Orchestrator) publish(name string, value any) {
	if err := o.graph.Publish(o.ctx, name, value); err != nil {
		o.logger.Debug(
			"dataflow error",
			"component", "gallery",
			"value", name,
			"error", err,
		)
	}
}

func (o *Orchestrator) refreshAll() {
	o.refreshCount()
	if o.countKnown {
		o.refreshPayloads(o.count)
		o.refreshOwners(o.count)
	}
}

func (o *Orchestrator) refreshCount() {
	source, gen := o.source, o.gen
	if source == nil {
		return
	}
	seq := o.countSeq + 1
	task := func(ctx context.Context) {
		count, err := source.Count(ctx)
		_ = o.post(func() {
			o.handleCount(gen, seq, count, err)
		})
	}
	if !o.pool.TrySubmit(task) {
		if !o.pendingCount {
			o.deferredFetches.Add(1)
		}
		o.pendingCount = true
		return
	}
	o.countSeq = seq
	o.pendingCount = false
	o.countFetches.Add(1)
}

func (o *Orchestrator) refreshPayloads(count uint32) {
	source, gen := o.source, o.gen
	if source == nil {
		return
	}
	ids := indexRange(count)
	task := func(ctx context.Context) {
		payloads, err := source.BatchGet(ctx, ids)
		_ = o.post(func() {
			o.handlePayloads(gen, payloads, err)
		})
	}
	if !o.pool.TrySubmit(task) {
		if !o.pendingPayloads.requested {
			o.deferredFetches.Add(1)
		}
		o.pendingPayloads = pendingFetch{count: count, requested: true}
		return
	}
	o.pendingPayloads = pendingFetch{}
	o.payloadFetches.Add(1)
}

func (o *Orchestrator) refreshOwners(count uint32) {
	source, gen := o.source, o.gen
	if source == nil {
		return
	}
	ids := indexRange(count)
	task := func(ctx context.Context) {
		owners, err := source.BatchGetOwner(ctx, ids)
		_ = o.post(func() {
			o.handleOwners(gen, owners, err)
		})
	}
	if !o.pool.TrySubmit(task) {
		if !o.pendingOwners.requested {
			o.deferredFetches.Add(1)
		}
		o.pendingOwners = pendingFetch{count: count, requested: true}
		return
	}
	o.pendingOwners = pendingFetch{}
	o.ownerFetches.Add(1)
}

func (o *Orchestrator) hasPending() bool {
	return o.pendingCount || o.pendingPayloads.requested || o.pendingOwners.requested
}

func (o *Orchestrator) flushPending() {
	if o.pendingCount {
		o.refreshCount()
	}
	if o.pendingPayloads.requested {
		o.refreshPayloads(o.pendingPayloads.count)
	}
	if o.pendingOwners.requested {
		o.refreshOwners(o.pendingOwners.count)
	}
}

// isStale reports whether a DNA or owner response issued at gen must be dropped
func (o *Orchestrator) isStale(gen generation) bool {
	if !o.config.DiscardStale {
		return false
	}
	return gen != o.gen
}

// isStaleCount reports whether a count response must be dropped. Count responses move
// the count generation themselves, so they are ordered by when they were issued: one
// issued before the last applied count is superseded
func (o *Orchestrator) isStaleCount(gen generation, seq uint64) bool {
	if !o.config.DiscardStale {
		return false
	}
	return gen.source != o.gen.source || seq < o.appliedCountSeq
}

func (o *Orchestrator) fetchFailed(query string, err error) {
	o.fetchErrors.Add(1)
	o.logger.Debug(
		"read failed, keeping held data",
		"component", "gallery",
		"query", query,
		"error", err,
	)
}

func (o *Orchestrator) dropStale(query string, gen generation) {
	o.staleDrops.Add(1)
	o.logger.Debug(
		"dropping stale response",
		"component", "gallery",
		"query", query,
		"source_generation", gen.source,
		"count_generation", gen.count,
	)
}

func (o *Orchestrator) handleCount(gen generation, seq uint64, count uint32, err error) {
	if err != nil {
		o.fetchFailed("count", err)
		return
	}
	if o.isStaleCount(gen, seq) {
		o.dropStale("count", gen)
		return
	}
	o.appliedCountSeq = seq
	if !o.countKnown || count != o.count {
		o.gen.count++
	}
	o.count = count
	o.countKnown = true
	o.lastCount.Store(int64(count))
	o.publish(valueCount, count)
}

func (o *Orchestrator) handlePayloads(
	gen generation,
	payloads []ledger.Option[ledger.Dna],
	err error,
) {
	if err != nil {
		o.fetchFailed("kitties", err)
		return
	}
	if o.isStale(gen) {
		o.dropStale("kitties", gen)
		return
	}
	o.publish(valuePayloads, payloads)
}

func (o *Orchestrator) handleOwners(
	gen generation,
	owners []ledger.Option[ledger.AccountId],
	err error,
) {
	if err != nil {
		o.fetchFailed("owners", err)
		return
	}
	if o.isStale(gen) {
		o.dropStale("owners", gen)
		return
	}
	labels := make([]ledger.Option[string], len(owners))
	for i, owner := range owners {
		labels[i] = ledger.MapOption(
			owner,
			func(a ledger.AccountId) string {
				return a.SS58(o.config.SS58Prefix)
			},
		)
	}
	o.publish(valueOwners, labels)
}

func (o *Orchestrator) reconcile(_ context.Context, values pipeline.Values) error {
	count, _ := pipeline.Value[uint32](values, valueCount)
	payloads, _ := pipeline.Value[[]ledger.Option[ledger.Dna]](values, valuePayloads)
	owners, _ := pipeline.Value[[]ledger.Option[string]](values, valueOwners)
	records := Reconcile(count, payloads, owners)
	o.reconciles.Add(1)
	o.records.Store(&records)
	// Keep only the latest list for slow receivers
	select {
	case <-o.updates:
	default:
	}
	select {
	case o.updates <- copyRecords(records):
	default:
	}
	return nil
}

func indexRange(count uint32) []ledger.KittyIndex {
	ids := make([]ledger.KittyIndex, count)
	for i := range count {
		ids[i] = i
	}
	return ids
}

// copyRecords deep copies records, so fields that share memory never leak between the
// held list and the copies handed to readers
func copyRecords(records []Record) []Record {
	ret := make([]Record, 0, len(records))
	if err := copier.CopyWithOption(&ret, records, copier.Option{DeepCopy: true}); err != nil {
		return slices.Clone(records)
	}
	return ret
}

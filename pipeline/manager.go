// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lanternworks/lantern/lib/clock"
)

// Default drain scheduler tuning.
const (
	// DefaultMaxBatch caps how many messages one Flush call drains.
	// Bounding the batch bounds Flush latency: callers needing a
	// hard deadline size the batch, they do not cancel mid-drain.
	DefaultMaxBatch = 200

	// DefaultAutoFlushInterval is how much accumulated Tick time
	// elapses between automatic flushes. Half a second keeps
	// delivery latency low without per-message overhead.
	DefaultAutoFlushInterval = 500 * time.Millisecond
)

// Options configures a Manager. The zero value is usable: defaults
// are applied for every unset field.
type Options struct {
	// QueueCapacity is the producer queue size (rounded up to a
	// power of two). Zero selects DefaultQueueCapacity.
	QueueCapacity int

	// MaxBatch caps messages drained per Flush. Zero selects
	// DefaultMaxBatch.
	MaxBatch int

	// AutoFlushInterval is the Tick accumulation threshold. Zero
	// selects DefaultAutoFlushInterval.
	AutoFlushInterval time.Duration

	// Authority supplies level decisions. Nil creates a fresh
	// Authority at DefaultGlobalMinimum.
	Authority *Authority

	// Clock stamps messages and drives Run. Nil selects the real
	// clock.
	Clock clock.Clock

	// Logger receives the pipeline's own operational messages
	// (target failures, middleware faults). Nil discards them.
	Logger *slog.Logger
}

// Stats is a point-in-time snapshot of the pipeline's diagnostic
// counters. Drops are silent from the producer's point of view; this
// is the only place they are observable.
type Stats struct {
	// Enqueued counts messages accepted by the producer queue.
	Enqueued uint64

	// CapacityDrops counts messages rejected because the queue was
	// full at enqueue time.
	CapacityDrops uint64

	// ProducerLevelDrops counts messages suppressed by the producer
	// call site's early Authority check (no message was built).
	ProducerLevelDrops uint64

	// LevelDrops counts messages dropped by the drain-time Authority
	// re-check.
	LevelDrops uint64

	// MiddlewareVetoes counts messages dropped by a chain stage.
	MiddlewareVetoes uint64

	// MiddlewareFaults counts messages lost to a panicking chain
	// stage.
	MiddlewareFaults uint64

	// Dispatched counts messages handed to the target dispatcher.
	Dispatched uint64

	// Processed counts messages drained from the queue, regardless
	// of outcome.
	Processed uint64

	// TargetFailures sums write/flush failures across all targets.
	TargetFailures uint64

	// QueueDepth is the queue depth when the snapshot was taken.
	QueueDepth int

	// PeakQueueDepth is the highest depth observed at any flush.
	PeakQueueDepth int
}

// Manager is the drain scheduler and the producer facade. Producers
// on any goroutine call Log/LogWith; exactly one consumer goroutine
// owns Flush, Tick, Run, and all administrative mutation of the chain
// and registry.
type Manager struct {
	queue     *Queue
	authority *Authority
	chain     *Chain
	registry  *Registry

	maxBatch int
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	// sinceFlush accumulates Tick deltas; consumer-owned.
	sinceFlush time.Duration

	// batch and survivors are reused drain scratch; consumer-owned.
	batch     []Message
	survivors []*Message

	producerLevelDrops atomic.Uint64
	levelDrops         atomic.Uint64
	vetoes             atomic.Uint64
	faults             atomic.Uint64
	dispatched         atomic.Uint64
	processed          atomic.Uint64
	peakDepth          atomic.Int64
}

// NewManager constructs a pipeline manager and its owned queue,
// chain, and registry.
func NewManager(opts Options) *Manager {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.AutoFlushInterval <= 0 {
		opts.AutoFlushInterval = DefaultAutoFlushInterval
	}
	if opts.Authority == nil {
		opts.Authority = NewAuthority(DefaultGlobalMinimum)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		queue:     NewQueue(opts.QueueCapacity),
		authority: opts.Authority,
		chain:     NewChain(),
		registry:  NewRegistry(opts.Logger),
		maxBatch:  opts.MaxBatch,
		interval:  opts.AutoFlushInterval,
		clock:     opts.Clock,
		logger:    opts.Logger,
		batch:     make([]Message, opts.MaxBatch),
		survivors: make([]*Message, 0, opts.MaxBatch),
	}
}

// Authority returns the level authority for administrative use.
func (m *Manager) Authority() *Authority { return m.authority }

// Log enqueues a plain message. Callable from any goroutine,
// including allocation-restricted parallel tasks: it never blocks,
// never panics, and allocates nothing. Messages below the effective
// threshold are suppressed before a Message is even built.
func (m *Manager) Log(level Level, tag Tag, text string) {
	m.LogWith(level, tag, text, nil)
}

// LogWith enqueues a message with structured properties. Ownership of
// props transfers to the pipeline on call, even when the message is
// dropped: the pipeline releases it at the terminal state.
func (m *Manager) LogWith(level Level, tag Tag, text string, props *Properties) {
	// The early check must agree with the drain-time re-check, so a
	// category override that opens a category below the global
	// minimum is honored here too.
	category := ""
	if props != nil {
		category, _ = props.Get(CategoryKey)
	}
	if !m.authority.ShouldLog(level, tag, category) {
		m.producerLevelDrops.Add(1)
		props.Release()
		return
	}
	msg := NewMessage(level, tag, text, props, m.clock.Now())
	if !m.queue.Enqueue(msg) {
		// Queue-full is the message's terminal state; the queue
		// already counted the drop.
		props.Release()
	}
}

// AddMiddleware appends a stage to the chain. Consumer-side
// administrative call: takes effect no later than the next flush.
func (m *Manager) AddMiddleware(stage Middleware) { m.chain.Add(stage) }

// RemoveMiddleware removes a chain stage. Returns false if the stage
// was never added.
func (m *Manager) RemoveMiddleware(stage Middleware) bool { return m.chain.Remove(stage) }

// RegisterTarget adds an output target.
func (m *Manager) RegisterTarget(target Target) { m.registry.Register(target) }

// UnregisterTarget removes and closes a target. Returns false if the
// target is not registered.
func (m *Manager) UnregisterTarget(target Target) bool { return m.registry.Unregister(target) }

// Registry returns the target registry for diagnostic inspection.
func (m *Manager) Registry() *Registry { return m.registry }

// Flush drains up to MaxBatch messages and returns how many were
// processed. For each message: re-check the Authority (overrides may
// have changed since enqueue), run the middleware chain, then hand
// all survivors to the dispatcher as one batch. No failure below —
// middleware panic, target panic, target error — unwinds past Flush.
//
// Consumer goroutine only.
func (m *Manager) Flush() int {
	if depth := int64(m.queue.Depth()); depth > m.peakDepth.Load() {
		m.peakDepth.Store(depth)
	}

	count := 0
	m.survivors = m.survivors[:0]
	for count < m.maxBatch {
		msg, ok := m.queue.TryDequeue()
		if !ok {
			break
		}
		m.batch[count] = msg
		current := &m.batch[count]
		count++

		if !m.authority.ShouldLog(current.Level, current.Tag, current.Category()) {
			m.levelDrops.Add(1)
			current.release()
			continue
		}
		pass, fault := m.runChain(current)
		if fault != nil {
			m.faults.Add(1)
			m.logger.Error("middleware stage panicked; message dropped",
				"tag", current.Tag.String(), "error", fault)
			current.release()
			continue
		}
		if !pass {
			m.vetoes.Add(1)
			current.release()
			continue
		}
		m.survivors = append(m.survivors, current)
	}

	if len(m.survivors) > 0 {
		m.registry.WriteBatch(m.survivors)
		m.dispatched.Add(uint64(len(m.survivors)))
		for _, msg := range m.survivors {
			msg.release()
		}
		m.survivors = m.survivors[:0]
	}
	m.processed.Add(uint64(count))
	return count
}

// Tick accumulates elapsed host time and flushes once the auto-flush
// interval has elapsed. Returns the number of messages flushed (zero
// when the interval has not yet elapsed). Consumer goroutine only.
func (m *Manager) Tick(delta time.Duration) int {
	m.sinceFlush += delta
	if m.sinceFlush < m.interval {
		return 0
	}
	m.sinceFlush = 0
	return m.Flush()
}

// Run drives the drain loop with the manager's clock until ctx is
// cancelled, then performs a final flush. For hosts without a frame
// loop; hosts with one call Tick instead.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Flush()
			return
		case <-ticker.C:
			m.Flush()
		}
	}
}

// FlushTargets flushes every registered target's buffered output.
func (m *Manager) FlushTargets() error { return m.registry.FlushAll() }

// Close drains whatever remains in the queue (in MaxBatch-sized
// batches), flushes all targets, and closes them. The manager must
// not be used after Close.
func (m *Manager) Close() error {
	for m.Flush() > 0 {
	}
	flushErr := m.registry.FlushAll()
	closeErr := m.registry.CloseAll()
	return errors.Join(flushErr, closeErr)
}

// Stats returns a snapshot of the diagnostic counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Enqueued:           m.queue.Enqueued(),
		CapacityDrops:      m.queue.Dropped(),
		ProducerLevelDrops: m.producerLevelDrops.Load(),
		LevelDrops:         m.levelDrops.Load(),
		MiddlewareVetoes:   m.vetoes.Load(),
		MiddlewareFaults:   m.faults.Load(),
		Dispatched:         m.dispatched.Load(),
		Processed:          m.processed.Load(),
		TargetFailures:     m.registry.TotalFailures(),
		QueueDepth:         m.queue.Depth(),
		PeakQueueDepth:     int(m.peakDepth.Load()),
	}
}

// runChain runs the middleware chain with panic isolation. A panic is
// returned as an error so the caller can count and log it without the
// batch aborting.
func (m *Manager) runChain(msg *Message) (pass bool, fault error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			pass = false
			fault = fmt.Errorf("%v", recovered)
		}
	}()
	return m.chain.Process(msg), nil
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
)

// Target is the capability set the dispatcher needs from an output
// destination. Concrete implementations (console, file, sqlite,
// stream, memory) live in the target package; the pipeline only ever
// consumes this interface, constructed by configuration factories.
//
// All methods except Accepts are called only from the consumer
// goroutine, so implementations need no internal locking for Write
// paths. Targets that perform I/O must buffer internally rather than
// stall the shared consumer for unbounded periods.
type Target interface {
	// Name identifies the target in diagnostics.
	Name() string

	// Accepts applies the target's own filter policy: enabled flag,
	// minimum level, tag include/exclude sets, category include set,
	// and the process-untagged flag.
	Accepts(msg *Message) bool

	// Write delivers a single message.
	Write(msg *Message) error

	// WriteBatch delivers a batch in order. The slice and the
	// messages it points at are only valid for the duration of the
	// call.
	WriteBatch(msgs []*Message) error

	// Flush forces buffered output out.
	Flush() error

	// Close releases the target's resources. Called exactly once,
	// on unregistration or pipeline shutdown.
	Close() error
}

// TargetStatus is a diagnostic snapshot of one registered target.
type TargetStatus struct {
	Name      string
	Failures  uint64
	LastError string
}

// registration pairs a target with its failure accounting.
type registration struct {
	target Target

	failures atomic.Uint64
	// lastErr is only written from the consumer goroutine.
	lastErr error
}

// Registry holds the registered targets and dispatches surviving
// messages to every target whose filters accept them. A failing
// target is isolated: its error (or panic) is recorded against it and
// dispatch continues to the remaining targets. Registry is owned by
// the consumer goroutine and is not safe for concurrent mutation.
type Registry struct {
	entries []*registration
	logger  *slog.Logger

	// scratch is the reused per-target sub-batch buffer.
	scratch []*Message
}

// NewRegistry creates an empty registry. A nil logger discards the
// registry's own operational messages.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{logger: logger}
}

// Register adds a target. Panics on nil: passing no target is a
// programmer error. Registering the same target twice is also a
// programmer error but is tolerated (the target will receive each
// message twice).
func (r *Registry) Register(target Target) {
	if target == nil {
		panic("pipeline: Register called with nil target")
	}
	r.entries = append(r.entries, &registration{target: target})
	r.logger.Debug("log target registered", "target", target.Name())
}

// Unregister removes a target (by interface identity) and closes it.
// Returns false if the target is not registered, so unregistering
// twice yields true then false with no double close. A target of an
// uncomparable dynamic type has no usable identity and is never found.
func (r *Registry) Unregister(target Target) bool {
	if target == nil || !reflect.TypeOf(target).Comparable() {
		return false
	}
	for i, entry := range r.entries {
		if entry.target == target {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			if err := r.closeTarget(entry); err != nil {
				r.logger.Warn("log target close failed",
					"target", target.Name(), "error", err)
			}
			return true
		}
	}
	return false
}

// Len returns the number of registered targets.
func (r *Registry) Len() int { return len(r.entries) }

// Write dispatches one message to every accepting target. Used by
// low-volume direct log calls; the drain scheduler uses WriteBatch.
func (r *Registry) Write(msg *Message) {
	for _, entry := range r.entries {
		if !r.accepts(entry, msg) {
			continue
		}
		if err := r.writeOne(entry, msg); err != nil {
			r.recordFailure(entry, err, 1)
		}
	}
}

// WriteBatch dispatches a batch. Each target receives, in order, the
// subset of the batch its filters accept, via a single WriteBatch
// call. A target that fails charges one failure per message in its
// sub-batch (delivery of the whole sub-batch is in doubt).
func (r *Registry) WriteBatch(msgs []*Message) {
	for _, entry := range r.entries {
		r.scratch = r.scratch[:0]
		for _, msg := range msgs {
			if r.accepts(entry, msg) {
				r.scratch = append(r.scratch, msg)
			}
		}
		if len(r.scratch) == 0 {
			continue
		}
		if err := r.writeBatchOne(entry, r.scratch); err != nil {
			r.recordFailure(entry, err, uint64(len(r.scratch)))
		}
	}
}

// FlushAll flushes every registered target, aggregating failures
// rather than short-circuiting on the first.
func (r *Registry) FlushAll() error {
	var errs []error
	for _, entry := range r.entries {
		if err := r.flushOne(entry); err != nil {
			r.recordFailure(entry, err, 1)
			errs = append(errs, fmt.Errorf("target %s: %w", entry.target.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every registered target and empties the registry.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, entry := range r.entries {
		if err := r.closeTarget(entry); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", entry.target.Name(), err))
		}
	}
	r.entries = nil
	return errors.Join(errs...)
}

// TargetStats returns a diagnostic snapshot per registered target.
func (r *Registry) TargetStats() []TargetStatus {
	stats := make([]TargetStatus, 0, len(r.entries))
	for _, entry := range r.entries {
		status := TargetStatus{
			Name:     entry.target.Name(),
			Failures: entry.failures.Load(),
		}
		if entry.lastErr != nil {
			status.LastError = entry.lastErr.Error()
		}
		stats = append(stats, status)
	}
	return stats
}

// TotalFailures sums failure counts across all registered targets.
func (r *Registry) TotalFailures() uint64 {
	var total uint64
	for _, entry := range r.entries {
		total += entry.failures.Load()
	}
	return total
}

// accepts runs the target's filter with panic isolation. A filter
// that panics is treated as rejecting.
func (r *Registry) accepts(entry *registration, msg *Message) (ok bool) {
	defer r.recoverTarget(entry, "accepts", &ok)
	return entry.target.Accepts(msg)
}

func (r *Registry) writeOne(entry *registration, msg *Message) (err error) {
	defer r.recoverAsError(entry, "write", &err)
	return entry.target.Write(msg)
}

func (r *Registry) writeBatchOne(entry *registration, msgs []*Message) (err error) {
	defer r.recoverAsError(entry, "write_batch", &err)
	return entry.target.WriteBatch(msgs)
}

func (r *Registry) flushOne(entry *registration) (err error) {
	defer r.recoverAsError(entry, "flush", &err)
	return entry.target.Flush()
}

func (r *Registry) closeTarget(entry *registration) (err error) {
	defer r.recoverAsError(entry, "close", &err)
	return entry.target.Close()
}

// recoverTarget converts a panic in a boolean-returning target call
// into a recorded failure and a false result.
func (r *Registry) recoverTarget(entry *registration, op string, ok *bool) {
	if recovered := recover(); recovered != nil {
		*ok = false
		r.recordFailure(entry, fmt.Errorf("panic in %s: %v", op, recovered), 1)
	}
}

// recoverAsError converts a panic in an error-returning target call
// into an error so the usual failure accounting applies.
func (r *Registry) recoverAsError(entry *registration, op string, err *error) {
	if recovered := recover(); recovered != nil {
		*err = fmt.Errorf("panic in %s: %v", op, recovered)
	}
}

func (r *Registry) recordFailure(entry *registration, err error, count uint64) {
	entry.failures.Add(count)
	entry.lastErr = err
	r.logger.Warn("log target failure",
		"target", entry.target.Name(), "error", err)
}

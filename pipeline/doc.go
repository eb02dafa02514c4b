// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements Lantern's log pipeline core: a
// multi-producer, single-consumer message pipeline that accepts log
// entries from allocation-restricted concurrent callers and fans them
// out to registered output targets on one consumer goroutine.
//
// The flow is: producers call [Manager.Log], which consults the
// [Authority] (cheap early-out), stamps a [Message], and enqueues it
// on the lock-free [Queue]. The host calls [Manager.Tick] once per
// frame (or [Manager.Run] drives a ticker); each elapsed auto-flush
// interval triggers [Manager.Flush], which drains a bounded batch,
// re-evaluates the Authority, runs the middleware [Chain], and hands
// survivors to the [Registry] for per-target filtered dispatch.
//
// Only the Queue and the Authority are safe for concurrent access.
// Everything downstream — the Chain, the Registry, and the targets
// themselves — is owned by the single consumer goroutine, so target
// and middleware implementations can stay simple and lock-free.
// Administrative mutations (register/unregister targets, add/remove
// middleware) must happen on the consumer goroutine or be sequenced
// before the next Flush/Tick by the caller.
//
// Nothing unwinds past Flush or Tick: a panicking middleware stage
// drops only its own message, and a panicking target loses only its
// own delivery. Failures are absorbed into counters exposed through
// [Manager.Stats] and [Registry.TargetStats].
package pipeline

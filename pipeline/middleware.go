// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "reflect"

// Middleware is one stage of the filter/enrichment chain. Process
// returns true to pass the message along and false to veto it. A
// stage may enrich the message's properties in place before
// returning. Vetoing is the only way a stage removes a message; the
// chain, not the stage, owns control flow, so a stage cannot
// accidentally truncate the chain by forgetting to delegate.
//
// Middleware runs on the consumer goroutine only and need not be safe
// for concurrent use. A stage must not release the message's
// properties — the drain scheduler owns the terminal state.
type Middleware interface {
	Process(msg *Message) bool
}

// MiddlewareFunc adapts a function to the Middleware interface. Func
// values are not comparable, so a MiddlewareFunc stage cannot be
// removed with [Chain.Remove]; use a named stage type when removal is
// needed.
type MiddlewareFunc func(msg *Message) bool

// Process calls the function.
func (f MiddlewareFunc) Process(msg *Message) bool { return f(msg) }

// Chain is an ordered middleware sequence. Stages run in insertion
// order; the first veto short-circuits the rest. The chain is an
// explicit slice rather than intrusive next pointers so stages carry
// no linkage state and removal is a simple splice.
//
// Chain is owned by the consumer goroutine and is not safe for
// concurrent mutation.
type Chain struct {
	stages []Middleware
}

// NewChain creates an empty chain.
func NewChain() *Chain { return &Chain{} }

// Add appends a stage. Panics on nil: a nil stage is a programmer
// error caught at the call boundary, not a runtime condition.
func (c *Chain) Add(stage Middleware) {
	if stage == nil {
		panic("pipeline: Chain.Add called with nil middleware")
	}
	c.stages = append(c.stages, stage)
}

// Remove removes the first stage equal to the given one (interface
// identity). Returns false if the stage is not in the chain. A stage
// of an uncomparable dynamic type, such as a [MiddlewareFunc], has no
// usable identity and is never found; stages that need removal should
// be declared as pointer or named comparable types.
func (c *Chain) Remove(stage Middleware) bool {
	if stage == nil || !reflect.TypeOf(stage).Comparable() {
		return false
	}
	for i, existing := range c.stages {
		if existing == stage {
			c.stages = append(c.stages[:i], c.stages[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.stages) }

// Process runs the message through every stage in insertion order.
// Returns false as soon as any stage vetoes.
func (c *Chain) Process(msg *Message) bool {
	for _, stage := range c.stages {
		if !stage.Process(msg) {
			return false
		}
	}
	return true
}

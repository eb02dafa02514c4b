// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "sync"

// Bounds for property keys and values. Oversized input is truncated
// at a UTF-8 rune boundary, mirroring message text handling.
const (
	PropertyKeyMax   = 64
	PropertyValueMax = 256
)

// CategoryKey is the property key carrying a message's category, the
// secondary free-text grouping used for category-level overrides.
const CategoryKey = "category"

// Property is one key/value pair of structured context.
type Property struct {
	Key   string
	Value string
}

// Properties is an ordered list of key/value pairs attached to a
// message. Containers are pooled: obtain one with [NewProperties],
// populate it, hand it to [Manager.LogWith] (which transfers
// ownership into the pipeline), and the pipeline releases it exactly
// once when the message reaches a terminal state. A caller that never
// enqueues the container must call Release itself.
//
// Properties is not safe for concurrent use. After the owning message
// enters the queue, only the consumer goroutine touches it.
type Properties struct {
	pairs    []Property
	released bool
}

var propertiesPool = sync.Pool{
	New: func() any {
		return &Properties{pairs: make([]Property, 0, 8)}
	},
}

// NewProperties returns an empty container from the pool.
func NewProperties() *Properties {
	props := propertiesPool.Get().(*Properties)
	props.pairs = props.pairs[:0]
	props.released = false
	return props
}

// Set appends a key/value pair, preserving insertion order. Keys and
// values beyond their bounds are truncated, not rejected. Duplicate
// keys are allowed; [Properties.Get] returns the first match.
func (p *Properties) Set(key, value string) {
	if len(key) > PropertyKeyMax {
		key = key[:truncateUTF8(key, PropertyKeyMax)]
	}
	if len(value) > PropertyValueMax {
		value = value[:truncateUTF8(value, PropertyValueMax)]
	}
	p.pairs = append(p.pairs, Property{Key: key, Value: value})
}

// Get returns the value for the first pair with the given key.
func (p *Properties) Get(key string) (string, bool) {
	for _, pair := range p.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

// Len returns the number of pairs.
func (p *Properties) Len() int { return len(p.pairs) }

// At returns the pair at index i in insertion order.
func (p *Properties) At(i int) Property { return p.pairs[i] }

// Release returns the container to the pool. Releasing nil or an
// already-released container is a no-op, so the single-release
// invariant cannot turn into a double-free under failure paths.
func (p *Properties) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	p.pairs = p.pairs[:0]
	propertiesPool.Put(p)
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// TagFilter is a middleware stage that vetoes messages by tag. If the
// include set is non-empty, a message's tag must be in it; a tag in
// the exclude set is vetoed regardless. Untagged messages pass unless
// ProcessUntagged is false.
type TagFilter struct {
	Include         map[Tag]struct{}
	Exclude         map[Tag]struct{}
	ProcessUntagged bool
}

// NewTagFilter builds a tag filter from tag lists. Untagged messages
// pass by default.
func NewTagFilter(include, exclude []Tag) *TagFilter {
	filter := &TagFilter{ProcessUntagged: true}
	if len(include) > 0 {
		filter.Include = make(map[Tag]struct{}, len(include))
		for _, tag := range include {
			filter.Include[tag] = struct{}{}
		}
	}
	if len(exclude) > 0 {
		filter.Exclude = make(map[Tag]struct{}, len(exclude))
		for _, tag := range exclude {
			filter.Exclude[tag] = struct{}{}
		}
	}
	return filter
}

// Process implements Middleware.
func (f *TagFilter) Process(msg *Message) bool {
	if msg.Tag.IsZero() {
		return f.ProcessUntagged
	}
	if _, excluded := f.Exclude[msg.Tag]; excluded {
		return false
	}
	if len(f.Include) > 0 {
		_, included := f.Include[msg.Tag]
		return included
	}
	return true
}

// Enricher is a middleware stage that adds fixed and computed
// properties to every message it sees. It never vetoes. Messages
// without a properties container get one from the pool.
type Enricher struct {
	fixed    []Property
	computed []computedProperty
}

type computedProperty struct {
	key string
	fn  func(msg *Message) string
}

// NewEnricher creates an enricher with the given fixed pairs.
func NewEnricher(fixed ...Property) *Enricher {
	return &Enricher{fixed: fixed}
}

// AddComputed registers a property whose value is computed per
// message at enrichment time.
func (e *Enricher) AddComputed(key string, fn func(msg *Message) string) {
	e.computed = append(e.computed, computedProperty{key: key, fn: fn})
}

// Process implements Middleware.
func (e *Enricher) Process(msg *Message) bool {
	if len(e.fixed) == 0 && len(e.computed) == 0 {
		return true
	}
	props := msg.Properties()
	if props == nil {
		props = NewProperties()
		msg.SetProperties(props)
	}
	for _, pair := range e.fixed {
		props.Set(pair.Key, pair.Value)
	}
	for _, cp := range e.computed {
		props.Set(cp.key, cp.fn(msg))
	}
	return true
}

// DynamicLevelFilter is a middleware stage that re-applies the
// Authority's predicate using the category carried in the message's
// properties. Useful when earlier stages attach the category, since
// the scheduler's own re-check ran before the chain.
type DynamicLevelFilter struct {
	authority *Authority
}

// NewDynamicLevelFilter creates the stage. Panics on nil authority.
func NewDynamicLevelFilter(authority *Authority) *DynamicLevelFilter {
	if authority == nil {
		panic("pipeline: NewDynamicLevelFilter called with nil authority")
	}
	return &DynamicLevelFilter{authority: authority}
}

// Process implements Middleware.
func (f *DynamicLevelFilter) Process(msg *Message) bool {
	return f.authority.ShouldLog(msg.Level, msg.Tag, msg.Category())
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sync"
	"sync/atomic"
)

// DefaultGlobalMinimum is the global minimum level a fresh Authority
// starts with, and the level ResetToDefaults restores.
const DefaultGlobalMinimum = LevelInfo

// Profile is a named bundle of level overrides that can be applied
// atomically, e.g. a "capture" profile that opens Physics and Audio
// to Trace while everything else stays at the global minimum.
type Profile struct {
	Name              string
	TagOverrides      map[Tag]Level
	CategoryOverrides map[string]Level
}

// overrideSet is an immutable snapshot of all overrides. Mutators
// build a new set and swap the pointer, so readers always observe
// either the old or the new set in full, never a partial mix.
type overrideSet struct {
	profile    string
	tags       map[Tag]Level
	categories map[string]Level
}

var emptyOverrides = &overrideSet{}

// Authority owns the dynamic level state: the global minimum plus
// per-tag and per-category overrides. ShouldLog is consulted on every
// producer call site and again at drain time (overrides may change
// between enqueue and drain — both checks are intentional).
//
// Reads are lock-free. Mutations are copy-on-write and may come from
// any goroutine; they take effect no later than the next drain cycle.
type Authority struct {
	globalMin atomic.Int32
	overrides atomic.Pointer[overrideSet]

	// mu serializes mutators so concurrent copy-on-write updates
	// cannot lose each other's changes. Readers never take it.
	mu sync.Mutex
}

// NewAuthority creates an Authority with the given global minimum and
// no overrides.
func NewAuthority(globalMinimum Level) *Authority {
	a := &Authority{}
	a.globalMin.Store(int32(globalMinimum))
	a.overrides.Store(emptyOverrides)
	return a
}

// GlobalMinimum returns the global minimum level.
func (a *Authority) GlobalMinimum() Level {
	return Level(a.globalMin.Load())
}

// SetGlobalMinimum replaces the global minimum level.
func (a *Authority) SetGlobalMinimum(level Level) {
	a.globalMin.Store(int32(level))
}

// ShouldLog is the hot-path predicate. The effective threshold is the
// tag override if present, else the category override if present,
// else the global minimum; the message passes if level ≥ threshold.
func (a *Authority) ShouldLog(level Level, tag Tag, category string) bool {
	set := a.overrides.Load()
	if !tag.IsZero() {
		if threshold, ok := set.tags[tag]; ok {
			return level >= threshold
		}
	}
	if category != "" {
		if threshold, ok := set.categories[category]; ok {
			return level >= threshold
		}
	}
	return level >= Level(a.globalMin.Load())
}

// EffectiveThreshold returns the minimum level that applies to the
// given tag/category pair. Diagnostic counterpart of ShouldLog.
func (a *Authority) EffectiveThreshold(tag Tag, category string) Level {
	set := a.overrides.Load()
	if !tag.IsZero() {
		if threshold, ok := set.tags[tag]; ok {
			return threshold
		}
	}
	if category != "" {
		if threshold, ok := set.categories[category]; ok {
			return threshold
		}
	}
	return Level(a.globalMin.Load())
}

// SetTagOverride sets the minimum level for one tag.
func (a *Authority) SetTagOverride(tag Tag, level Level) {
	if tag.IsZero() {
		return
	}
	a.mutate(func(set *overrideSet) {
		set.tags[tag] = level
	})
}

// RemoveTagOverride removes a tag override. Returns false if no
// override existed.
func (a *Authority) RemoveTagOverride(tag Tag) bool {
	removed := false
	a.mutate(func(set *overrideSet) {
		if _, ok := set.tags[tag]; ok {
			delete(set.tags, tag)
			removed = true
		}
	})
	return removed
}

// SetCategoryOverride sets the minimum level for one category.
func (a *Authority) SetCategoryOverride(category string, level Level) {
	if category == "" {
		return
	}
	a.mutate(func(set *overrideSet) {
		set.categories[category] = level
	})
}

// RemoveCategoryOverride removes a category override. Returns false
// if no override existed.
func (a *Authority) RemoveCategoryOverride(category string) bool {
	removed := false
	a.mutate(func(set *overrideSet) {
		if _, ok := set.categories[category]; ok {
			delete(set.categories, category)
			removed = true
		}
	})
	return removed
}

// ApplyProfile atomically replaces all overrides with the profile's.
// Concurrent readers observe either the previous override set or the
// profile's, never a mix.
func (a *Authority) ApplyProfile(profile Profile) {
	set := &overrideSet{
		profile:    profile.Name,
		tags:       make(map[Tag]Level, len(profile.TagOverrides)),
		categories: make(map[string]Level, len(profile.CategoryOverrides)),
	}
	for tag, level := range profile.TagOverrides {
		set.tags[tag] = level
	}
	for category, level := range profile.CategoryOverrides {
		set.categories[category] = level
	}
	a.mu.Lock()
	a.overrides.Store(set)
	a.mu.Unlock()
}

// ActiveProfile returns the name of the most recently applied
// profile, or "" if none is active.
func (a *Authority) ActiveProfile() string {
	return a.overrides.Load().profile
}

// ResetToDefaults clears all overrides, the active profile, and
// restores the default global minimum.
func (a *Authority) ResetToDefaults() {
	a.mu.Lock()
	a.overrides.Store(emptyOverrides)
	a.mu.Unlock()
	a.globalMin.Store(int32(DefaultGlobalMinimum))
}

// mutate applies fn to a deep copy of the current override set and
// publishes the copy. The active profile name is preserved.
func (a *Authority) mutate(fn func(*overrideSet)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.overrides.Load()
	next := &overrideSet{
		profile:    current.profile,
		tags:       make(map[Tag]Level, len(current.tags)+1),
		categories: make(map[string]Level, len(current.categories)+1),
	}
	for tag, level := range current.tags {
		next.tags[tag] = level
	}
	for category, level := range current.categories {
		next.categories[category] = level
	}
	fn(next)
	a.overrides.Store(next)
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"
	"time"
)

func chainMessage(level Level, tag Tag) Message {
	return NewMessage(level, tag, "text", nil, time.Now())
}

func TestChainInsertionOrder(t *testing.T) {
	t.Parallel()
	chain := NewChain()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		chain.Add(MiddlewareFunc(func(*Message) bool {
			order = append(order, i)
			return true
		}))
	}

	msg := chainMessage(LevelInfo, Tag{})
	if !chain.Process(&msg) {
		t.Fatal("chain vetoed unexpectedly")
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("stage order: got %v, want [1 2 3]", order)
	}
}

func TestChainVetoShortCircuits(t *testing.T) {
	t.Parallel()
	chain := NewChain()
	afterVetoRan := false
	chain.Add(MiddlewareFunc(func(*Message) bool { return false }))
	chain.Add(MiddlewareFunc(func(*Message) bool {
		afterVetoRan = true
		return true
	}))

	msg := chainMessage(LevelInfo, Tag{})
	if chain.Process(&msg) {
		t.Error("chain should report the veto")
	}
	if afterVetoRan {
		t.Error("stage after the veto must not run")
	}
}

func TestChainRemove(t *testing.T) {
	t.Parallel()
	chain := NewChain()
	stage := NewTagFilter(nil, []Tag{TagAudio})
	chain.Add(stage)
	if chain.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", chain.Len())
	}
	if !chain.Remove(stage) {
		t.Error("removing a present stage should return true")
	}
	if chain.Remove(stage) {
		t.Error("removing an absent stage should return false")
	}
	if chain.Len() != 0 {
		t.Errorf("Len after removal: got %d, want 0", chain.Len())
	}
}

func TestChainRemoveFuncStage(t *testing.T) {
	t.Parallel()
	chain := NewChain()
	stage := MiddlewareFunc(func(*Message) bool { return true })
	chain.Add(stage)

	// Func values have no usable identity, so removal must report
	// failure instead of panicking on the comparison.
	if chain.Remove(stage) {
		t.Error("Remove should not find a func stage")
	}
	if chain.Remove(MiddlewareFunc(func(*Message) bool { return true })) {
		t.Error("Remove should not find a distinct func stage")
	}
	if chain.Remove(nil) {
		t.Error("Remove(nil) should return false")
	}
	if chain.Len() != 1 {
		t.Errorf("Len: got %d, want 1", chain.Len())
	}
}

func TestChainAddNilPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("Add(nil) should panic")
		}
	}()
	NewChain().Add(nil)
}

func TestTagFilter(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		filter *TagFilter
		tag    Tag
		want   bool
	}{
		{"no sets accepts", NewTagFilter(nil, nil), TagAudio, true},
		{"include hit", NewTagFilter([]Tag{TagAudio}, nil), TagAudio, true},
		{"include miss", NewTagFilter([]Tag{TagAudio}, nil), TagPhysics, false},
		{"exclude hit", NewTagFilter(nil, []Tag{TagAudio}), TagAudio, false},
		{"exclude beats include", NewTagFilter([]Tag{TagAudio}, []Tag{TagAudio}), TagAudio, false},
		{"untagged default", NewTagFilter([]Tag{TagAudio}, nil), Tag{}, true},
	}
	for _, tc := range cases {
		msg := chainMessage(LevelInfo, tc.tag)
		if got := tc.filter.Process(&msg); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	noUntagged := NewTagFilter(nil, nil)
	noUntagged.ProcessUntagged = false
	msg := chainMessage(LevelInfo, Tag{})
	if noUntagged.Process(&msg) {
		t.Error("untagged message should be vetoed when ProcessUntagged is false")
	}
}

func TestEnricherAddsProperties(t *testing.T) {
	t.Parallel()
	enricher := NewEnricher(Property{Key: "build", Value: "1.4.2"})
	enricher.AddComputed("level_name", func(msg *Message) string {
		return msg.Level.String()
	})

	// Message without properties gets a container.
	msg := chainMessage(LevelWarning, TagAudio)
	if !enricher.Process(&msg) {
		t.Fatal("enricher should never veto")
	}
	props := msg.Properties()
	if props == nil {
		t.Fatal("enricher did not attach properties")
	}
	if value, _ := props.Get("build"); value != "1.4.2" {
		t.Errorf("build property: got %q", value)
	}
	if value, _ := props.Get("level_name"); value != "warning" {
		t.Errorf("level_name property: got %q", value)
	}
	msg.release()

	// Message with existing properties keeps them and gains the new
	// ones.
	existing := NewProperties()
	existing.Set("session", "abc")
	msg2 := NewMessage(LevelInfo, Tag{}, "x", existing, time.Now())
	enricher.Process(&msg2)
	if value, _ := msg2.Properties().Get("session"); value != "abc" {
		t.Error("existing property lost during enrichment")
	}
	if value, _ := msg2.Properties().Get("build"); value != "1.4.2" {
		t.Error("fixed property not added to existing container")
	}
	msg2.release()
}

func TestDynamicLevelFilter(t *testing.T) {
	t.Parallel()
	authority := NewAuthority(LevelDebug)
	authority.SetCategoryOverride("Streaming", LevelError)
	filter := NewDynamicLevelFilter(authority)

	props := NewProperties()
	props.Set(CategoryKey, "Streaming")
	msg := NewMessage(LevelWarning, Tag{}, "stall", props, time.Now())
	if filter.Process(&msg) {
		t.Error("warning in Streaming category should be vetoed")
	}
	msg.release()

	plain := chainMessage(LevelWarning, Tag{})
	if !filter.Process(&plain) {
		t.Error("warning without category should pass the global minimum")
	}
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowAdvances(t *testing.T) {
	t.Parallel()
	start := time.Unix(1000, 0)
	c := Fake(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now: got %v, want %v", c.Now(), start)
	}
	c.Advance(3 * time.Second)
	if want := start.Add(3 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now after Advance: got %v, want %v", c.Now(), want)
	}
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))
	ch := c.After(5 * time.Second)

	c.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should deliver immediately")
	}
}

func TestFakeTickerFiresPerInterval(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	// The channel holds one tick; without a reader between intervals
	// additional ticks are dropped, matching time.Ticker.
	c.Advance(time.Second)
	<-ticker.C
	c.Advance(2 * time.Second)
	<-ticker.C

	c.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired between intervals")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount after stop: got %d, want 0", c.PendingCount())
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))

	registered := make(chan struct{})
	go func() {
		c.After(time.Minute)
		close(registered)
	}()

	c.WaitForTimers(1)
	<-registered
	if c.PendingCount() != 1 {
		t.Errorf("PendingCount: got %d, want 1", c.PendingCount())
	}
}

func TestFakeSleepReturnsOnAdvance(t *testing.T) {
	t.Parallel()
	c := Fake(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		c.Sleep(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after the clock advanced")
	}
}

func TestRealClockNow(t *testing.T) {
	t.Parallel()
	before := time.Now()
	got := Real().Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Real().Now() = %v outside [%v, %v]", got, before, after)
	}
}

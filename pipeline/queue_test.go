// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testMessage(text string) Message {
	return NewMessage(LevelInfo, TagSystem, text, nil, time.Now())
}

func TestQueueCapacityRounding(t *testing.T) {
	t.Parallel()
	if got := NewQueue(0).Capacity(); got != DefaultQueueCapacity {
		t.Errorf("default capacity: got %d, want %d", got, DefaultQueueCapacity)
	}
	if got := NewQueue(100).Capacity(); got != 128 {
		t.Errorf("capacity 100: got %d, want 128", got)
	}
	if got := NewQueue(128).Capacity(); got != 128 {
		t.Errorf("capacity 128: got %d, want 128", got)
	}
}

func TestQueueFIFO(t *testing.T) {
	t.Parallel()
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		if !q.Enqueue(testMessage(fmt.Sprintf("m%d", i))) {
			t.Fatalf("Enqueue m%d failed", i)
		}
	}
	for i := 0; i < 5; i++ {
		msg, ok := q.TryDequeue()
		if !ok {
			t.Fatalf("TryDequeue %d: queue empty", i)
		}
		if want := fmt.Sprintf("m%d", i); msg.Text() != want {
			t.Errorf("dequeue %d: got %q, want %q", i, msg.Text(), want)
		}
	}
	if _, ok := q.TryDequeue(); ok {
		t.Error("TryDequeue on empty queue returned a message")
	}
}

func TestQueueFullDropsSilently(t *testing.T) {
	t.Parallel()
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		if !q.Enqueue(testMessage("fill")) {
			t.Fatalf("Enqueue %d failed before capacity", i)
		}
	}
	if q.Enqueue(testMessage("overflow")) {
		t.Error("Enqueue succeeded on a full queue")
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped: got %d, want 1", q.Dropped())
	}
	if q.Enqueued() != 4 {
		t.Errorf("Enqueued: got %d, want 4", q.Enqueued())
	}

	// Draining one slot makes room again.
	if _, ok := q.TryDequeue(); !ok {
		t.Fatal("TryDequeue failed on full queue")
	}
	if !q.Enqueue(testMessage("after-drain")) {
		t.Error("Enqueue failed after drain made room")
	}
}

func TestQueueDepth(t *testing.T) {
	t.Parallel()
	q := NewQueue(8)
	if q.Depth() != 0 {
		t.Errorf("empty depth: got %d", q.Depth())
	}
	q.Enqueue(testMessage("a"))
	q.Enqueue(testMessage("b"))
	if q.Depth() != 2 {
		t.Errorf("depth: got %d, want 2", q.Depth())
	}
	q.TryDequeue()
	if q.Depth() != 1 {
		t.Errorf("depth after dequeue: got %d, want 1", q.Depth())
	}
}

func TestQueueWrapAround(t *testing.T) {
	t.Parallel()
	q := NewQueue(4)
	// Cycle through the ring several laps to exercise sequence
	// wrap handling.
	for lap := 0; lap < 10; lap++ {
		for i := 0; i < 4; i++ {
			if !q.Enqueue(testMessage(fmt.Sprintf("%d-%d", lap, i))) {
				t.Fatalf("lap %d: Enqueue %d failed", lap, i)
			}
		}
		for i := 0; i < 4; i++ {
			msg, ok := q.TryDequeue()
			if !ok {
				t.Fatalf("lap %d: TryDequeue %d failed", lap, i)
			}
			if want := fmt.Sprintf("%d-%d", lap, i); msg.Text() != want {
				t.Errorf("lap %d: got %q, want %q", lap, msg.Text(), want)
			}
		}
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()
	const producers = 8
	const perProducer = 500

	q := NewQueue(producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !q.Enqueue(testMessage(fmt.Sprintf("p%d-%d", p, i))) {
					t.Errorf("producer %d: enqueue %d rejected with spare capacity", p, i)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	// Drain everything and verify per-producer FIFO: message i from
	// producer p must appear before message i+1 from producer p.
	lastSeen := make(map[int]int, producers)
	for p := 0; p < producers; p++ {
		lastSeen[p] = -1
	}
	drained := 0
	for {
		msg, ok := q.TryDequeue()
		if !ok {
			break
		}
		drained++
		var p, i int
		if _, err := fmt.Sscanf(msg.Text(), "p%d-%d", &p, &i); err != nil {
			t.Fatalf("unparseable message %q: %v", msg.Text(), err)
		}
		if i != lastSeen[p]+1 {
			t.Fatalf("producer %d: saw %d after %d (per-producer FIFO violated)", p, i, lastSeen[p])
		}
		lastSeen[p] = i
	}
	if drained != producers*perProducer {
		t.Errorf("drained %d, want %d", drained, producers*perProducer)
	}
}

func TestQueueConcurrentProducersWithConsumer(t *testing.T) {
	t.Parallel()
	const producers = 4
	const perProducer = 2000

	q := NewQueue(64)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(testMessage("m")) // drops allowed under pressure
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	var received uint64
	for {
		if _, ok := q.TryDequeue(); ok {
			received++
			continue
		}
		select {
		case <-done:
			// Producers finished; drain the remainder.
			for {
				if _, ok := q.TryDequeue(); !ok {
					total := received + q.Dropped()
					if total != producers*perProducer {
						t.Errorf("received %d + dropped %d = %d, want %d",
							received, q.Dropped(), total, producers*perProducer)
					}
					return
				}
				received++
			}
		default:
		}
	}
}

// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "sync/atomic"

// DefaultQueueCapacity is the default producer queue size. A few
// hundred slots absorbs a full frame of chatty logging between drains
// without holding a large idle allocation.
const DefaultQueueCapacity = 256

// slot is one pre-allocated ring cell. The sequence number implements
// the Vyukov bounded-queue protocol: seq == position means free to
// write, seq == position+1 means ready to read.
type slot struct {
	seq atomic.Uint64
	msg Message
}

// Queue is a bounded multi-producer, single-consumer message queue.
// All storage is allocated once at construction; Enqueue performs no
// heap allocation and no unbounded waits, so it is safe to call from
// latency-critical parallel tasks. Enqueue may be called from any
// number of goroutines concurrently. TryDequeue must only ever be
// called from the single designated consumer.
//
// A full queue drops silently: Enqueue returns false, increments the
// dropped counter, and never blocks or panics.
type Queue struct {
	slots []slot
	mask  uint64

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64

	enqueued atomic.Uint64
	dropped  atomic.Uint64
}

// NewQueue creates a queue with at least the given capacity, rounded
// up to a power of two. Zero or negative capacity selects
// DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &Queue{
		slots: make([]slot, size),
		mask:  uint64(size - 1),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Capacity returns the fixed slot count.
func (q *Queue) Capacity() int { return len(q.slots) }

// Enqueue offers a message to the queue. Returns false if the queue
// is full; the message is then dropped and counted, and the caller
// retains ownership of any properties attached to it. The only
// contention is a bounded CAS retry against other producers.
func (q *Queue) Enqueue(msg Message) bool {
	pos := q.enqueuePos.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				s.msg = msg
				s.seq.Store(pos + 1)
				q.enqueued.Add(1)
				return true
			}
			pos = q.enqueuePos.Load()
		case diff < 0:
			// The slot still holds an unconsumed message from one
			// lap ago: the ring is full.
			q.dropped.Add(1)
			return false
		default:
			// Another producer claimed this position; reload.
			pos = q.enqueuePos.Load()
		}
	}
}

// TryDequeue removes the oldest message. Returns false when the queue
// is empty. Single-consumer only: concurrent TryDequeue calls corrupt
// the ring.
func (q *Queue) TryDequeue() (Message, bool) {
	pos := q.dequeuePos.Load()
	s := &q.slots[pos&q.mask]
	seq := s.seq.Load()
	if int64(seq)-int64(pos+1) < 0 {
		return Message{}, false
	}
	msg := s.msg
	// Clear the slot so the ring does not pin a properties container
	// until the slot is overwritten a lap later.
	s.msg = Message{}
	s.seq.Store(pos + uint64(len(q.slots)))
	q.dequeuePos.Store(pos + 1)
	return msg, true
}

// Depth returns the approximate number of queued messages. Exact when
// no enqueue is in flight.
func (q *Queue) Depth() int {
	depth := int64(q.enqueuePos.Load()) - int64(q.dequeuePos.Load())
	if depth < 0 {
		return 0
	}
	return int(depth)
}

// Enqueued returns the total number of messages accepted.
func (q *Queue) Enqueued() uint64 { return q.enqueued.Load() }

// Dropped returns the total number of messages rejected because the
// queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

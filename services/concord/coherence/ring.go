// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coherence

// ringBuffer is a fixed-size circular buffer holding the most recent
// items pushed into it. When full, the oldest item is overwritten.
//
// Thread Safety: NOT safe for concurrent use; the tracker serializes
// access under its own lock.
type ringBuffer[T any] struct {
	data  []T
	head  int // next write position
	tail  int // oldest element position
	count int
	full  bool
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ringBuffer[T]{data: make([]T, capacity)}
}

// push adds an item, evicting the oldest when at capacity.
func (r *ringBuffer[T]) push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)

	if r.full {
		r.tail = (r.tail + 1) % len(r.data)
	} else {
		r.count++
		if r.count == len(r.data) {
			r.full = true
		}
	}
}

// slice returns a copy of the buffered items, oldest first.
func (r *ringBuffer[T]) slice() []T {
	if r.count == 0 {
		return nil
	}

	result := make([]T, r.count)
	if r.full {
		n := copy(result, r.data[r.tail:])
		copy(result[n:], r.data[:r.head])
	} else {
		copy(result, r.data[r.tail:r.tail+r.count])
	}
	return result
}

func (r *ringBuffer[T]) len() int { return r.count }

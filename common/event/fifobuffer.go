/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package event

import (
	"sync"
)

// FifoBuffer is a goroutine-safe queue whose PopMultiple blocks until data
// is available or the buffer is released.
type FifoBuffer[T any] struct {
	lock     sync.Mutex
	cond     *sync.Cond
	buffer   []T
	released bool
}

func NewFifoBuffer[T any]() *FifoBuffer[T] {
	b := &FifoBuffer[T]{}
	b.cond = sync.NewCond(&b.lock)
	return b
}

func (b *FifoBuffer[T]) Push(value T) {
	b.lock.Lock()
	b.buffer = append(b.buffer, value)
	b.cond.Signal()
	b.lock.Unlock()
}

// PopMultiple returns at most n values. Once the buffer is released it
// keeps returning what is left, then nil.
func (b *FifoBuffer[T]) PopMultiple(n uint) []T {
	b.lock.Lock()
	defer b.lock.Unlock()

	for len(b.buffer) == 0 {
		if b.released {
			return nil
		}
		b.cond.Wait()
	}

	count := len(b.buffer)
	if uint(count) > n {
		count = int(n)
	}
	result := make([]T, count)
	copy(result, b.buffer[:count])
	b.buffer = b.buffer[count:]
	return result
}

func (b *FifoBuffer[T]) Length() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.buffer)
}

// Release wakes every waiting PopMultiple; it cannot be undone.
func (b *FifoBuffer[T]) Release() {
	b.lock.Lock()
	b.released = true
	b.cond.Broadcast()
	b.lock.Unlock()
}

package resource

import (
	"sync"

	"github.com/wippyai/owned"
)

// LocalBackend is an in-memory slot store of owned pointers with borrow
// tracking. It never destroys anything itself: pointers leave the backend
// through Take or Close and the caller decides what to do with them.
type LocalBackend[T any] struct {
	entries  []entry[T]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry[T any] struct {
	ptr         *owned.Pointer[T]
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[T any]() *LocalBackend[T] {
	return &LocalBackend[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create moves ownership out of p into a new slot and returns its handle.
// p is left untouched when the backend is closed.
func (b *LocalBackend[T]) Create(p *owned.Pointer[T]) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry[T]{
		ptr:   p.Take(),
		valid: true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// Get returns the owned value behind handle without transferring ownership.
func (b *LocalBackend[T]) Get(handle Handle) (*T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return e.ptr.Get(), true
}

// Take removes the slot and returns its pointer. It fails while borrows
// are outstanding.
func (b *LocalBackend[T]) Take(handle Handle) (*owned.Pointer[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	e, ok := b.lookup(handle)
	if !ok {
		return nil, ErrInvalidHandle
	}
	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}

	p := e.ptr
	*e = entry[T]{}
	b.freeList = append(b.freeList, handle)
	return p, nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend[T]) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok {
		return false
	}
	e.borrowCount++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend[T]) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

// Borrows returns the outstanding borrow count for a handle.
func (b *LocalBackend[T]) Borrows(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return 0, false
	}
	return e.borrowCount, true
}

// Len returns the number of active resources.
func (b *LocalBackend[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all active resources.
func (b *LocalBackend[T]) Each(fn func(Handle, *T) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.ptr.Get()) {
				break
			}
		}
	}
}

// Close marks the backend closed and hands back every live pointer,
// borrowed or not. Closing twice returns nothing.
func (b *LocalBackend[T]) Close() []*owned.Pointer[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []*owned.Pointer[T]
	for i := range b.entries {
		if b.entries[i].valid {
			live = append(live, b.entries[i].ptr)
		}
	}

	b.entries = nil
	b.freeList = nil
	return live
}

// lookup must be called with mu held.
func (b *LocalBackend[T]) lookup(handle Handle) (*entry[T], bool) {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil, false
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return nil, false
	}
	return e, true
}

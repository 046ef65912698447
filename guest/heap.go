package guest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Heap is a host-side bump allocator implementing cabi_realloc over a
// virtual address range. It tracks live blocks and panics on frees of
// unknown pointers, which wazero reports to the caller as a call error.
type Heap struct {
	live  map[uint32]uint32
	next  uint32
	limit uint32
	mu    sync.Mutex
}

// NewHeap creates a heap handing out addresses in [base, limit).
// base must be non-zero since 0 signals allocation failure.
func NewHeap(base, limit uint32) *Heap {
	if base == 0 {
		base = 8
	}
	return &Heap{
		live:  make(map[uint32]uint32),
		next:  base,
		limit: limit,
	}
}

// Instantiate exports the heap's cabi_realloc as a host module named name,
// which guests can import their allocator from. Host modules do not expose
// exports to the embedder, so it also instantiates a guest module
// "<name>.guest" that imports name.cabi_realloc and re-exports it; that
// module is returned and can be passed to NewAllocator.
func (h *Heap) Instantiate(ctx context.Context, r wazero.Runtime, name string) (api.Module, error) {
	_, err := r.NewHostModuleBuilder(name).
		NewFunctionBuilder().
		WithFunc(h.Realloc).
		Export(ReallocExport).
		Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	return r.InstantiateWithConfig(ctx, reexportModule(name),
		wazero.NewModuleConfig().WithName(name+".guest"))
}

// Realloc implements cabi_realloc(old_ptr, old_size, align, new_size).
func (h *Heap) Realloc(_ context.Context, oldPtr, oldSize, align, newSize uint32) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if oldPtr != 0 {
		size, ok := h.live[oldPtr]
		if !ok {
			panic(fmt.Sprintf("cabi_realloc: free of unknown pointer %#x", oldPtr))
		}
		if size != oldSize {
			panic(fmt.Sprintf("cabi_realloc: pointer %#x has size %d, caller passed %d", oldPtr, size, oldSize))
		}
		delete(h.live, oldPtr)
	}
	if newSize == 0 {
		return 0
	}
	if align == 0 {
		align = 1
	}

	ptr := (h.next + align - 1) &^ (align - 1)
	if ptr < h.next || uint64(ptr)+uint64(newSize) > uint64(h.limit) {
		return 0
	}
	h.next = ptr + newSize
	h.live[ptr] = newSize
	return ptr
}

// Live returns the number of blocks currently allocated.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

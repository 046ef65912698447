// Package guest ties WebAssembly guest-memory allocations to owned pointers.
//
// Guests built against the Component Model canonical ABI export a single
// allocation entry point:
//
//	cabi_realloc(old_ptr, old_size, align, new_size) -> ptr
//
// Allocation is cabi_realloc(0, 0, align, size) and release is
// cabi_realloc(ptr, size, align, 0). An Allocator wraps that export and
// returns every allocation as an owned.Pointer[Region] whose deleter calls
// back into the guest, so a region is freed exactly once no matter how its
// ownership travels through the host:
//
//	alloc, err := guest.NewAllocator(mod)
//	region, err := alloc.Alloc(ctx, 64, 8)
//	defer region.Close()
//
// Heap is a host-side cabi_realloc implementation. Instantiate registers it
// as a host module for guests that import their allocator, and returns a
// small guest module re-exporting it, since wazero does not expose the
// exports of host modules to the embedder:
//
//	heap := guest.NewHeap(16, 1<<20)
//	mod, err := heap.Instantiate(ctx, runtime, "heap")
//	alloc, err := guest.NewAllocator(mod)
//
// Regions are freed at most once. FreeAll reclaims everything still live,
// and pointers that still hold one of those regions close without reaching
// the guest again.
package guest

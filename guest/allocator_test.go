package guest

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/owned"
	"github.com/wippyai/owned/errors"
	"github.com/wippyai/owned/resource"
)

func newTestAllocator(t *testing.T, limit uint32) (*Allocator, *Heap) {
	t.Helper()
	ctx := context.Background()

	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	heap := NewHeap(16, limit)
	mod, err := heap.Instantiate(ctx, r, "heap")
	if err != nil {
		t.Fatalf("instantiate heap: %v", err)
	}

	alloc, err := NewAllocator(mod)
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}
	return alloc, heap
}

func TestAllocator_AllocAndClose(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	p, err := alloc.Alloc(ctx, 64, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	r := p.Value()
	if r.Ptr == 0 || r.Ptr%8 != 0 {
		t.Fatalf("bad region %v", r)
	}
	if r.Size != 64 || r.Align != 8 {
		t.Fatalf("region = %v, want size 64 align 8", r)
	}
	if heap.Live() != 1 || alloc.Live() != 1 {
		t.Fatalf("live: heap=%d alloc=%d, want 1", heap.Live(), alloc.Live())
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if heap.Live() != 0 || alloc.Live() != 0 {
		t.Fatalf("live after Close: heap=%d alloc=%d, want 0", heap.Live(), alloc.Live())
	}

	// A second Close must not reach the guest; the heap would reject a
	// double free with a call error.
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestAllocator_MoveBeforeFree(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	a, _ := alloc.Alloc(ctx, 16, 4)
	b, _ := alloc.Alloc(ctx, 32, 4)
	first := a.Get()

	if err := b.Assign(a); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if heap.Live() != 1 {
		t.Fatalf("Assign should free b's old region, live=%d", heap.Live())
	}
	if b.Get() != first || a.Valid() {
		t.Fatal("b should own a's region")
	}

	a.Close()
	if heap.Live() != 1 {
		t.Fatal("closing the moved-from pointer must not free")
	}
	b.Close()
	if heap.Live() != 0 {
		t.Fatal("region should be freed exactly once")
	}
}

func TestAllocator_ReleaseAndFreeAll(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	p, _ := alloc.Alloc(ctx, 8, 1)
	q, _ := alloc.Alloc(ctx, 8, 1)
	r := p.Release()
	q.Release()

	if heap.Live() != 2 {
		t.Fatal("released regions stay allocated")
	}

	if err := alloc.Free(ctx, *r); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := alloc.FreeAll(ctx); err != nil {
		t.Fatalf("FreeAll: %v", err)
	}
	if heap.Live() != 0 || alloc.Live() != 0 {
		t.Fatalf("live after FreeAll: heap=%d alloc=%d", heap.Live(), alloc.Live())
	}
}

func TestAllocator_FreeFailure(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	p, _ := alloc.Alloc(ctx, 8, 8)
	r := p.Value()

	// Free behind the allocator's back so the guest rejects the next free.
	heap.Realloc(ctx, r.Ptr, r.Size, r.Align, 0)

	err := p.Close()
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseDestroy, Kind: errors.KindDeleter}) {
		t.Fatalf("expected deleter error, got %v", err)
	}
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindAllocation}) {
		t.Fatalf("expected guest cause, got %v", err)
	}
	if alloc.Live() != 0 {
		t.Fatal("a region whose free failed should be forgotten")
	}
}

func TestAllocator_FreeUnknownRegion(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	p, _ := alloc.Alloc(ctx, 16, 8)
	r := p.Release()
	if err := alloc.Free(ctx, *r); err != nil {
		t.Fatalf("Free: %v", err)
	}

	err := alloc.Free(ctx, *r)
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindNotFound}) {
		t.Fatalf("expected not found, got %v", err)
	}

	// A stale copy adopted by a new pointer is not freed a second time.
	stale := owned.NewWithDeleter(r, regionDeleter{alloc: alloc, ctx: ctx})
	if err := stale.Close(); err != nil {
		t.Fatalf("closing a stale region: %v", err)
	}
	if heap.Live() != 0 {
		t.Fatalf("live = %d, want 0", heap.Live())
	}
}

func TestAllocator_FreeAllThenClose(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)

	p, _ := alloc.Alloc(ctx, 32, 8)
	q, _ := alloc.Alloc(ctx, 32, 8)

	if err := alloc.FreeAll(ctx); err != nil {
		t.Fatalf("FreeAll: %v", err)
	}
	if heap.Live() != 0 {
		t.Fatalf("live = %d after FreeAll, want 0", heap.Live())
	}

	// The heap rejects a double free with a call error, so a nil error
	// means the guest saw exactly one free per region.
	if err := p.Close(); err != nil {
		t.Fatalf("Close after FreeAll: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close after FreeAll: %v", err)
	}
	if p.Valid() || q.Valid() {
		t.Fatal("pointers should be empty after Close")
	}
}

func TestAllocator_FreeOutlivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	alloc, heap := newTestAllocator(t, 1<<16)

	p, err := alloc.Alloc(ctx, 16, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	cancel()

	if err := p.Close(); err != nil {
		t.Fatalf("Close after cancel: %v", err)
	}
	if heap.Live() != 0 {
		t.Fatal("region should be freed after its context was cancelled")
	}
}

func TestAllocator_Exhausted(t *testing.T) {
	ctx := context.Background()
	alloc, _ := newTestAllocator(t, 64)

	_, err := alloc.Alloc(ctx, 1024, 8)
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindAllocation}) {
		t.Fatalf("expected allocation error, got %v", err)
	}
	if alloc.Live() != 0 {
		t.Fatal("failed allocation must not be tracked")
	}
}

func TestAllocator_InvalidInput(t *testing.T) {
	ctx := context.Background()
	alloc, _ := newTestAllocator(t, 1<<16)

	invalid := &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindInvalidInput}
	if _, err := alloc.Alloc(ctx, 0, 8); !goerrors.Is(err, invalid) {
		t.Fatalf("zero size: got %v", err)
	}
	if _, err := alloc.Alloc(ctx, 8, 3); !goerrors.Is(err, invalid) {
		t.Fatalf("bad alignment: got %v", err)
	}
	if _, err := alloc.Alloc(ctx, 8, 0); !goerrors.Is(err, invalid) {
		t.Fatalf("zero alignment: got %v", err)
	}
}

func TestNewAllocator_MissingExport(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, wasmHeader)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	_, err = NewAllocator(mod)
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindNotFound}) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := NewAllocator(nil); err == nil {
		t.Fatal("expected error for nil module")
	}
}

func TestNewAllocator_HostModule(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	host, err := r.NewHostModuleBuilder("host").
		NewFunctionBuilder().
		WithFunc(NewHeap(8, 64).Realloc).
		Export(ReallocExport).
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	_, err = NewAllocator(host)
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindInvalidInput}) {
		t.Fatalf("expected invalid input for a host module, got %v", err)
	}
}

func TestAllocator_TableOwnership(t *testing.T) {
	ctx := context.Background()
	alloc, heap := newTestAllocator(t, 1<<16)
	table := resource.NewTable[Region]()

	for i := 0; i < 3; i++ {
		p, err := alloc.Alloc(ctx, 16, 8)
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		if _, err := table.Insert(p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if heap.Live() != 3 {
		t.Fatalf("live = %d, want 3", heap.Live())
	}

	if err := table.Close(); err != nil {
		t.Fatalf("table Close: %v", err)
	}
	if heap.Live() != 0 {
		t.Fatalf("table Close should free every region, live = %d", heap.Live())
	}
}

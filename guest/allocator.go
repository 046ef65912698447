package guest

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/owned"
	"github.com/wippyai/owned/errors"
)

// ReallocExport is the canonical ABI allocation export.
const ReallocExport = "cabi_realloc"

// Allocator hands out guest memory as owned regions.
// It is safe for concurrent use as long as the guest function is.
type Allocator struct {
	fn   api.Function
	live map[uint32]Region
	mu   sync.Mutex
}

// NewAllocator resolves the cabi_realloc export of mod. mod must be a guest
// module; wazero host modules do not expose exports and are rejected.
func NewAllocator(mod api.Module) (a *Allocator, err error) {
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseGuest, "nil module")
	}

	defer func() {
		if r := recover(); r != nil {
			a, err = nil, errors.New(errors.PhaseGuest, errors.KindInvalidInput).
				Value(mod.Name()).
				Detail("module %q does not expose exports: %v", mod.Name(), r).
				Build()
		}
	}()

	fn := mod.ExportedFunction(ReallocExport)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseGuest, "export", ReallocExport)
	}
	return &Allocator{
		fn:   fn,
		live: make(map[uint32]Region),
	}, nil
}

// Alloc allocates size bytes aligned to align and returns them as an owned
// region. Closing the returned pointer frees the region in the guest. The
// free keeps ctx's values but not its cancellation, so a region outlives the
// request that allocated it.
func (a *Allocator) Alloc(ctx context.Context, size, align uint32) (*owned.Pointer[Region], error) {
	if size == 0 {
		return nil, errors.InvalidInput(errors.PhaseGuest, "zero-sized allocation")
	}
	if align == 0 || align&(align-1) != 0 {
		return nil, errors.New(errors.PhaseGuest, errors.KindInvalidInput).
			GoType(regionType).
			Value(align).
			Detail("alignment %d is not a power of two", align).
			Build()
	}

	results, err := a.fn.Call(ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseGuest, size, align, err)
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return nil, errors.AllocationFailed(errors.PhaseGuest, size, align, nil)
	}

	r := Region{Ptr: uint32(results[0]), Size: size, Align: align}

	a.mu.Lock()
	a.live[r.Ptr] = r
	a.mu.Unlock()

	return owned.NewWithDeleter(&r, regionDeleter{alloc: a, ctx: context.WithoutCancel(ctx)}), nil
}

// Free returns r to the guest. Regions obtained from Alloc are normally
// freed by closing their pointer instead. Freeing a region this allocator
// does not consider live fails with KindNotFound and never reaches the
// guest. A region whose guest free fails is forgotten.
func (a *Allocator) Free(ctx context.Context, r Region) error {
	if !a.claim(r) {
		return errors.NotFound(errors.PhaseGuest, "region", r.String())
	}
	return a.free(ctx, r)
}

// claim removes r from the live set and reports whether it was there.
// Only the caller that claims a region may free it.
func (a *Allocator) claim(r Region) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if got, ok := a.live[r.Ptr]; !ok || got != r {
		return false
	}
	delete(a.live, r.Ptr)
	return true
}

func (a *Allocator) free(ctx context.Context, r Region) error {
	if _, err := a.fn.Call(ctx, uint64(r.Ptr), uint64(r.Size), uint64(r.Align), 0); err != nil {
		Logger().Warn("free: cabi_realloc failed",
			zap.Uint32("ptr", r.Ptr),
			zap.Uint32("size", r.Size),
			zap.Error(err))
		return errors.New(errors.PhaseGuest, errors.KindAllocation).
			GoType(regionType).
			Value(r).
			Cause(err).
			Detail("free region %s", r).
			Build()
	}
	return nil
}

// Live returns the number of regions allocated through a and not yet freed.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// FreeAll frees every region still live, for use when the guest is about to
// be torn down. Pointers that still own one of these regions become inert:
// closing them does not free again.
func (a *Allocator) FreeAll(ctx context.Context) error {
	a.mu.Lock()
	regions := make([]Region, 0, len(a.live))
	for _, r := range a.live {
		regions = append(regions, r)
	}
	a.mu.Unlock()

	var errs error
	for _, r := range regions {
		if a.claim(r) {
			errs = multierr.Append(errs, a.free(ctx, r))
		}
	}
	return errs
}

const regionType = "guest.Region"

// regionDeleter frees a region through the allocator that produced it,
// unless FreeAll already did.
type regionDeleter struct {
	alloc *Allocator
	ctx   context.Context
}

func (d regionDeleter) Delete(r *Region) error {
	if !d.alloc.claim(*r) {
		Logger().Debug("region already freed", zap.Stringer("region", *r))
		return nil
	}
	return d.alloc.free(d.ctx, *r)
}

package guest

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
)

func TestHeap_Realloc(t *testing.T) {
	ctx := context.Background()
	h := NewHeap(0, 128)

	a := h.Realloc(ctx, 0, 0, 8, 10)
	if a == 0 || a%8 != 0 {
		t.Fatalf("bad pointer %#x", a)
	}
	b := h.Realloc(ctx, 0, 0, 16, 4)
	if b%16 != 0 || b < a+10 {
		t.Fatalf("pointer %#x overlaps or is misaligned", b)
	}
	if h.Live() != 2 {
		t.Fatalf("live = %d, want 2", h.Live())
	}

	if got := h.Realloc(ctx, a, 10, 8, 0); got != 0 {
		t.Fatalf("free returned %#x", got)
	}
	if h.Live() != 1 {
		t.Fatalf("live = %d, want 1", h.Live())
	}

	c := h.Realloc(ctx, b, 4, 16, 8)
	if c == 0 || c == b {
		t.Fatalf("grow should move the block, got %#x", c)
	}
	if h.Live() != 1 {
		t.Fatalf("live = %d after grow, want 1", h.Live())
	}
}

func TestHeap_Exhaustion(t *testing.T) {
	h := NewHeap(8, 32)
	if p := h.Realloc(context.Background(), 0, 0, 1, 64); p != 0 {
		t.Fatalf("expected failure, got %#x", p)
	}
}

func TestHeap_DoubleFreePanics(t *testing.T) {
	ctx := context.Background()
	h := NewHeap(8, 64)
	p := h.Realloc(ctx, 0, 0, 1, 4)
	h.Realloc(ctx, p, 4, 1, 0)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	h.Realloc(ctx, p, 4, 1, 0)
}

func TestHeap_SizeMismatchPanics(t *testing.T) {
	ctx := context.Background()
	h := NewHeap(8, 64)
	p := h.Realloc(ctx, 0, 0, 1, 4)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on size mismatch")
		}
	}()
	h.Realloc(ctx, p, 8, 1, 0)
}

func TestRegion_String(t *testing.T) {
	r := Region{Ptr: 0x10, Size: 0x20, Align: 8}
	if r.End() != 0x30 {
		t.Fatalf("End = %#x", r.End())
	}
	if got := r.String(); got != "[0x10, 0x30) align 8" {
		t.Fatalf("String = %q", got)
	}
}

func TestAppendULEB(t *testing.T) {
	cases := map[uint32][]byte{
		0:   {0x00},
		127: {0x7f},
		128: {0x80, 0x01},
		300: {0xac, 0x02},
	}
	for v, want := range cases {
		if got := appendULEB(nil, v); string(got) != string(want) {
			t.Errorf("appendULEB(%d) = %x, want %x", v, got, want)
		}
	}
}

func TestHeap_Instantiate(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	h := NewHeap(8, 256)
	mod, err := h.Instantiate(ctx, r, "heap")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if mod.Name() != "heap.guest" {
		t.Fatalf("module name = %q", mod.Name())
	}

	fn := mod.ExportedFunction(ReallocExport)
	if fn == nil {
		t.Fatal("guest module should re-export cabi_realloc")
	}
	res, err := fn.Call(ctx, 0, 0, 8, 16)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res[0] == 0 || h.Live() != 1 {
		t.Fatalf("allocation through the re-export failed: ptr=%#x live=%d", res[0], h.Live())
	}
}

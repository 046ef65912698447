// Package owned provides an exclusive-ownership pointer for Go.
//
// A Pointer owns zero or one heap-allocated value and destroys it exactly
// once. Ownership moves between pointers but is never duplicated, and the
// destruction action can be chosen per pointer without changing its type.
//
// # Architecture Overview
//
//	owned/               Pointer, Deleter, Make
//	├── errors/          Structured error types
//	├── resource/        Handle table that owns pointers (own/borrow/drop)
//	├── guest/           WebAssembly guest-memory regions freed through cabi_realloc
//	├── cmd/ownctl/      Walkthrough and interactive playground
//	└── examples/basic/  Minimal lifecycle example
//
// # Quick Start
//
//	p := owned.Make(Point{X: 3, Y: 4})
//	defer p.Close()
//
//	fmt.Println(p.Value().X) // 3
//
// # Lifecycle
//
//	var p owned.Pointer[T]     empty
//	owned.New(r)               owns r, default destruction
//	owned.NewWithDeleter(r, d) owns r, destroyed by d
//	p.Take()                   move into a new pointer, p becomes empty
//	p.Assign(q)                destroy p's resource, take q's, q becomes empty
//	p.Reset(r)                 destroy p's resource, adopt r
//	p.Swap(q)                  exchange, nothing destroyed
//	p.Release()                hand the raw value back, nothing destroyed
//	p.Close()                  destroy, p becomes empty
//
// Every operation that transfers or discards ownership clears the source in
// the same step, so no sequence of calls destroys a value twice.
//
// # Deleters
//
// A Deleter receives the exact address the pointer owned:
//
//	pool := &sync.Pool{}
//	p := owned.NewWithDeleter(buf, owned.DeleterFunc[Buffer](func(b *Buffer) error {
//	    b.Reset()
//	    pool.Put(b)
//	    return nil
//	}))
//
// Without a deleter the DefaultDeleter applies: io.Closer values are closed,
// Dropper values are dropped, anything else is zeroed.
//
// # Copying
//
// Pointers are used by address. A Pointer contains a noCopy marker, so
// `go vet` flags code that copies one by value.
//
// # Concurrency
//
// A Pointer has a single logical owner and no internal locking. Share it
// between goroutines only under external synchronization.
package owned

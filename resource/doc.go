// Package resource provides handle tables that own resources.
//
// A Table[T] accepts owned.Pointer[T] values, takes over their ownership
// and hands out integer handles. This is the own/borrow/drop model of the
// WebAssembly Component Model applied to Go values:
//
//	own    - Insert moves a pointer in, Remove moves it back out
//	borrow - Borrow/ReturnBorrow pin a handle without transferring it
//	drop   - Drop destroys the resource through its deleter
//
// # Handle Table
//
//	table := resource.NewTable[Conn]()
//
//	// Insert an owned value, get a handle; p is empty afterwards
//	h, err := table.Insert(p)
//
//	// Retrieve value by handle
//	conn, ok := table.Get(h)
//
//	// Destroy it through its deleter
//	err = table.Drop(h)
//
// Handle 0 is never issued. Freed slots are reused.
//
// # Borrows
//
// A borrowed handle cannot be dropped or removed; Drop and Remove return
// ErrOutstandingBorrow until every borrow has been returned. Close ignores
// borrows and destroys everything.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("resource %d %s", e.Handle, e.Type)
//	}))
//
// # Memory Management
//
// Each resource is destroyed exactly once: by Drop, by Clear, by Close, or
// by whoever ends up owning the pointer returned from Remove.
package resource

package owned

// noCopy may be embedded into structs which must not be copied after first
// use. go vet's copylocks check reports copies of any struct holding it.
type noCopy struct{}

// Lock is a no-op used by the copylocks checker.
func (*noCopy) Lock() {}

// Unlock is a no-op used by the copylocks checker.
func (*noCopy) Unlock() {}

package guest

import "fmt"

// Region is a block of guest linear memory.
type Region struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// End returns the first address past the region.
func (r Region) End() uint32 {
	return r.Ptr + r.Size
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x) align %d", r.Ptr, r.End(), r.Align)
}

// Defines the Prefix value type: a contiguous, power-of-two aligned block of
// address space identified by base and prefix length. Width (the total number
// of address bits) is a property of the run, not of the prefix, so the helpers
// here take it as a parameter.

package sim

import (
	"fmt"
	"math/bits"
)

// Prefix identifies a block of 2^(width-Length) addresses starting at Base.
// Length 0 covers the entire space.
type Prefix struct {
	Base   uint64
	Length int
}

func (p Prefix) String() string {
	return fmt.Sprintf("%d/%d", p.Base, p.Length)
}

// Span returns the number of addresses the prefix covers in a space of the
// given bit width.
func (p Prefix) Span(width int) uint64 {
	return 1 << uint(width-p.Length)
}

// Aligned reports whether Base is a multiple of the prefix span. Misaligned
// prefixes are rejected at insertion, never silently truncated.
func (p Prefix) Aligned(width int) bool {
	return p.Base&(p.Span(width)-1) == 0
}

// Valid reports whether the prefix fits the space at all: length within
// [0, width] and base inside the space.
func (p Prefix) Valid(width int) bool {
	if p.Length < 0 || p.Length > width {
		return false
	}
	if p.Base >= 1<<uint(width) {
		return false
	}
	return true
}

// bit returns the i-th most significant address bit of Base (i in [0, width)).
func (p Prefix) bit(width, i int) int {
	return int(p.Base >> uint(width-1-i) & 1)
}

// LengthForSpan returns the prefix length whose span is the smallest
// power of two >= span. ok is false when no block that large fits the space.
func LengthForSpan(span uint64, width int) (length int, ok bool) {
	if span == 0 {
		return 0, false
	}
	n := bits.Len64(span - 1) // ceil(log2(span))
	if n > width {
		return 0, false
	}
	return width - n, true
}

package cardinal

import (
	"math/bits"
)

// Bitset is a growable set of small non-negative integers.
// Descriptors use it to record which key indices are present, and the
// dependency walk uses it for visit marks.
type Bitset []uint64

// NewBitset returns a bitset able to hold n bits without growing.
func NewBitset(n int) Bitset {
	return make(Bitset, (n+63)/64)
}

// Set sets the bit at the given index, growing the set if needed.
func (b *Bitset) Set(i int) {
	w := i / 64
	if w >= len(*b) {
		*b = append(*b, make(Bitset, w-len(*b)+1)...)
	}
	(*b)[w] |= 1 << (uint(i) % 64)
}

// Clear clears the bit at the given index.
func (b Bitset) Clear(i int) {
	if w := i / 64; w < len(b) {
		b[w] &^= 1 << (uint(i) % 64)
	}
}

// Has returns true if the bit at the given index is set.
func (b Bitset) Has(i int) bool {
	w := i / 64
	if i < 0 || w >= len(b) {
		return false
	}
	return b[w]&(1<<(uint(i)%64)) != 0
}

// ContainsAll returns true if all bits set in other are also set in b.
func (b Bitset) ContainsAll(other Bitset) bool {
	for i, w := range other {
		var mine uint64
		if i < len(b) {
			mine = b[i]
		}
		if mine&w != w {
			return false
		}
	}
	return true
}

// Count returns the number of bits set.
func (b Bitset) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsZero returns true if no bits are set.
func (b Bitset) IsZero() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}
	return true
}

// Indices returns the set bits in ascending order.
func (b Bitset) Indices() []int {
	out := make([]int, 0, b.Count())
	for wi, w := range b {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, wi*64+tz)
			w &= w - 1
		}
	}
	return out
}

// Clone returns a copy of the bitset.
func (b Bitset) Clone() Bitset {
	return append(Bitset(nil), b...)
}

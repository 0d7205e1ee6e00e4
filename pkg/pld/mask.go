// Package pld holds the primitive types shared by the walker and the
// analyzer: pin bit masks and recorded trials.
package pld

import (
	"math/bits"
	"strings"
)

const (
	// NumBits is the width of every per-pin array. Slots above SocketPins
	// are reserved and normally ignored.
	NumBits = 32

	// SocketPins is the number of socket positions wired to the tester.
	SocketPins = 28

	// SocketMask covers every wired socket position.
	SocketMask Mask = 1<<SocketPins - 1

	// ReservedMask covers the unwired high bits.
	ReservedMask Mask = ^SocketMask
)

// Mask is a set of socket bits. Bit n is socket position n (pin number n+1
// on a plain DIP footprint).
type Mask uint32

// Bit returns the mask with only bit n set.
func Bit(n int) Mask {
	return Mask(1) << uint(n)
}

// Has reports whether bit n is set.
func (m Mask) Has(n int) bool {
	return m&Bit(n) != 0
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Bits returns the set bit positions in ascending order.
func (m Mask) Bits() []int {
	out := make([]int, 0, m.Count())
	for v := uint32(m); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros32(v))
	}
	return out
}

// Lowest returns the lowest set bit, or -1 for an empty mask.
func (m Mask) Lowest() int {
	if m == 0 {
		return -1
	}
	return bits.TrailingZeros32(uint32(m))
}

// Binary renders the low 28 bits as a colon grouped bit string,
// most significant first: "xxxx:xxxxxxxx:xxxxxxxx:xxxxxxxx".
func (m Mask) Binary() string {
	var sb strings.Builder
	sb.Grow(SocketPins + 3)
	for bit := SocketPins - 1; bit >= 0; bit-- {
		if m.Has(bit) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		if bit == 24 || bit == 16 || bit == 8 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

// Trial is one applied stimulus and the levels read back from the socket.
type Trial struct {
	Applied  Mask
	Observed Mask
}

// Changed returns the bits where the read back level differs from the
// driven level.
func (t Trial) Changed() Mask {
	return t.Applied ^ t.Observed
}

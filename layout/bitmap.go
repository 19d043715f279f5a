package layout

import bitmap "github.com/boljen/go-bitmap"

// Bitmap is a thin wrapper around a byte-packed, LSB-first bit array living
// directly inside the mapped image (§3, §4.2). Bit `i` lives in byte `i/8`
// at position `i mod 8`; a set bit means "in use". Because
// github.com/boljen/go-bitmap's Bitmap type is itself just a []byte, wrapping
// an existing image region gives in-place mutation for free — no copy, no
// separate flush step.
type Bitmap struct {
	bits bitmap.Bitmap
}

// NewBitmap wraps `length` bits worth of bytes starting at `byteOffset`
// within the image.
func NewBitmap(image []byte, byteOffset int, length int) Bitmap {
	numBytes := (length + 7) / 8
	return Bitmap{bits: bitmap.Bitmap(image[byteOffset : byteOffset+numBytes])}
}

// Test returns whether bit `i` is set.
func (b Bitmap) Test(i int) bool {
	return b.bits.Get(i)
}

// Set sets or clears bit `i`.
func (b Bitmap) Set(i int, value bool) {
	b.bits.Set(i, value)
}

// PopCount returns the number of set bits among the first `length` bits.
func (b Bitmap) PopCount(length int) int {
	count := 0
	for i := 0; i < length; i++ {
		if b.bits.Get(i) {
			count++
		}
	}
	return count
}

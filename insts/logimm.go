package insts

import "math/bits"

// DecodeBitMasks decodes the N:immr:imms logical-immediate field into a
// bitmask of the given register width (32 or 64). The element size is
// located from the position of the highest set bit of N:NOT(imms), a
// primitive run of S+1 ones is rotated right by R within the element,
// and the element is replicated across the width.
//
// Returns ok=false for the reserved encodings (no valid element size,
// or an all-ones element, which logical immediates cannot express).
func DecodeBitMasks(n, immr, imms uint64, width uint) (mask uint64, ok bool) {
	lenField := (n << 6) | (^imms & 0x3f)
	if lenField == 0 {
		return 0, false
	}
	length := uint(bits.Len64(lenField)) - 1
	esize := uint(1) << length
	if esize > width {
		return 0, false
	}

	levels := uint64(esize - 1)
	if imms&levels == levels {
		return 0, false // would be all ones
	}

	s := imms & levels
	r := immr & levels
	welem := uint64(1)<<(s+1) - 1
	elem := RotateRight(welem, uint(r), esize)
	return Replicate(elem, esize, width), true
}

// EncodeBitMasks is the inverse of DecodeBitMasks: given a mask that is
// expressible as a logical immediate at the given width, it recovers
// the N, immr, imms fields. Returns ok=false for inexpressible masks
// (zero, all ones, or any pattern that is not a replicated rotated run).
func EncodeBitMasks(mask uint64, width uint) (n, immr, imms uint64, ok bool) {
	if width < 64 {
		if mask>>width != 0 {
			return 0, 0, 0, false
		}
	}
	full := uint64(1)<<(width&63) - 1
	if width == 64 {
		full = ^uint64(0)
	}
	if mask == 0 || mask == full {
		return 0, 0, 0, false
	}

	// Find the smallest element size the mask replicates at.
	esize := width
	for trial := uint(2); trial < width; trial *= 2 {
		elem := mask & (uint64(1)<<trial - 1)
		if Replicate(elem, trial, width) == mask {
			esize = trial
			break
		}
	}

	elem := mask
	if esize < 64 {
		elem &= uint64(1)<<esize - 1
	}
	ones := uint64(bits.OnesCount64(elem))
	welem := uint64(1)<<ones - 1

	// Locate the rotation that produced elem from the primitive run.
	for r := uint(0); r < esize; r++ {
		if RotateRight(welem, r, esize) == elem {
			if esize == 64 {
				n = 1
				imms = ones - 1
			} else {
				n = 0
				imms = (^(2*uint64(esize) - 1) & 0x3f) | (ones - 1)
			}
			return n, uint64(r), imms, true
		}
	}
	return 0, 0, 0, false
}

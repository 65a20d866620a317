package insts

import "strconv"

// XRegName returns the 64-bit name of a general-purpose register
// number, with register 31 rendered as sp.
func XRegName(reg uint) string {
	if reg == 31 {
		return "sp"
	}
	return "x" + strconv.Itoa(int(reg))
}

// WRegName returns the 32-bit name of a general-purpose register
// number, with register 31 rendered as wsp.
func WRegName(reg uint) string {
	if reg == 31 {
		return "wsp"
	}
	return "w" + strconv.Itoa(int(reg))
}

// VRegName returns the name of a vector register number.
func VRegName(reg uint) string {
	return "v" + strconv.Itoa(int(reg))
}

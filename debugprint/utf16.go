package debugprint

import "unicode/utf16"

// utf16Encode/utf16Decode wrap the stdlib unicode/utf16 codec; the
// wire format is wchar_t (UTF-16) per spec §6, while the rest of this
// package's API stays in Go strings.
func utf16Encode(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func utf16Decode(units []uint16) string {
	return string(utf16.Decode(units))
}

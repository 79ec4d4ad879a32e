// Package extract post-processes raw model output into an HTML document.
package extract

// DoctypeMarker is the token that opens a generated document.
const DoctypeMarker = "<!DOCTYPE html>"

// Document returns rawOutput starting at the first doctype marker, dropping
// any model preamble in front of it. The marker is matched ignoring ASCII
// case. When no marker is present the input is returned unchanged. The result
// is not validated as HTML.
func Document(rawOutput string) string {
	idx := MarkerIndex(rawOutput)
	if idx <= 0 {
		return rawOutput
	}
	return rawOutput[idx:]
}

// MarkerIndex reports the byte offset of the first doctype marker, or -1.
func MarkerIndex(s string) int {
	n := len(DoctypeMarker)
	for i := 0; i+n <= len(s); i++ {
		if s[i] != '<' {
			continue
		}
		if equalFoldASCII(s[i:i+n], DoctypeMarker) {
			return i
		}
	}
	return -1
}

// HasMarker reports whether s contains the doctype marker.
func HasMarker(s string) bool {
	return MarkerIndex(s) >= 0
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

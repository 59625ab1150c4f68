package selfdiag

import "unicode/utf8"

const (
	// truncationMarker is appended to values that did not fit.
	truncationMarker = "..."
	// ellipses is the tail reserved after an unwrapped value.
	ellipses = "...\n"
	// ellipsesWithBrackets is the tail reserved after a parameter.
	ellipsesWithBrackets = "{...}\n"
	// charBudget is the number of bytes of room budgeted per source
	// character when deciding whether a value fits.
	charBudget = 2
)

// replacementLen is the encoded size of U+FFFD, written for invalid bytes.
var replacementLen = utf8.RuneLen(utf8.RuneError)

// EncodeInBuffer writes text into buf starting at startPos and returns the
// position after the last byte written. When isParameter is set the value
// is wrapped in braces.
//
// Room for "...\n" (or "{...}\n") is always kept after startPos. If even that
// is not available nothing is written and startPos is returned. Otherwise
// the value is written whole when it fits, or cut at a character boundary and
// followed by "...". The byte after the returned position is left for the
// caller's line terminator.
func EncodeInBuffer(text string, isParameter bool, buf []byte, startPos int) int {
	reserve := len(ellipses)
	if isParameter {
		reserve = len(ellipsesWithBrackets)
	}
	if startPos < 0 {
		return startPos
	}
	space := len(buf) - startPos - reserve
	if space < 0 {
		return startPos
	}
	maxChars := space / charBudget

	pos := startPos
	if isParameter {
		buf[pos] = '{'
		pos++
	}
	if fits(text, maxChars, space+len(truncationMarker)) {
		pos = appendChars(buf, pos, text, -1, len(buf))
	} else {
		pos = appendChars(buf, pos, text, maxChars, pos+space)
		pos += copy(buf[pos:], truncationMarker)
	}
	if isParameter {
		buf[pos] = '}'
		pos++
	}
	return pos
}

// fits reports whether text has at most maxChars characters and encodes to
// at most maxBytes bytes. It stops scanning as soon as either bound is hit.
func fits(text string, maxChars, maxBytes int) bool {
	chars, n := 0, 0
	for i := 0; i < len(text); {
		size, out := charAt(text, i)
		chars++
		n += out
		if chars > maxChars || n > maxBytes {
			return false
		}
		i += size
	}
	return true
}

// appendChars copies whole characters of text into buf at pos until
// maxChars characters were written (negative means unlimited) or the next
// one would cross limit. Invalid bytes are written as U+FFFD.
func appendChars(buf []byte, pos int, text string, maxChars, limit int) int {
	chars := 0
	for i := 0; i < len(text); {
		if chars == maxChars {
			break
		}
		size, out := charAt(text, i)
		if pos+out > limit {
			break
		}
		if out == size {
			pos += copy(buf[pos:], text[i:i+size])
		} else {
			pos += utf8.EncodeRune(buf[pos:], utf8.RuneError)
		}
		chars++
		i += size
	}
	return pos
}

// charAt returns the source width of the character at text[i] and the
// number of bytes it encodes to.
func charAt(text string, i int) (size, out int) {
	if c := text[i]; c < utf8.RuneSelf {
		return 1, 1
	}
	r, size := utf8.DecodeRuneInString(text[i:])
	if r == utf8.RuneError && size == 1 {
		return 1, replacementLen
	}
	return size, size
}

// estimateLen is an upper bound on the bytes EncodeInBuffer writes for text,
// brackets excluded. Valid UTF-8 is copied as is; each invalid byte may grow
// into a 3-byte replacement character. A truncated value can be longer than
// the input by the marker.
func estimateLen(text string) int {
	n := len(text)
	if !utf8.ValidString(text) {
		n *= replacementLen
	}
	return n + len(truncationMarker)
}

package selfdiag

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func assertBufferOutput(t *testing.T, expected string, buf []byte, startPos, endPos int) {
	t.Helper()
	if endPos-startPos != len(expected) {
		t.Fatalf("span length %d want %d (%q)", endPos-startPos, len(expected), buf[startPos:endPos])
	}
	if got := string(buf[startPos:endPos]); got != expected {
		t.Fatalf("got %q want %q", got, expected)
	}
}

func TestEncodeInBufferEmpty(t *testing.T) {
	buf := make([]byte, 20)
	end := EncodeInBuffer("", false, buf, 0)
	assertBufferOutput(t, "", buf, 0, end)

	end = EncodeInBuffer("", true, buf, 0)
	assertBufferOutput(t, "{}", buf, 0, end)
}

func TestEncodeInBufferScenarios(t *testing.T) {
	tests := []struct {
		name        string
		isParameter bool
		startPos    int
		// expected includes the untouched byte after the span, which stays
		// zero because the caller appends the line terminator.
		expected string
	}{
		{"enough space", false, 20 - len(ellipses) - 6, "abc\x00"},
		{"not enough space for full string", false, 20 - len(ellipses) - 5, "ab...\x00"},
		{"not even space for truncated string", false, 20 - len(ellipses), "...\x00"},
		{"parameter enough space", true, 20 - len(ellipsesWithBrackets) - 6, "{abc}\x00"},
		{"parameter not enough space for full string", true, 20 - len(ellipsesWithBrackets) - 5, "{ab...}\x00"},
		{"parameter not even space for truncated string", true, 20 - len(ellipsesWithBrackets), "{...}\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 20)
			end := EncodeInBuffer("abc", tt.isParameter, buf, tt.startPos)
			assertBufferOutput(t, tt.expected, buf, tt.startPos, end+1)
		})
	}
}

func TestEncodeInBufferNoRoomForMarker(t *testing.T) {
	for _, isParameter := range []bool{false, true} {
		reserve := len(ellipses)
		if isParameter {
			reserve = len(ellipsesWithBrackets)
		}
		buf := make([]byte, 20)
		start := len(buf) - reserve + 1
		if end := EncodeInBuffer("abc", isParameter, buf, start); end != start {
			t.Fatalf("isParameter=%v: end %d want %d", isParameter, end, start)
		}
		if !bytes.Equal(buf, make([]byte, 20)) {
			t.Fatalf("isParameter=%v: buffer was modified: %q", isParameter, buf)
		}
	}
}

func TestEncodeInBufferOutOfRangeStart(t *testing.T) {
	buf := make([]byte, 8)
	if end := EncodeInBuffer("abc", false, buf, -1); end != -1 {
		t.Fatalf("negative start: got %d", end)
	}
	if end := EncodeInBuffer("abc", true, buf, 100); end != 100 {
		t.Fatalf("start past end: got %d", end)
	}
}

func TestEncodeInBufferMultiByteNeverSplit(t *testing.T) {
	text := strings.Repeat("日本語", 20) // 3 bytes per character
	for size := 0; size < 80; size++ {
		for _, isParameter := range []bool{false, true} {
			buf := make([]byte, size)
			end := EncodeInBuffer(text, isParameter, buf, 0)
			if end < 0 || end > size {
				t.Fatalf("size=%d: end %d out of range", size, end)
			}
			span := buf[:end]
			if !utf8.Valid(span) {
				t.Fatalf("size=%d: invalid utf-8 %q", size, span)
			}
			body := string(span)
			if isParameter && end > 0 {
				if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
					t.Fatalf("size=%d: not wrapped: %q", size, body)
				}
				body = body[1 : len(body)-1]
			}
			if end > 0 && !strings.HasSuffix(body, truncationMarker) {
				t.Fatalf("size=%d: expected marker: %q", size, body)
			}
			if !strings.HasPrefix(text, strings.TrimSuffix(body, truncationMarker)) {
				t.Fatalf("size=%d: %q is not a prefix", size, body)
			}
		}
	}
}

func TestEncodeInBufferBounded(t *testing.T) {
	texts := []string{"", "a", "abc", "hello, world", strings.Repeat("x", 300), "héllo wörld", "\xff\xfe broken", "emoji 🙂🙂🙂"}
	for _, text := range texts {
		for _, isParameter := range []bool{false, true} {
			reserve := len(ellipses)
			full := text
			if isParameter {
				reserve = len(ellipsesWithBrackets)
				full = "{" + text + "}"
			}
			for size := 0; size < 64; size++ {
				for start := 0; start <= size; start++ {
					buf := make([]byte, size)
					end := EncodeInBuffer(text, isParameter, buf, start)
					if size-start < reserve {
						if end != start {
							t.Fatalf("%q size=%d start=%d: wrote with no room", text, size, start)
						}
						continue
					}
					if end < start || end > size-1 {
						t.Fatalf("%q size=%d start=%d: end %d leaves no terminator byte", text, size, start, end)
					}
					if !utf8.Valid(buf[start:end]) {
						t.Fatalf("%q size=%d start=%d: invalid utf-8", text, size, start)
					}
					got := string(buf[start:end])
					if utf8.ValidString(text) && got != full && !strings.Contains(got, truncationMarker) {
						t.Fatalf("%q size=%d start=%d: neither full nor truncated: %q", text, size, start, got)
					}
				}
			}
		}
	}
}

func TestEncodeInBufferFullWhenItFits(t *testing.T) {
	buf := make([]byte, BufferSize)
	end := EncodeInBuffer("héllo 🙂", true, buf, 0)
	assertBufferOutput(t, "{héllo 🙂}", buf, 0, end)
}

func TestEncodeInBufferReplacesInvalidBytes(t *testing.T) {
	buf := make([]byte, 64)
	end := EncodeInBuffer("a\xffb", false, buf, 0)
	assertBufferOutput(t, "a\uFFFDb", buf, 0, end)
}

func TestEstimateLenIsUpperBound(t *testing.T) {
	texts := []string{"", "abc", "日本語", "\xff\xff\xff", strings.Repeat("é", 40)}
	for _, text := range texts {
		for _, isParameter := range []bool{false, true} {
			buf := make([]byte, BufferSize)
			end := EncodeInBuffer(text, isParameter, buf, 0)
			want := estimateLen(text)
			if isParameter {
				want += 2
			}
			if end > want {
				t.Fatalf("%q: wrote %d bytes, estimate %d", text, end, want)
			}
		}
	}
}

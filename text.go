package fibsterm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/width"
)

// DecodeText turns raw server bytes into displayable text. Invalid UTF-8 becomes
// U+FFFD, CRLF and lone CR become LF, and control characters other than newline
// and tab are dropped.
func DecodeText(raw []byte) string {
	decoded, err := xunicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		decoded = []byte(strings.ToValidUTF8(string(raw), "�"))
	}

	var sb strings.Builder
	sb.Grow(len(decoded))
	s := string(decoded)
	for i, r := range s {
		switch {
		case r == '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			sb.WriteByte('\n')
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// other C0 controls, including ESC, are not rendered
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SplitComplete splits raw into a prefix of complete UTF-8 sequences and a tail
// holding at most one incomplete sequence still waiting for bytes
func SplitComplete(raw []byte) (complete, rest []byte) {
	// A rune is at most utf8.UTFMax bytes, so only the tail can be incomplete
	start := len(raw) - utf8.UTFMax + 1
	if start < 0 {
		start = 0
	}
	for i := len(raw) - 1; i >= start; i-- {
		if !utf8.RuneStart(raw[i]) {
			continue
		}
		if utf8.FullRune(raw[i:]) {
			return raw, nil
		}
		return raw[:i], raw[i:]
	}
	return raw, nil
}

// RuneWidth returns the number of terminal columns r occupies
func RuneWidth(r rune) int {
	if r == 0 || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// StringWidth returns the number of terminal columns s occupies
func StringWidth(s string) int {
	n := 0
	for _, r := range s {
		n += RuneWidth(r)
	}
	return n
}

// ClipToWidth returns the longest prefix of s that fits in cols columns, and its width
func ClipToWidth(s string, cols int) (string, int) {
	used := 0
	for i, r := range s {
		w := RuneWidth(r)
		if used+w > cols {
			return s[:i], used
		}
		used += w
	}
	return s, used
}

// ClipTailToWidth returns the longest suffix of s that fits in cols columns
func ClipTailToWidth(s string, cols int) string {
	used := 0
	end := len(s)
	for end > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:end])
		w := RuneWidth(r)
		if used+w > cols {
			break
		}
		used += w
		end -= size
	}
	return s[end:]
}

// SanitizeForLog removes newlines and control characters from server-provided
// strings so they cannot forge extra entries in the log file
func SanitizeForLog(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r != 0x7f {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Package jsonfield extracts a single string field from JSON text without a
// full parser. It is the lenient fallback used when a backend response does not
// decode into the expected typed model.
//
// Extract is deliberately narrow: it finds the first "<key>": marker, expects a
// string value, and understands the escapes produced by [Escape]. Nested
// structures, non-string values, and \uXXXX escapes are not interpreted.
//
// Request bodies are built with encoding/json, so Escape has no caller on the
// request path. It is kept as the exact inverse of Extract's unescaping and is
// used to build fixtures that Extract must read back.
package jsonfield

import "strings"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape escapes backslash, double quote, newline, carriage return, and tab so
// s can be placed between double quotes in JSON text.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Extract returns the string value of the first "<key>": occurrence in raw.
// When the marker is missing or its value is not a string, raw is returned
// unchanged. An unterminated string yields everything scanned so far.
func Extract(raw, key string) string {
	marker := `"` + key + `":`

	idx := strings.Index(raw, marker)
	if idx == -1 {
		return raw
	}

	i := idx + len(marker)
	for i < len(raw) && raw[i] == ' ' {
		i++
	}

	if i >= len(raw) || raw[i] != '"' {
		return raw
	}
	i++

	var b strings.Builder
	escaped := false

	// Byte-wise scan is safe for UTF-8: every byte of a multi-byte sequence
	// is >= 0x80 and never matches '"' or '\\'.
	for ; i < len(raw); i++ {
		c := raw[i]

		if escaped {
			b.WriteByte(unescape(c))
			escaped = false

			continue
		}

		switch c {
		case '\\':
			escaped = true
		case '"':
			return b.String()
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		// '"', '\\', and anything else are emitted literally.
		return c
	}
}

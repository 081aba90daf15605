// Package format handles the "§" formatting codes used in game chat.
package format

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Marker introduces a formatting code.
const Marker = '§'

var colors = map[rune]lipgloss.Color{
	'0': "#000000",
	'1': "#0000AA",
	'2': "#00AA00",
	'3': "#00AAAA",
	'4': "#AA0000",
	'5': "#AA00AA",
	'6': "#FFAA00",
	'7': "#AAAAAA",
	'8': "#555555",
	'9': "#5555FF",
	'a': "#55FF55",
	'b': "#55FFFF",
	'c': "#FF5555",
	'd': "#FF55FF",
	'e': "#FFFF55",
	'f': "#FFFFFF",
}

// Strip removes every formatting code from s.
func Strip(s string) string {
	if !strings.ContainsRune(s, Marker) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	walk(s, func(text string) { b.WriteString(text) }, func(rune) {})

	return b.String()
}

// walk splits s into plain text runs and codes. A trailing marker without a
// code is dropped.
func walk(s string, text func(string), code func(rune)) {
	for {
		i := strings.IndexRune(s, Marker)
		if i < 0 {
			if s != "" {
				text(s)
			}

			return
		}

		if i > 0 {
			text(s[:i])
		}

		s = s[i+utf8.RuneLen(Marker):]
		if s == "" {
			return
		}

		c, size := utf8.DecodeRuneInString(s)
		code(c)
		s = s[size:]
	}
}

// Renderer converts formatting codes to terminal styles.
type Renderer struct {
	r *lipgloss.Renderer
}

// NewRenderer creates a Renderer that detects colour support from w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{r: lipgloss.NewRenderer(w)}
}

// Render returns s with formatting codes replaced by terminal styling. On
// outputs without colour support the result equals Strip(s).
func (r *Renderer) Render(s string) string {
	var b strings.Builder

	base := r.r.NewStyle()
	style := base

	walk(s,
		func(text string) { b.WriteString(style.Render(text)) },
		func(c rune) { style = apply(base, style, c) },
	)

	return b.String()
}

func apply(base, style lipgloss.Style, code rune) lipgloss.Style {
	if c, ok := colors[toLower(code)]; ok {
		// A colour code also clears bold, italic and the other decorations.
		return base.Foreground(c)
	}

	switch toLower(code) {
	case 'l':
		return style.Bold(true)
	case 'm':
		return style.Strikethrough(true)
	case 'n':
		return style.Underline(true)
	case 'o':
		return style.Italic(true)
	case 'r':
		return base
	default:
		return style
	}
}

func toLower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}

package sanitizer

import "strings"

// SanitizeTitle normalizes a short label such as an appointment title:
// whitespace is collapsed and control characters are stripped.
func SanitizeTitle(s string) string {
	return TrimAndNormalize(stripControl(s))
}

// SanitizeFreeText normalizes longer text such as an appointment
// description. Newlines are preserved; other control characters are
// stripped and trailing whitespace per line removed.
func SanitizeFreeText(s string) string {
	s = stripControlKeepNewlines(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Whitespace-class control runes become spaces so adjacent words stay
// separated; the rest are deleted.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func stripControlKeepNewlines(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

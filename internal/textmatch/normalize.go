package textmatch

import (
	"strings"
	"unicode/utf8"
)

// Латиница→кириллица (визуальные двойники). Таблица фиксированная:
// полная транслитерация не поддерживается.
var lookalikes = map[rune]rune{
	'A': 'А', 'a': 'а', 'B': 'В', 'E': 'Е', 'e': 'е', 'K': 'К', 'k': 'к',
	'M': 'М', 'H': 'Н', 'O': 'О', 'o': 'о', 'P': 'Р', 'p': 'р',
	'C': 'С', 'c': 'с', 'T': 'Т', 't': 'т', 'Y': 'У', 'y': 'у', 'X': 'Х', 'x': 'х',
}

// Normalize trims surrounding whitespace and lowercases s.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsASCII reports whether every byte of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// LatinToCyrillic заменяет латинские буквы-двойники на кириллические,
// остальные символы (включая невалидный UTF-8) переносятся без изменений.
func LatinToCyrillic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if rr, ok := lookalikes[r]; ok {
			b.WriteRune(rr)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

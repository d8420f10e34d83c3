package textmatch

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is one piece of highlighted text. Concatenating the Text of all spans
// returned by Highlight reproduces the input exactly.
type Span struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// IsMatch reports whether name contains query after normalization, either
// directly or after replacing Latin lookalikes in name with Cyrillic letters.
// An empty or whitespace-only query matches everything.
func IsMatch(name, query string) bool {
	return matchNormalized(name, Normalize(query))
}

func matchNormalized(name, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(Normalize(name), q) {
		return true
	}
	return strings.Contains(Normalize(LatinToCyrillic(name)), q)
}

// Filter returns the items whose name matches query, preserving input order.
// The query is normalized once for the whole slice.
func Filter[T any](items []T, query string, name func(T) string) []T {
	q := Normalize(query)
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchNormalized(name(it), q) {
			out = append(out, it)
		}
	}
	return out
}

// alternatives строит варианты запроса для подсветки: сам запрос и, если он
// набран латиницей, его кириллический двойник. Пустые и повторы отбрасываются.
func alternatives(query string) [][]rune {
	cands := []string{Normalize(query)}
	if IsASCII(query) {
		cands = append(cands, Normalize(LatinToCyrillic(query)))
	}
	var out [][]rune
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, []rune(c))
	}
	return out
}

// Highlight splits text into alternating match / non-match spans for query.
// Matching is case-insensitive and non-overlapping; at each position the plain
// query is tried before its Cyrillic variant. Spans slice the original string,
// so casing and byte boundaries are kept as-is.
func Highlight(text, query string) []Span {
	alts := alternatives(query)
	if len(alts) == 0 {
		return []Span{{Text: text}}
	}

	// руны текста в нижнем регистре + байтовые смещения для нарезки оригинала
	folded := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		folded = append(folded, unicode.ToLower(r))
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))

	var spans []Span
	gap := 0
	for i := 0; i < len(folded); {
		n := matchAt(folded, i, alts)
		if n == 0 {
			i++
			continue
		}
		if gap < i {
			spans = append(spans, Span{Text: text[offsets[gap]:offsets[i]]})
		}
		spans = append(spans, Span{Text: text[offsets[i]:offsets[i+n]], Match: true})
		i += n
		gap = i
	}
	if gap < len(folded) || len(spans) == 0 {
		spans = append(spans, Span{Text: text[offsets[gap]:]})
	}
	return spans
}

// matchAt returns the rune length of the first alternative found at pos, or 0.
func matchAt(folded []rune, pos int, alts [][]rune) int {
	for _, alt := range alts {
		if pos+len(alt) > len(folded) {
			continue
		}
		ok := true
		for j, r := range alt {
			if folded[pos+j] != r {
				ok = false
				break
			}
		}
		if ok {
			return len(alt)
		}
	}
	return 0
}

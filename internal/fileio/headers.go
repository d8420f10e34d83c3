package fileio

import (
	"regexp"
	"sort"
	"strings"
)

// Alias связывает канонический ключ записи с вариантами заголовка колонки,
// через "|": "item_name|name|наименование|название".
type Alias struct {
	Key   string
	Names string
}

var rxNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normHeaderKey: нижний регистр, ё→е, служебные символы и лишние пробелы убраны.
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00A0", " ", "\u202F", " ", "ё", "е").Replace(s)
	s = rxNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// ResolveHeader ищет среди headers колонку для want. Порядок: точное совпадение,
// совпадение после нормализации, затем вхождение целыми словами (самый длинный вариант побеждает).
// Пустая строка: колонка не найдена.
func ResolveHeader(headers []string, want string, taken map[string]bool) string {
	var alts []string
	for _, a := range strings.Split(want, "|") {
		if a = strings.TrimSpace(a); a != "" {
			alts = append(alts, a)
		}
	}
	if len(alts) == 0 {
		return ""
	}

	for _, a := range alts {
		for _, h := range headers {
			if h == a && !taken[h] {
				return h
			}
		}
	}

	norm := make([]string, len(alts))
	for i, a := range alts {
		norm[i] = normHeaderKey(a)
	}
	best, bestScore := "", 0
	for _, h := range headers {
		if taken[h] {
			continue
		}
		nh := normHeaderKey(h)
		if nh == "" {
			continue
		}
		for _, n := range norm {
			if nh == n {
				return h
			}
			// составные заголовки: "цена, руб." содержит слово "цена"
			if strings.Contains(" "+nh+" ", " "+n+" ") && len(n) > bestScore {
				best, bestScore = h, len(n)
			}
		}
	}
	return best
}

// Canonicalize переименовывает колонки по aliases. Найденные колонки получают
// канонический ключ, остальные остаются как есть. Повторы шапки внутри
// таблицы (частые в выгрузках из 1С) отбрасываются.
func Canonicalize(rows []map[string]string, aliases []Alias) []map[string]string {
	if len(rows) == 0 {
		return rows
	}
	headers := make([]string, 0, len(rows[0]))
	for h := range rows[0] {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	taken := make(map[string]bool, len(aliases))
	rename := make(map[string]string, len(aliases))
	for _, a := range aliases {
		if h := ResolveHeader(headers, a.Key+"|"+a.Names, taken); h != "" {
			taken[h] = true
			rename[h] = a.Key
		}
	}

	out := make([]map[string]string, 0, len(rows))
	for _, rec := range rows {
		if looksLikeHeader(rec) {
			continue
		}
		m := make(map[string]string, len(rec))
		for h, k := range rename {
			m[k] = rec[h]
		}
		for h, v := range rec {
			if _, renamed := rename[h]; renamed {
				continue
			}
			if _, clash := m[h]; !clash {
				m[h] = v
			}
		}
		out = append(out, m)
	}
	return out
}

// looksLikeHeader: строка, где хотя бы две ячейки повторяют свой заголовок.
func looksLikeHeader(rec map[string]string) bool {
	cnt := 0
	for h, v := range rec {
		if v != "" && normHeaderKey(v) == normHeaderKey(h) {
			cnt++
		}
	}
	return cnt >= 2
}

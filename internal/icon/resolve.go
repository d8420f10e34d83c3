package icon

import (
	"regexp"
	"strings"
)

// DefaultDir is the folder bare file names are resolved against.
const DefaultDir = "icons/"

// Extensions is the fallback priority used when building candidates.
var Extensions = []string{".png", ".webp", ".jpg", ".jpeg"}

var (
	reExt       = regexp.MustCompile(`\.[a-zA-Z0-9]{2,5}$`)
	reHTTP      = regexp.MustCompile(`(?i)^https?://`)
	reDotPrefix = regexp.MustCompile(`^\./+`)
)

// splitSuffix отделяет "?query" / "#fragment" от пути. Суффикс в самом начале
// строки не считается суффиксом.
func splitSuffix(s string) (base, suffix string) {
	if i := strings.IndexAny(s, "?#"); i > 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func hasExt(base string) bool { return reExt.MatchString(base) }

func isURL(base string) bool { return reHTTP.MatchString(base) }

// Resolve turns a raw, possibly malformed icon path into its canonical form.
// Blank input yields "" and the caller shows a placeholder.
//
//	"foo"              -> "./icons/foo.png"
//	"img\\a.jpg?v=2"   -> "./img/a.jpg?v=2"
//	"http://x.com/img" -> "http://x.com/img.png"
//	"/abs/path.jpg"    -> "/abs/path.jpg"
func Resolve(raw string) string {
	// строка из одних пробелов тоже пустой путь
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = reDotPrefix.ReplaceAllString(s, "")
	base, suffix := splitSuffix(s)
	ext := hasExt(base)

	// URL и абсолютный путь: только расширение по умолчанию
	if isURL(base) || strings.HasPrefix(base, "/") {
		if !ext {
			base += ".png"
		}
		return base + suffix
	}

	// локальный путь: папка icons/ для голого имени файла
	if !strings.Contains(base, "/") {
		base = DefaultDir + base
	}
	if !ext {
		base += ".png"
	}
	return "./" + base + suffix
}

// Candidates returns the ordered, de-duplicated list of paths to try for raw.
// The first element is Resolve(raw); the rest swap the extension through
// Extensions and finally look for the bare file stem under DefaultDir.
// Blank input yields nil.
func Candidates(raw string) []string {
	first := Resolve(raw)
	if first == "" {
		return nil
	}

	out := make([]string, 0, 1+2*len(Extensions))
	seen := make(map[string]struct{}, cap(out))
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	head, suffix := splitSuffix(first)
	add(head + suffix)

	stem := head
	if loc := reExt.FindStringIndex(head); loc != nil {
		stem = head[:loc[0]]
	}
	for _, e := range Extensions {
		add(stem + e + suffix)
	}

	local := reDotPrefix.ReplaceAllString(head, "")
	if !isURL(local) {
		name := local
		if i := strings.LastIndex(local, "/"); i >= 0 {
			name = local[i+1:]
		}
		name = reExt.ReplaceAllString(name, "")
		for _, e := range Extensions {
			add("./" + DefaultDir + name + e + suffix)
		}
	}
	return out
}

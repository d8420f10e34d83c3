package icon

import (
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// Cursor walks a candidate list on image load failures. Once the list is
// exhausted the consumer shows a placeholder and stops retrying.
type Cursor struct {
	candidates []string
	idx        int
}

// NewCursor starts at the first candidate of raw.
func NewCursor(raw string) *Cursor {
	return &Cursor{candidates: Candidates(raw)}
}

// Current returns the path to try now; ok is false when nothing is left.
func (c *Cursor) Current() (string, bool) {
	if c.Exhausted() {
		return "", false
	}
	return c.candidates[c.idx], true
}

// Advance moves to the next candidate after a failure. It returns false when
// the failed candidate was the last one.
func (c *Cursor) Advance() bool {
	if c.Exhausted() {
		return false
	}
	c.idx++
	return !c.Exhausted()
}

// Exhausted reports whether every candidate has failed.
func (c *Cursor) Exhausted() bool { return c.idx >= len(c.candidates) }

// Index is the position of the current candidate.
func (c *Cursor) Index() int { return c.idx }

// Probe returns the first candidate of raw that exists in fsys. Only local
// candidates are checked: "./" is stripped, suffixes are ignored and URLs are
// skipped.
func Probe(fsys fs.FS, raw string) (string, bool) {
	c := NewCursor(raw)
	for {
		p, ok := c.Current()
		if !ok {
			return "", false
		}
		if name, local := localName(p); local {
			if st, err := fs.Stat(fsys, name); err == nil && !st.IsDir() {
				return p, true
			}
		}
		c.Advance()
	}
}

// localName maps a candidate to an fs.FS name.
func localName(p string) (string, bool) {
	if isURL(p) {
		return "", false
	}
	base, _ := splitSuffix(p)
	base = strings.TrimPrefix(reDotPrefix.ReplaceAllString(base, ""), "/")
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	name := path.Clean(base)
	if !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}

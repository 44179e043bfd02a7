package rules

import (
	"regexp"
	"strings"
)

// Matcher finds occurrences of a compiled pattern. Both methods treat the
// input as raw bytes; invalid UTF-8 is matched literally.
type Matcher interface {
	Match(text string) bool
	// FindAll returns non-overlapping [start, end) byte ranges, left to right.
	FindAll(text string) [][2]int
}

// Compile builds a matcher for a pattern. Regex patterns get an (?i) flag
// when case-insensitive; plain patterns are matched byte-wise with ASCII
// case folding.
func Compile(pattern string, regex, caseSensitive bool) (Matcher, error) {
	if regex {
		src := pattern
		if !caseSensitive {
			src = "(?i)" + src
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, err
		}
		return regexMatcher{re: re}, nil
	}
	return plainMatcher{pattern: pattern, caseSensitive: caseSensitive}, nil
}

type regexMatcher struct{ re *regexp.Regexp }

func (m regexMatcher) Match(text string) bool { return m.re.MatchString(text) }

func (m regexMatcher) FindAll(text string) [][2]int {
	locs := m.re.FindAllStringIndex(text, -1)
	out := make([][2]int, 0, len(locs))
	for _, l := range locs {
		// empty matches carry nothing to highlight
		if l[1] > l[0] {
			out = append(out, [2]int{l[0], l[1]})
		}
	}
	return out
}

type plainMatcher struct {
	pattern       string
	caseSensitive bool
}

func (m plainMatcher) Match(text string) bool {
	if m.caseSensitive {
		return strings.Contains(text, m.pattern)
	}
	return indexFold(text, m.pattern, 0) >= 0
}

func (m plainMatcher) FindAll(text string) [][2]int {
	n := len(m.pattern)
	if n == 0 {
		return nil
	}
	var out [][2]int
	for from := 0; from+n <= len(text); {
		var i int
		if m.caseSensitive {
			i = strings.Index(text[from:], m.pattern)
			if i >= 0 {
				i += from
			}
		} else {
			i = indexFold(text, m.pattern, from)
		}
		if i < 0 {
			break
		}
		out = append(out, [2]int{i, i + n})
		from = i + n
	}
	return out
}

// indexFold returns the first index >= from of needle in haystack using
// ASCII case-insensitive comparison, or -1.
func indexFold(haystack, needle string, from int) int {
	n := len(needle)
	if n == 0 {
		return from
	}
	for i := from; i+n <= len(haystack); i++ {
		if equalFoldASCII(haystack[i:i+n], needle) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if 'A' <= x && x <= 'Z' {
			x += 'a' - 'A'
		}
		if 'A' <= y && y <= 'Z' {
			y += 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}

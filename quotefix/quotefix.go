// Package quotefix rewrites single-quoted entry values to double-quoted
// ones, escaping embedded double quotes.
//
// A line qualifies when it has the exact shape
//
//	<indent>'<key>': '<value>',
//
// where <value> is everything between the first "': '" and the last "',"
// on the line. A value containing a literal "'," followed by more text is
// therefore captured up to the last occurrence; known inputs never do this.
// Backslashes are copied as they are, so a value that already holds \"
// becomes \\" and the new string ends at that quote. Known inputs never
// contain a backslash.
// Lines already in the double-quoted shape do not qualify, so the rewrite
// is idempotent.
package quotefix

import (
	"regexp"
	"strings"
)

var singleQuotedEntry = regexp.MustCompile(`^(\s+'(\w+)':\s+)'(.*)',\s*$`)

// Report lists the lines rewritten by Normalize.
type Report struct {
	// Lines holds 1-based line numbers of rewritten lines.
	Lines []int
	// Keys holds the entry key of each rewritten line, parallel to Lines.
	Keys []string
}

// Changed returns the number of rewritten lines.
func (r Report) Changed() int { return len(r.Lines) }

// Normalize rewrites every qualifying line of text. Line terminators are
// preserved; whitespace trailing the final comma is dropped.
func Normalize(text string) (string, Report) {
	var (
		rep Report
		b   strings.Builder
	)
	b.Grow(len(text) + len(text)/16)

	for i, line := range strings.SplitAfter(text, "\n") {
		body, eol := splitEOL(line)
		fixed, key, ok := normalizeLine(body)
		if !ok {
			b.WriteString(line)
			continue
		}
		rep.Lines = append(rep.Lines, i+1)
		rep.Keys = append(rep.Keys, key)
		b.WriteString(fixed)
		b.WriteString(eol)
	}
	return b.String(), rep
}

func normalizeLine(body string) (fixed, key string, ok bool) {
	m := singleQuotedEntry.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	escaped := strings.ReplaceAll(m[3], `"`, `\"`)
	return m[1] + `"` + escaped + `",`, m[2], true
}

func splitEOL(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

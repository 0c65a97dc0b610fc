// Package dartmap implements a minimal line-oriented tokenizer for Dart
// localization tables of the form
//
//	static final Map<String, Map<String, String>> _localizedValues = {
//	  'en': {
//	    'greeting': 'Hello',
//	    'farewell': "Don't go",
//	  },
//	  'hi': {
//	    ...
//	  },
//	};
//
// The Dart source is never parsed. Group blocks ('<lang>': { ... }) are
// located structurally and entry lines are recognized by shape; everything
// else in the text is opaque and passed through by callers unchanged.
package dartmap

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Group blocks
// ---------------------------------------------------------------------------

// MatchMode selects how the closing brace of a group block is found.
type MatchMode string

const (
	// MatchBrace ends the block at the first '}' after the opening brace.
	// A '}' inside a value (e.g. a placeholder like '{name}') ends the
	// block early. Only useful for byte parity with older patch runs.
	MatchBrace MatchMode = "brace"
	// MatchQuoted skips '}' characters inside single- or double-quoted
	// string literals. This is the default.
	MatchQuoted MatchMode = "quoted"
)

// Block locates one group block inside the artifact text. All offsets are
// byte offsets into the text passed to FindBlock.
type Block struct {
	Lang string
	// Start is the offset of the opening quote of '<lang>'.
	Start int
	// InteriorStart is the offset just past the opening '{'.
	InteriorStart int
	// InteriorEnd is the offset of the closing '}'.
	InteriorEnd int
}

// Interior returns the text between the block's braces.
func (b Block) Interior(text string) string {
	return text[b.InteriorStart:b.InteriorEnd]
}

// openPattern matches the head of a group block: '<lang>': {
func openPattern(lang string) *regexp.Regexp {
	return regexp.MustCompile(`'` + regexp.QuoteMeta(lang) + `':\s*\{`)
}

// FindBlock returns the first block for lang. ok is false when no head
// matches or the head is never closed.
func FindBlock(text, lang string, mode MatchMode) (blk Block, ok bool) {
	loc := openPattern(lang).FindStringIndex(text)
	if loc == nil {
		return Block{}, false
	}

	var end int
	if mode == MatchQuoted {
		end = closingBraceQuoted(text[loc[1]:])
	} else {
		end = strings.IndexByte(text[loc[1]:], '}')
	}
	if end < 0 {
		return Block{}, false
	}

	return Block{
		Lang:          lang,
		Start:         loc[0],
		InteriorStart: loc[1],
		InteriorEnd:   loc[1] + end,
	}, true
}

// closingBraceQuoted returns the index of the first '}' in s that is not
// inside a string literal, or -1. Dart '...' and "..." literals end at the
// line, so an unbalanced quote (Hi! I'm ...) never spills into later lines.
func closingBraceQuoted(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\n':
			quote = 0
		case quote != 0 && c == '\\':
			if i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '\'' || c == '"':
			quote = c
		case c == '}':
			return i
		}
	}
	return -1
}

// HasKey reports whether the serialized key token '<key>': occurs anywhere
// in interior. A value that happens to contain the token counts as present.
func HasKey(interior, key string) bool {
	return strings.Contains(interior, KeyToken(key))
}

// KeyToken returns the serialized form of a key as it appears at the
// start of an entry line.
func KeyToken(key string) string {
	return "'" + key + "':"
}

// ---------------------------------------------------------------------------
// Entry lines
// ---------------------------------------------------------------------------

// Entry is one key/value line inside a group block.
type Entry struct {
	// Line is the 1-based line number within the scanned text.
	Line   int
	Indent string
	Key    string
	// Value is the decoded string value (Dart escapes resolved).
	Value string
	// Quote is the delimiter used for the value: '\'' or '"'.
	Quote byte
}

var entryLine = regexp.MustCompile(`^(\s*)'(\w+)':\s*(['"])(.*)(['"]),\s*$`)

// ParseEntry recognizes a single entry line. The line must not contain
// its terminator. Lines whose value quotes do not pair up are rejected.
func ParseEntry(line string) (Entry, bool) {
	m := entryLine.FindStringSubmatch(line)
	if m == nil || m[3] != m[5] {
		return Entry{}, false
	}
	return Entry{
		Indent: m[1],
		Key:    m[2],
		Value:  Unescape(m[4]),
		Quote:  m[3][0],
	}, true
}

// Entries returns all recognizable entry lines of text in order.
func Entries(text string) []Entry {
	var entries []Entry
	for i, line := range strings.Split(text, "\n") {
		e, ok := ParseEntry(strings.TrimSuffix(line, "\r"))
		if !ok {
			continue
		}
		e.Line = i + 1
		entries = append(entries, e)
	}
	return entries
}

// ---------------------------------------------------------------------------
// Dart string escapes
// ---------------------------------------------------------------------------

// Unescape resolves the backslash escapes of a Dart string literal body.
// Unknown escapes yield the escaped character.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// QuoteSingle renders value as a single-quoted Dart string literal.
func QuoteSingle(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return "'" + r.Replace(value) + "'"
}

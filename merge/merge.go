// Package merge reconciles group blocks of a Dart localization table with
// canonical key tables, the way msgmerge brings a PO file up to date with
// its template: keys missing from a block are appended with their default
// values, and nothing already present is touched.
//
//   - Groups are processed in canonical order, each against the text as
//     left by the previous group.
//   - A group with no block in the text is skipped.
//   - A key counts as present when its token '<key>': occurs anywhere in
//     the block interior (see dartmap.HasKey).
//   - Missing keys are appended in canonical order after the existing
//     interior; text outside the block interior is never modified.
package merge

import (
	"strings"
	"unicode"

	"github.com/minios-linux/l10npatch/config"
	"github.com/minios-linux/l10npatch/dartmap"
)

// Options controls how inserted entries are formatted and how blocks are
// located.
type Options struct {
	// EntryIndent prefixes every inserted entry line.
	EntryIndent string
	// ClosingIndent is written between the last entry and the closing brace.
	ClosingIndent string
	// Escape is config.EscapeDart or config.EscapeNone.
	Escape string
	// BlockMatch selects how a block's closing brace is found.
	BlockMatch dartmap.MatchMode
}

// DefaultOptions returns the formatting used by the embedded configuration.
func DefaultOptions() Options {
	return Options{
		EntryIndent:   "      ",
		ClosingIndent: "    ",
		Escape:        config.EscapeDart,
		BlockMatch:    dartmap.MatchQuoted,
	}
}

// OptionsFrom returns the options configured in cfg.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		EntryIndent:   cfg.EntryIndent,
		ClosingIndent: cfg.ClosingIndent,
		Escape:        cfg.Escape,
		BlockMatch:    dartmap.MatchMode(cfg.BlockMatch),
	}
}

// GroupResult describes what Reconcile did to one group.
type GroupResult struct {
	Lang string
	// Found is false when the text has no block for the group.
	Found bool
	// Present counts canonical keys already in the block.
	Present int
	// Inserted lists appended keys in insertion order.
	Inserted []string
}

// Report is the outcome of a Reconcile call, one result per canonical
// group in canonical order.
type Report struct {
	Groups []GroupResult
}

// Inserted returns the total number of appended entries.
func (r Report) Inserted() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Inserted)
	}
	return n
}

// Missing returns the groups that had no block in the text.
func (r Report) Missing() []string {
	var langs []string
	for _, g := range r.Groups {
		if !g.Found {
			langs = append(langs, g.Lang)
		}
	}
	return langs
}

// Reconcile appends every canonical key missing from its group block and
// returns the updated text.
func Reconcile(text string, groups []config.Group, opts Options) (string, Report) {
	var rep Report
	for _, g := range groups {
		var res GroupResult
		text, res = reconcileGroup(text, g, opts)
		rep.Groups = append(rep.Groups, res)
	}
	return text, rep
}

func reconcileGroup(text string, g config.Group, opts Options) (string, GroupResult) {
	res := GroupResult{Lang: g.Lang}

	blk, ok := dartmap.FindBlock(text, g.Lang, opts.BlockMatch)
	if !ok {
		return text, res
	}
	res.Found = true

	interior := blk.Interior(text)
	queued := make(map[string]bool)
	var lines []string
	for _, kv := range g.Entries {
		if dartmap.HasKey(interior, kv.Key) {
			res.Present++
			continue
		}
		if queued[kv.Key] {
			continue
		}
		queued[kv.Key] = true
		lines = append(lines, opts.EntryIndent+dartmap.KeyToken(kv.Key)+" "+quoteValue(kv.Value, opts.Escape)+",")
		res.Inserted = append(res.Inserted, kv.Key)
	}
	if len(lines) == 0 {
		return text, res
	}

	return text[:blk.InteriorStart] + appendEntries(interior, lines, opts.ClosingIndent) + text[blk.InteriorEnd:], res
}

// appendEntries returns interior with lines appended. Trailing whitespace
// of the interior is replaced by a newline (after a comma, added when the
// last entry lacks one) and closingIndent follows the new lines.
func appendEntries(interior string, lines []string, closingIndent string) string {
	var b strings.Builder
	trimmed := strings.TrimRightFunc(interior, unicode.IsSpace)
	b.WriteString(trimmed)
	switch {
	case trimmed == "":
	case strings.HasSuffix(trimmed, ","):
	default:
		b.WriteString(",")
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(closingIndent)
	return b.String()
}

func quoteValue(value, escape string) string {
	if escape == config.EscapeNone {
		return "'" + value + "'"
	}
	return dartmap.QuoteSingle(value)
}

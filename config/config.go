// Package config loads .l10npatch.yaml, the l10npatch configuration file.
//
// The configuration names the artifact to edit, the canonical key tables
// per language group, and the formatting used for inserted entries. When
// the project root has no .l10npatch.yaml, the embedded default tables
// are used instead.
//
// Group order and key order follow the YAML document; they determine the
// order in which groups are reconciled and missing keys appended.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/minios-linux/l10npatch/arbfile"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".l10npatch.yaml"

// Escape policies for inserted default values.
const (
	// EscapeDart escapes backslashes and single quotes so inserted values
	// are valid single-quoted Dart strings.
	EscapeDart = "dart"
	// EscapeNone writes values verbatim between single quotes.
	EscapeNone = "none"
)

// Block matching modes, see dartmap.MatchMode.
const (
	BlockMatchBrace  = "brace"
	BlockMatchQuoted = "quoted"
)

const (
	defaultEntryIndent   = "      "
	defaultClosingIndent = "    "
)

//go:embed default.yaml
var defaultYAML []byte

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// file is the on-disk .l10npatch.yaml structure.
type file struct {
	// Artifact is the Dart source holding the localization map, relative to the project root.
	Artifact string `yaml:"artifact"`
	// EntryIndent prefixes every inserted entry line.
	EntryIndent string `yaml:"entry_indent,omitempty"`
	// ClosingIndent is written before a block's closing brace after insertion.
	ClosingIndent string `yaml:"closing_indent,omitempty"`
	// Escape: "dart" or "none".
	Escape string `yaml:"escape,omitempty"`
	// BlockMatch: "quoted" (default) or "brace".
	BlockMatch string `yaml:"block_match,omitempty"`
	// Groups maps language → key → default value, in document order.
	Groups yaml.Node `yaml:"groups"`
	// Copy maps a target group to the group whose table it copies.
	Copy map[string]string `yaml:"copy,omitempty"`
	// ARB maps a group to an ARB file supplying its table.
	ARB map[string]string `yaml:"arb,omitempty"`
}

// ---------------------------------------------------------------------------
// Resolved configuration
// ---------------------------------------------------------------------------

// KeyValue is one canonical key with its default value.
type KeyValue struct {
	Key   string
	Value string
}

// Group is the canonical table for one language group.
type Group struct {
	Lang    string
	Entries []KeyValue
	// CopyOf names the group this table was copied from, if any.
	CopyOf string
	// ARB is the absolute ARB path this table was read from, if any.
	ARB string
}

// Keys returns the group's keys in canonical order.
func (g Group) Keys() []string {
	keys := make([]string, len(g.Entries))
	for i, kv := range g.Entries {
		keys[i] = kv.Key
	}
	return keys
}

// Config is a fully resolved configuration.
type Config struct {
	// Path is the config file that was loaded, empty for the embedded default.
	Path string
	// Root is the absolute project root.
	Root string
	// Artifact is the absolute artifact path.
	Artifact string

	EntryIndent   string
	ClosingIndent string
	Escape        string
	BlockMatch    string

	Groups []Group
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the configuration for rootDir. An explicit path must exist;
// otherwise rootDir/.l10npatch.yaml is used when present and the embedded
// default when not.
func Load(rootDir, path string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(absRoot, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(absRoot)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, absRoot, absPath)
}

// Default returns the embedded default configuration rooted at rootDir.
func Default(rootDir string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	return Parse(defaultYAML, absRoot, "")
}

// Parse decodes and validates configuration data. path is used for error
// messages and may be empty.
func Parse(data []byte, root, path string) (*Config, error) {
	label := path
	if label == "" {
		label = "default configuration"
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", label, err)
	}

	// Defaults
	if f.EntryIndent == "" {
		f.EntryIndent = defaultEntryIndent
	}
	if f.ClosingIndent == "" {
		f.ClosingIndent = defaultClosingIndent
	}
	if f.Escape == "" {
		f.Escape = EscapeDart
	}
	if f.BlockMatch == "" {
		f.BlockMatch = BlockMatchQuoted
	}

	if f.Artifact == "" {
		return nil, fmt.Errorf("%s: artifact is required", label)
	}
	switch f.Escape {
	case EscapeDart, EscapeNone:
	default:
		return nil, fmt.Errorf("%s: unknown escape %q (valid: dart, none)", label, f.Escape)
	}
	switch f.BlockMatch {
	case BlockMatchBrace, BlockMatchQuoted:
	default:
		return nil, fmt.Errorf("%s: unknown block_match %q (valid: brace, quoted)", label, f.BlockMatch)
	}

	groups, err := parseGroups(&f.Groups)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	cfg := &Config{
		Path:          path,
		Root:          root,
		Artifact:      resolvePath(root, f.Artifact),
		EntryIndent:   f.EntryIndent,
		ClosingIndent: f.ClosingIndent,
		Escape:        f.Escape,
		BlockMatch:    f.BlockMatch,
		Groups:        groups,
	}

	// ARB tables first so they can serve as copy sources.
	for _, lang := range sortedKeys(f.ARB) {
		g := cfg.ensureGroup(lang)
		if len(g.Entries) > 0 {
			return nil, fmt.Errorf("%s: group %q has both inline keys and an arb source", label, lang)
		}
		arbPath := resolvePath(root, f.ARB[lang])
		af, err := arbfile.ParseFile(arbPath)
		if err != nil {
			return nil, fmt.Errorf("%s: group %q: %w", label, lang, err)
		}
		for _, p := range af.Pairs() {
			g.Entries = append(g.Entries, KeyValue{Key: p.Key, Value: p.Value})
		}
		g.ARB = arbPath
	}

	for _, lang := range sortedKeys(f.Copy) {
		from := f.Copy[lang]
		if from == lang {
			return nil, fmt.Errorf("%s: group %q cannot copy itself", label, lang)
		}
		if _, chained := f.Copy[from]; chained {
			return nil, fmt.Errorf("%s: group %q copies %q, which is itself a copy", label, lang, from)
		}
		src := cfg.group(from)
		if src == nil {
			return nil, fmt.Errorf("%s: group %q copies unknown group %q", label, lang, from)
		}
		entries := slices.Clone(src.Entries)
		g := cfg.ensureGroup(lang)
		if len(g.Entries) > 0 || g.ARB != "" {
			return nil, fmt.Errorf("%s: group %q has its own keys and also copies %q", label, lang, from)
		}
		g.Entries = entries
		g.CopyOf = from
	}

	if len(cfg.Groups) == 0 {
		return nil, fmt.Errorf("%s: no groups defined", label)
	}

	return cfg, nil
}

// parseGroups walks the groups mapping in document order.
func parseGroups(node *yaml.Node) ([]Group, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("groups must be a mapping (line %d)", node.Line)
	}

	var groups []Group
	seenLang := make(map[string]bool)

	for i := 0; i+1 < len(node.Content); i += 2 {
		langNode := node.Content[i]
		tableNode := node.Content[i+1]

		lang := langNode.Value
		if lang == "" {
			return nil, fmt.Errorf("empty group name (line %d)", langNode.Line)
		}
		if seenLang[lang] {
			return nil, fmt.Errorf("duplicate group %q (line %d)", lang, langNode.Line)
		}
		seenLang[lang] = true

		g := Group{Lang: lang}
		switch {
		case tableNode.Kind == yaml.ScalarNode && tableNode.Tag == "!!null":
			// "te:" with no table is filled by copy or arb.
		case tableNode.Kind != yaml.MappingNode:
			return nil, fmt.Errorf("group %q must be a mapping of key: value (line %d)", lang, tableNode.Line)
		default:
			entries, err := parseTable(lang, tableNode)
			if err != nil {
				return nil, err
			}
			g.Entries = entries
		}
		groups = append(groups, g)
	}

	return groups, nil
}

func parseTable(lang string, node *yaml.Node) ([]KeyValue, error) {
	var entries []KeyValue
	seen := make(map[string]bool, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		if keyNode.Value == "" {
			return nil, fmt.Errorf("group %q: empty key (line %d)", lang, keyNode.Line)
		}
		if seen[keyNode.Value] {
			return nil, fmt.Errorf("group %q: duplicate key %q (line %d)", lang, keyNode.Value, keyNode.Line)
		}
		if valNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("group %q: value of %q must be a string (line %d)", lang, keyNode.Value, valNode.Line)
		}
		seen[keyNode.Value] = true

		value := valNode.Value
		if valNode.Tag == "!!null" {
			value = ""
		}
		entries = append(entries, KeyValue{Key: keyNode.Value, Value: value})
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Group returns the canonical table for lang.
func (c *Config) Group(lang string) (Group, bool) {
	if g := c.group(lang); g != nil {
		return *g, true
	}
	return Group{}, false
}

func (c *Config) group(lang string) *Group {
	for i := range c.Groups {
		if c.Groups[i].Lang == lang {
			return &c.Groups[i]
		}
	}
	return nil
}

// ensureGroup returns the group for lang, appending an empty one if the
// groups mapping did not list it.
func (c *Config) ensureGroup(lang string) *Group {
	if g := c.group(lang); g != nil {
		return g
	}
	c.Groups = append(c.Groups, Group{Lang: lang})
	return &c.Groups[len(c.Groups)-1]
}

// Langs returns all group names in canonical order.
func (c *Config) Langs() []string {
	langs := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		langs[i] = g.Lang
	}
	return langs
}

// Select returns the groups named in langs, in canonical order. An empty
// langs selects every group.
func (c *Config) Select(langs []string) ([]Group, error) {
	if len(langs) == 0 {
		return c.Groups, nil
	}
	want := make(map[string]bool, len(langs))
	for _, l := range langs {
		if c.group(l) == nil {
			return nil, fmt.Errorf("unknown group %q (configured: %v)", l, c.Langs())
		}
		want[l] = true
	}
	var selected []Group
	for _, g := range c.Groups {
		if want[g.Lang] {
			selected = append(selected, g)
		}
	}
	return selected, nil
}

// Dir returns the directory holding the config file, or the project root
// when the embedded default is in use. The lock file lives here.
func (c *Config) Dir() string {
	if c.Path == "" {
		return c.Root
	}
	return filepath.Dir(c.Path)
}

// ArtifactRel returns the artifact path relative to the project root, or
// the absolute path when it lies outside the root.
func (c *Config) ArtifactRel() string {
	rel, err := filepath.Rel(c.Root, c.Artifact)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return c.Artifact
	}
	return rel
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

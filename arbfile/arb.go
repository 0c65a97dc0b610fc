// Package arbfile implements reading and writing of Flutter ARB (Application
// Resource Bundle) files.
//
// ARB files are JSON files with a specific structure:
//
//   - "@@locale" holds the BCP-47 language code (e.g. "en", "hi").
//   - Keys starting with "@" (other than "@@locale") are metadata entries
//     (e.g. "@greeting") and are preserved verbatim.
//   - All other string values are messages.
//
// l10npatch reads ARB files as a source of canonical keys and writes them
// when exporting a group block. Key order is preserved in both directions.
package arbfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/minios-linux/l10npatch/artifact"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// entry is a single key in the ARB file.
type entry struct {
	key      string
	value    string // decoded string value (messages only)
	isMeta   bool   // true for @-keys (metadata / @@locale)
	rawValue []byte // original JSON value bytes (preserved for meta)
}

// Pair is one message key with its value.
type Pair struct {
	Key   string
	Value string
}

// File represents an ARB file.
type File struct {
	// locale is the value of @@locale.
	locale string
	// entries stores all keys in document order.
	entries []entry
	// index maps key → index in entries.
	index map[string]int
}

// New returns an empty ARB file for locale.
func New(locale string) *File {
	return &File{locale: locale, index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an ARB file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses ARB content. A json.Decoder token stream is used so the
// document key order survives.
func Parse(data []byte) (*File, error) {
	f := New("")
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing ARB: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing ARB key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing ARB: expected string key, got %T", keyTok)
		}

		var rawVal json.RawMessage
		if err := dec.Decode(&rawVal); err != nil {
			return nil, fmt.Errorf("parsing ARB value for %q: %w", key, err)
		}

		e := entry{key: key, isMeta: strings.HasPrefix(key, "@"), rawValue: rawVal}
		if key == "@@locale" {
			_ = json.Unmarshal(rawVal, &f.locale)
		}
		if !e.isMeta {
			if err := json.Unmarshal(rawVal, &e.value); err != nil {
				return nil, fmt.Errorf("parsing ARB: value of %q is not a string", key)
			}
		}
		f.put(e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	return f, nil
}

func (f *File) put(e entry) {
	if idx, ok := f.index[e.key]; ok {
		f.entries[idx] = e
		return
	}
	f.index[e.key] = len(f.entries)
	f.entries = append(f.entries, e)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Locale returns the @@locale value.
func (f *File) Locale() string { return f.locale }

// Keys returns all message keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Pairs returns all messages in document order.
func (f *File) Pairs() []Pair {
	var pairs []Pair
	for _, e := range f.entries {
		if !e.isMeta {
			pairs = append(pairs, Pair{Key: e.key, Value: e.value})
		}
	}
	return pairs
}

// Add appends a message, or replaces the value of an existing one in place.
// Metadata keys are rejected.
func (f *File) Add(key, value string) error {
	if strings.HasPrefix(key, "@") {
		return fmt.Errorf("ARB key %q is reserved for metadata", key)
	}
	f.put(entry{key: key, value: value})
	return nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the ARB file to JSON with 2-space indentation.
// The @@locale key is always written first.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	first := true
	field := func(key string, value []byte) {
		if !first {
			buf.WriteString(",")
		}
		first = false
		keyBytes, _ := json.Marshal(key)
		buf.WriteString("\n  ")
		buf.Write(keyBytes)
		buf.WriteString(": ")
		buf.Write(value)
	}

	if f.locale != "" {
		raw, _ := json.Marshal(f.locale)
		field("@@locale", raw)
	}

	for _, e := range f.entries {
		if e.key == "@@locale" {
			continue
		}
		if e.isMeta {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, e.rawValue, "  ", "  "); err != nil {
				return nil, fmt.Errorf("metadata %q: %w", e.key, err)
			}
			field(e.key, pretty.Bytes())
			continue
		}
		raw, err := marshalString(e.value)
		if err != nil {
			return nil, err
		}
		field(e.key, raw)
	}

	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// marshalString encodes s without HTML escaping so messages containing
// '<', '>' or '&' stay readable.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteFile serialises and atomically writes to path.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return artifact.WriteFile(path, data, 0644)
}

package merge

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/minios-linux/l10npatch/config"
	"github.com/minios-linux/l10npatch/dartmap"
	"github.com/minios-linux/l10npatch/quotefix"
)

const table = `class LocalizationHelper {
  static const Map<String, Map<String, String>> _values = {
    'en': {
      'foo': 'bar',
    },
    'hi': {
      'foo': "बार",
      'water': 'पानी'
    },
    'te': {},
  };
}
`

func group(lang string, kv ...string) config.Group {
	g := config.Group{Lang: lang}
	for i := 0; i+1 < len(kv); i += 2 {
		g.Entries = append(g.Entries, config.KeyValue{Key: kv[i], Value: kv[i+1]})
	}
	return g
}

func TestReconcileAppendsMissingKeys(t *testing.T) {
	groups := []config.Group{group("en", "foo", "bar", "baz", "qux")}

	got, rep := Reconcile(table, groups, DefaultOptions())

	want := strings.Replace(table,
		"      'foo': 'bar',\n    },",
		"      'foo': 'bar',\n      'baz': 'qux',\n    },", 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Reconcile mismatch (-want +got):\n%s", diff)
	}

	wantRep := Report{Groups: []GroupResult{{Lang: "en", Found: true, Present: 1, Inserted: []string{"baz"}}}}
	if !reflect.DeepEqual(rep, wantRep) {
		t.Fatalf("Report = %#v, want %#v", rep, wantRep)
	}
}

func TestReconcileAddsCommaAfterLastEntry(t *testing.T) {
	groups := []config.Group{group("hi", "water", "जल", "gas", "गैस")}

	got, rep := Reconcile(table, groups, DefaultOptions())

	want := strings.Replace(table,
		"      'water': 'पानी'\n    },",
		"      'water': 'पानी',\n      'gas': 'गैस',\n    },", 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Reconcile mismatch (-want +got):\n%s", diff)
	}
	if rep.Groups[0].Present != 1 || !reflect.DeepEqual(rep.Groups[0].Inserted, []string{"gas"}) {
		t.Fatalf("unexpected result %#v", rep.Groups[0])
	}
}

func TestReconcileEmptyBlock(t *testing.T) {
	groups := []config.Group{group("te", "a", "1", "b", "2")}

	got, _ := Reconcile(table, groups, DefaultOptions())

	want := strings.Replace(table, "'te': {},",
		"'te': {\n      'a': '1',\n      'b': '2',\n    },", 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Reconcile mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileMissingGroupIsNoop(t *testing.T) {
	groups := []config.Group{group("xx", "foo", "bar")}

	got, rep := Reconcile(table, groups, DefaultOptions())
	if got != table {
		t.Fatalf("text changed for a missing group:\n%s", got)
	}
	if !reflect.DeepEqual(rep.Missing(), []string{"xx"}) {
		t.Fatalf("Missing() = %v, want [xx]", rep.Missing())
	}
	if rep.Inserted() != 0 {
		t.Fatalf("Inserted() = %d, want 0", rep.Inserted())
	}
}

func TestReconcileSecondRunInsertsNothing(t *testing.T) {
	groups := []config.Group{
		group("en", "foo", "bar", "baz", "qux", "quote", "Tap 'Scan'"),
		group("hi", "foo", "x", "new", "नया"),
		group("te", "foo", "bar", "baz", "qux"),
		group("xx", "foo", "bar"),
	}

	once, rep := Reconcile(table, groups, DefaultOptions())
	if rep.Inserted() != 5 {
		t.Fatalf("first run Inserted() = %d, want 5", rep.Inserted())
	}

	twice, rep := Reconcile(once, groups, DefaultOptions())
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second run changed text (-once +twice):\n%s", diff)
	}
	if rep.Inserted() != 0 {
		t.Fatalf("second run Inserted() = %d, want 0", rep.Inserted())
	}
}

func TestReconcileKeySetCompletenessAndNonDestructive(t *testing.T) {
	groups := []config.Group{
		group("en", "foo", "CHANGED", "a", "1", "b", "2"),
		group("hi", "water", "CHANGED", "a", "1"),
		group("te", "a", "1"),
	}
	opts := DefaultOptions()

	got, _ := Reconcile(table, groups, opts)

	for _, g := range groups {
		blk, ok := dartmap.FindBlock(got, g.Lang, opts.BlockMatch)
		if !ok {
			t.Fatalf("block %s lost", g.Lang)
		}
		interior := blk.Interior(got)
		for _, kv := range g.Entries {
			if n := strings.Count(interior, dartmap.KeyToken(kv.Key)); n != 1 {
				t.Fatalf("%s: key %q appears %d times, want 1", g.Lang, kv.Key, n)
			}
		}
	}

	for _, line := range []string{
		"      'foo': 'bar',\n",
		"      'foo': \"बार\",\n",
		"      'water': 'पानी'",
	} {
		if !strings.Contains(got, line) {
			t.Fatalf("existing entry %q was modified:\n%s", line, got)
		}
	}
	if strings.Contains(got, "CHANGED") {
		t.Fatal("existing values must never be overwritten")
	}
}

func TestReconcileScopedEdits(t *testing.T) {
	groups := []config.Group{group("hi", "a", "1")}
	opts := DefaultOptions()

	before, _ := dartmap.FindBlock(table, "hi", opts.BlockMatch)
	got, _ := Reconcile(table, groups, opts)
	after, _ := dartmap.FindBlock(got, "hi", opts.BlockMatch)

	if got[:before.InteriorStart] != table[:before.InteriorStart] {
		t.Fatal("text before the block changed")
	}
	if got[after.InteriorEnd:] != table[before.InteriorEnd:] {
		t.Fatal("text after the block changed")
	}
}

func TestReconcileEscapePolicies(t *testing.T) {
	groups := []config.Group{group("en", "hint", `Tap on 'Scanner' \o/`)}

	t.Run("dart", func(t *testing.T) {
		got, _ := Reconcile(table, groups, DefaultOptions())
		if !strings.Contains(got, `      'hint': 'Tap on \'Scanner\' \\o/',`) {
			t.Fatalf("dart escaping missing:\n%s", got)
		}
	})

	t.Run("none keeps bytes verbatim", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Escape = config.EscapeNone
		got, _ := Reconcile(table, groups, opts)
		if !strings.Contains(got, `      'hint': 'Tap on 'Scanner' \o/',`) {
			t.Fatalf("verbatim value missing:\n%s", got)
		}
	})
}

func TestReconcileDuplicateCanonicalKeys(t *testing.T) {
	groups := []config.Group{group("te", "a", "1", "a", "2")}

	got, rep := Reconcile(table, groups, DefaultOptions())
	if n := strings.Count(got, "'a':"); n != 1 {
		t.Fatalf("key a inserted %d times, want 1", n)
	}
	if !strings.Contains(got, "'a': '1',") {
		t.Fatal("first canonical value should win")
	}
	if !reflect.DeepEqual(rep.Groups[0].Inserted, []string{"a"}) {
		t.Fatalf("Inserted = %v, want [a]", rep.Groups[0].Inserted)
	}
}

func TestReconcileBlockMatchModes(t *testing.T) {
	text := "final m = {\n  'en': {\n    'greet': 'Hi {name}',\n  },\n};\n"
	groups := []config.Group{group("en", "bye", "Bye")}

	t.Run("brace ends at interpolation", func(t *testing.T) {
		opts := DefaultOptions()
		opts.BlockMatch = dartmap.MatchBrace
		got, _ := Reconcile(text, groups, opts)
		want := "final m = {\n  'en': {\n    'greet': 'Hi {name,\n      'bye': 'Bye',\n    }',\n  },\n};\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("quoted skips interpolation", func(t *testing.T) {
		opts := DefaultOptions()
		opts.ClosingIndent = "  "
		opts.EntryIndent = "    "
		got, _ := Reconcile(text, groups, opts)
		want := "final m = {\n  'en': {\n    'greet': 'Hi {name}',\n    'bye': 'Bye',\n  },\n};\n"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestOptionsFrom(t *testing.T) {
	cfg := &config.Config{EntryIndent: "\t\t", ClosingIndent: "\t", Escape: config.EscapeNone, BlockMatch: config.BlockMatchQuoted}
	want := Options{EntryIndent: "\t\t", ClosingIndent: "\t", Escape: config.EscapeNone, BlockMatch: dartmap.MatchQuoted}
	if got := OptionsFrom(cfg); got != want {
		t.Fatalf("OptionsFrom = %#v, want %#v", got, want)
	}
}

const shippedArtifact = `class LocalizationHelper {
  static const Map<String, Map<String, String>> _localizedValues = {
    'en': {
      'no_recent_transactions': 'Nothing for {name} yet',
      'bot_welcome': 'Hi! I'm Expensya',
      'greeting': "See you {later}",
    },
    'hi': {
      'greeting': 'नमस्ते {name}',
    },
    'te': {},
    'ta': {
    },
    'kn': {},
  };
}
`

func TestReconcileDefaultTablesTwice(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	if err != nil {
		t.Fatalf("config.Default error: %v", err)
	}

	tests := []struct {
		name   string
		escape string
		// normalize runs the quote rewrite before each pass, as the run
		// command does.
		normalize bool
	}{
		{name: "patch with dart escaping", escape: config.EscapeDart},
		{name: "run with dart escaping", escape: config.EscapeDart, normalize: true},
		{name: "run with verbatim values", escape: config.EscapeNone, normalize: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := OptionsFrom(cfg)
			opts.Escape = tc.escape

			pass := func(text string) (string, Report) {
				if tc.normalize {
					text, _ = quotefix.Normalize(text)
				}
				return Reconcile(text, cfg.Groups, opts)
			}

			once, rep := pass(shippedArtifact)
			if rep.Inserted() == 0 {
				t.Fatal("first pass inserted nothing")
			}
			twice, rep := pass(once)
			if n := rep.Inserted(); n != 0 {
				t.Fatalf("second pass Inserted() = %d, want 0", n)
			}
			if !tc.normalize {
				if diff := cmp.Diff(once, twice); diff != "" {
					t.Fatalf("second pass changed text (-once +twice):\n%s", diff)
				}
			}

			for _, g := range cfg.Groups {
				blk, ok := dartmap.FindBlock(twice, g.Lang, opts.BlockMatch)
				if !ok {
					t.Fatalf("block %s lost", g.Lang)
				}
				interior := blk.Interior(twice)
				for _, key := range g.Keys() {
					if n := strings.Count(interior, dartmap.KeyToken(key)); n != 1 {
						t.Fatalf("%s: key %q appears %d times, want 1", g.Lang, key, n)
					}
				}
			}
			if !strings.HasSuffix(twice, "    },\n  };\n}\n") {
				t.Fatalf("text after the last block changed:\n%s", twice[len(twice)-40:])
			}
		})
	}
}

package quotefix

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "embedded double quotes are escaped",
			in:   `  'greeting': 'Hi "there"',`,
			want: `  'greeting': "Hi \"there\"",`,
		},
		{
			name: "broken inner single quotes",
			in:   `      'bot_welcome': 'Hi! I'm Expensya',`,
			want: `      'bot_welcome': "Hi! I'm Expensya",`,
		},
		{
			name: "trailing whitespace dropped",
			in:   "    'a': 'b',   ",
			want: `    'a': "b",`,
		},
		{
			name: "value captured to last comma",
			in:   `  'k': 'one', 'two',`,
			want: `  'k': "one', 'two",`,
		},
		{
			name: "escaped double quote is escaped again",
			in:   `  'k': 'say \"hi\"',`,
			want: `  'k': "say \\"hi\\"",`,
		},
		{
			name: "already double quoted",
			in:   `  'k': "v",`,
			want: `  'k': "v",`,
		},
		{
			name: "no indentation",
			in:   `'k': 'v',`,
			want: `'k': 'v',`,
		},
		{
			name: "block head",
			in:   `    'en': {`,
			want: `    'en': {`,
		},
		{
			name: "last entry without comma",
			in:   `  'k': 'v'`,
			want: `  'k': 'v'`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Normalize(tc.in)
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

const artifact = "final m = {\n" +
	"    'en': {\n" +
	"      'title': 'Wallet',\n" +
	"      'bot_welcome': 'Hi! I'm \"Expensya\"',\r\n" +
	"      'done': \"Done\",\n" +
	"\n" +
	"      'hint': 'Tap 'Scan'',\n" +
	"    },\n" +
	"};"

func TestNormalizeArtifact(t *testing.T) {
	got, rep := Normalize(artifact)
	want := "final m = {\n" +
		"    'en': {\n" +
		"      'title': \"Wallet\",\n" +
		"      'bot_welcome': \"Hi! I'm \\\"Expensya\\\"\",\r\n" +
		"      'done': \"Done\",\n" +
		"\n" +
		"      'hint': \"Tap 'Scan'\",\n" +
		"    },\n" +
		"};"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize mismatch (-want +got):\n%s", diff)
	}

	if !reflect.DeepEqual(rep.Lines, []int{3, 4, 7}) {
		t.Fatalf("Report.Lines = %v, want [3 4 7]", rep.Lines)
	}
	if !reflect.DeepEqual(rep.Keys, []string{"title", "bot_welcome", "hint"}) {
		t.Fatalf("Report.Keys = %v", rep.Keys)
	}
	if rep.Changed() != 3 {
		t.Fatalf("Changed() = %d, want 3", rep.Changed())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		artifact,
		"  'greeting': 'Hi \"there\"',\n",
		"  'a': 'x\\'y',\n  'b': 'z',",
		"",
	}
	for _, in := range inputs {
		once, _ := Normalize(in)
		twice, rep := Normalize(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("second pass changed output (-once +twice):\n%s", diff)
		}
		if rep.Changed() != 0 {
			t.Fatalf("second pass rewrote %d lines, want 0", rep.Changed())
		}
	}
}

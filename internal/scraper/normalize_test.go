package scraper

import (
	"testing"
	"testing/quick"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n\n \r\n ", ""},
		{"collapses spaces and tabs", "Senior \t Go   Engineer", "Senior Go Engineer"},
		{"trims every line", "  first  \n  second  ", "first\nsecond"},
		{"line break is kept, indentation dropped", "a\n b", "a\nb"},
		{"two blank lines become one", "a\n\n\nb", "a\n\nb"},
		{"squeezes blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"keeps a single blank line", "a\n\nb", "a\n\nb"},
		{"drops leading and trailing blank lines", "\n\n\na\n\n\n", "a"},
		{"whitespace-only lines count as blank", "a\n   \n\t\n \nb", "a\n\nb"},
		{"carriage returns", "a\r\nb\rc", "a\nb\nc"},
		{"non-breaking space", "a\u00a0\u00a0b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	samples := []string{
		"",
		"   leading",
		"Requirements:\n\n\n  - Go\n\t- SQL  \n\n\nBenefits",
		"\r\n\r\n x \r\n\r\n\r\n y \r\n",
		"tab\tseparated\tvalues\n\n\n\n",
	}
	for _, s := range samples {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, twice, once)
		}
	}

	idempotent := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}
	if err := quick.Check(idempotent, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

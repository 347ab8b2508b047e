package sqlfmt

import "testing"

func TestNormalizerFormat(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "SELECT  *\n\tFROM   sales", "SELECT * FROM sales"},
		{"trims", "  SELECT 1  ", "SELECT 1"},
		{"drops trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"single trailing semicolon only", "SELECT 1;;", "SELECT 1;"},
		{"semicolon with trailing space", "SELECT 1 ; ", "SELECT 1"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (Normalizer{}).Format(tc.in); got != tc.want {
				t.Fatalf("Format(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizerIsStable(t *testing.T) {
	in := "SELECT *\nFROM sales;"
	once := (Normalizer{}).Format(in)
	if twice := (Normalizer{}).Format(once); twice != once {
		t.Fatalf("Format not stable: %q -> %q", once, twice)
	}
}

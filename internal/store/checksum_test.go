package store

import "testing"

func TestChecksumGrid_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		grid [][]any
		want Checksum
	}{
		{"nil grid", nil, "97d170e1550eee4afc0af065b78cda302a97674c"},
		{"empty grid", [][]any{}, "97d170e1550eee4afc0af065b78cda302a97674c"},
		{"utf-8 kept", [][]any{{"No.", "Tanggal"}, {1, "Transfer BCA → OVO"}}, "1654889a0cb1fd4fd2ae7ab5f86e9982df461734"},
		{"no html escaping", [][]any{{"a<b", "&"}}, "1e754fc4e2c8eba16fc4484d25ccb4e0468aa9de"},
		{"line separator raw", [][]any{{"x\u2028y"}}, "af8d57f2fbaf1e2931695aa09bc74da72acaf021"},
		{"paragraph separator and escaped backslash", [][]any{{"a\u2029b", `\u2028`}}, "1aac49ac7ccd7a82574e99caaef0587052466b62"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChecksumGrid(tt.grid)
			if err != nil {
				t.Fatalf("ChecksumGrid() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ChecksumGrid() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChecksumGrid_StableAndSensitive(t *testing.T) {
	base := [][]any{{"No.", "Credit"}, {1, 500.0}, {2, "Rp 1.000"}}

	a, _ := ChecksumGrid(base)
	b, _ := ChecksumGrid([][]any{{"No.", "Credit"}, {1, 500.0}, {2, "Rp 1.000"}})
	if a != b {
		t.Errorf("identical grids hash differently: %s vs %s", a, b)
	}

	variants := map[string][][]any{
		"cell edited":   {{"No.", "Credit"}, {1, 501.0}, {2, "Rp 1.000"}},
		"row appended":  {{"No.", "Credit"}, {1, 500.0}, {2, "Rp 1.000"}, {3, 1.0}},
		"rows swapped":  {{"No.", "Credit"}, {2, "Rp 1.000"}, {1, 500.0}},
		"header edited": {{"No", "Credit"}, {1, 500.0}, {2, "Rp 1.000"}},
	}
	for name, g := range variants {
		got, err := ChecksumGrid(g)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got == a {
			t.Errorf("%s: checksum did not change", name)
		}
	}
}

func TestChecksumGrid_InvalidUTF8(t *testing.T) {
	cells := []string{"note \xff", "note \xfe", "note \ufffd", "note"}
	seen := map[Checksum]string{}
	for _, c := range cells {
		got, err := ChecksumGrid([][]any{{c}})
		if err != nil {
			t.Fatalf("ChecksumGrid(%q) error: %v", c, err)
		}
		if prev, ok := seen[got]; ok {
			t.Errorf("%q and %q hash to the same checksum %s", prev, c, got)
		}
		seen[got] = c
	}

	a, _ := ChecksumGrid([][]any{{"a\xffb"}})
	b, _ := ChecksumGrid([][]any{{"a\xffb"}})
	if a != b {
		t.Errorf("invalid bytes hash unstably: %s vs %s", a, b)
	}
}

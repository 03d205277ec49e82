package domain

import "testing"

func TestNormalizeScore(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"float64 passthrough", 0.42, 0.42},
		{"float32", float32(0.5), 0.5},
		{"int", 1, 1.0},
		{"int64", int64(2), 2.0},
		{"very high tier", "VERY_HIGH", 1.0},
		{"lowercase tier", "high", 0.75},
		{"padded tier", "  Medium ", 0.5},
		{"low tier", "LOW", 0.25},
		{"unknown tier", "meh", 0.1},
		{"unsupported type", []string{"x"}, 0.1},
		{"nil", nil, 0.1},
	}
	for _, tc := range cases {
		if got := NormalizeScore(tc.raw); got != tc.want {
			t.Fatalf("%s: NormalizeScore(%v) = %v, want %v", tc.name, tc.raw, got, tc.want)
		}
	}
}

package utils

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Running Shoes", "running-shoes"},
		{"  Café  au Lait!  ", "caf-au-lait"},
		{"ALL CAPS", "all-caps"},
		{"already-a-slug", "already-a-slug"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{25.004, 25.0},
		{25.006, 25.01},
		{0.1 * 3, 0.3},
		{19.999, 20.0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateRandomString(t *testing.T) {
	a := GenerateRandomString(10)
	b := GenerateRandomString(10)
	if len(a) != 10 || len(b) != 10 {
		t.Fatalf("unexpected lengths %d/%d", len(a), len(b))
	}
	if a == b {
		t.Fatalf("two draws produced the same string %q", a)
	}
}

func TestGetUUID(t *testing.T) {
	a := GetUUID()
	b := GetUUID()
	if len(a) != 36 {
		t.Fatalf("unexpected uuid %q", a)
	}
	if a == b {
		t.Fatalf("two draws produced the same uuid %q", a)
	}
}

package domain

import "testing"

func TestNormalizeCategoryName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Tech", "tech"},
		{"  Tech  ", "tech"},
		{"Machine   Learning", "machine learning"},
		{"machine learning", "machine learning"},
		{"\tWeb  Development\n", "web development"},
		{"Straße", "strasse"}, // case folding, not just ToLower
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeCategoryName(c.in); got != c.want {
			t.Fatalf("NormalizeCategoryName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeCategoryName_VariantsCollapse(t *testing.T) {
	variants := []string{"Data Science", "data science", "DATA  SCIENCE", " data\tScience "}
	want := NormalizeCategoryName(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeCategoryName(v); got != want {
			t.Fatalf("variant %q normalized to %q, want %q", v, got, want)
		}
	}
}

package extract

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"tabs and runs of spaces", "a\t\tb   c", "a b c"},
		{"control characters", "a\x00b\x0cc", "abc"},
		{"blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"trailing spaces on lines", "a   \nb\t\n", "a\nb"},
		{"surrounding whitespace", "  hola  ", "hola"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("%s: Normalize(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestNormalizeKeepsAccents(t *testing.T) {
	in := "CERTIFICADO DE INSCRIPCIÓN\nAÑO: 2019"
	if got := Normalize(in); got != in {
		t.Errorf("Normalize(%q) = %q, want unchanged", in, got)
	}
}

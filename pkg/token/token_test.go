package token

import "testing"

func TestKeywordLanguage(t *testing.T) {
	cases := []struct {
		lexeme string
		want   string
	}{
		{"fun", "en"},
		{"функция", "ru"},
		{"return", "en"},
		{"вернуть", "ru"},
		{"notakeyword", ""},
	}
	for _, c := range cases {
		if got := KeywordLanguage(c.lexeme); got != c.want {
			t.Errorf("KeywordLanguage(%q) = %q, want %q", c.lexeme, got, c.want)
		}
	}
}

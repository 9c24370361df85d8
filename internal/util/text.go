package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldLabel decomposes accented characters, drops the combining marks, uppercases
// and trims, so "Descrição " and "DESCRICAO" compare equal.
func FoldLabel(input string) string {
	// transform.Chain keeps per-call state, so a fresh chain is built each time.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(strip, input)
	if err != nil {
		s = input
	}
	return strings.TrimSpace(strings.ToUpper(s))
}

func FoldAll(inputs []string) []string {
	out := make([]string, len(inputs))
	for i, s := range inputs {
		out[i] = FoldLabel(s)
	}
	return out
}

func ContainsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func EqualsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

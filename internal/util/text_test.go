package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "accented", input: "Descrição", want: "DESCRICAO"},
		{name: "already folded", input: "DESCRICAO", want: "DESCRICAO"},
		{name: "padded", input: "  Local ", want: "LOCAL"},
		{name: "cedilla and tilde", input: "Calibração (SIM ou NÃO)", want: "CALIBRACAO (SIM OU NAO)"},
		{name: "acute", input: "TAG Hemobrás", want: "TAG HEMOBRAS"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, FoldLabel(tc.input))
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsAny("LINHA H2SO4", []string{"HSO", "H2SO4"}))
	assert.False(t, ContainsAny("LOCAL", []string{"CA-", "-CA"}))
	assert.False(t, ContainsAny("anything", nil))
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty())
}

// backend/src/utils/normalize_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "accented with hyphen", input: "Éden-Red", want: "edenred"},
		{name: "plain with space", input: "eden red", want: "edenred"},
		{name: "already normalized", input: "edenred", want: "edenred"},
		{name: "legal suffix with slash", input: "EDENRED BELGIUM SA/NV", want: "edenredbelgiumsanv"},
		{name: "underscores and dots", input: "some_name.v2", want: "somenamev2"},
		{name: "empty", input: "", want: ""},
		{name: "only separators", input: " -_./ ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{"Éden-Red", "KBC Bank NV", "PROXIMUS S.A.", "virement en faveur de"}
	for _, input := range inputs {
		once := NormalizeText(input)
		assert.Equal(t, once, NormalizeText(once), "NormalizeText should be idempotent for %q", input)
	}
}

func TestNormalizeTextTreatsAccentedFormsAsEqual(t *testing.T) {
	assert.Equal(t, NormalizeText("Éden-Red"), NormalizeText("eden red"))
	assert.Equal(t, NormalizeText("RECOUVREMENT EUROPÉEN"), NormalizeText("recouvrement europeen"))
}

func TestFoldMarks(t *testing.T) {
	assert.Equal(t, "EUROPEEN", FoldMarks("EUROPÉEN"))
	assert.Equal(t, "KBC BANK NV", FoldMarks("KBC BANK NV"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Eden Red", TitleCase("eden red"))
	assert.Equal(t, "Kbc Bank Nv", TitleCase("KBC BANK NV"))
	assert.Equal(t, "Acme", TitleCase("  ACME  "))
}

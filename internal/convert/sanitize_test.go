package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	cases := map[string]string{
		"Plain Title":        "Plain Title",
		"  padded  ":         "padded",
		"a/b":                "a-b",
		`a\b`:                "a-b",
		`what? "quoted" <x>`: "what quoted x",
		"pipes|and*stars":    "pipesandstars",
		"colon: subtitle":    "colon subtitle",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeTitle(in), "input %q", in)
	}
}

func TestSanitizeTitleNormalizesNFC(t *testing.T) {
	// Combining acute accent folds into the precomposed rune.
	assert.Equal(t, "é", SanitizeTitle("é"))
}

package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeLatin(t *testing.T) {
	toks := Tokenize("The Quick Brown Fox jumps over 2 lazy dogs")
	assert.Contains(t, toks, "the")
	assert.Contains(t, toks, "quick")
	assert.Contains(t, toks, "dogs")
	// single-letter / single-digit words are dropped (length > 1 rule).
	assert.NotContains(t, toks, "2")
}

func TestTokenizeDedupAndCap(t *testing.T) {
	toks := Tokenize("alpha alpha alpha beta beta gamma")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, toks)
}

func TestTokenizeStopwordRemoval(t *testing.T) {
	toks := Tokenize("我的项目")
	for _, sw := range []string{"我", "的"} {
		assert.NotContains(t, toks, sw)
	}
}

func TestTokenizeCJKFallbackBigrams(t *testing.T) {
	toks := Tokenize("开心")
	require.NotEmpty(t, toks)
	// Fallback emits unigrams and the consecutive bigram.
	assert.Contains(t, toks, "开")
	assert.Contains(t, toks, "心")
	assert.Contains(t, toks, "开心")
}

func TestTokenizeCapsAtThirty(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, string(rune('a'+i%26))+string(rune('a'+(i+1)%26)))
	}
	toks := Tokenize(joinUnique(words))
	assert.LessOrEqual(t, len(toks), 30)
}

func joinUnique(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w + string(rune('0'+i%10)) // force distinctness in case of repeats
	}
	return out
}

func TestIndexFormJoinsWithSpaces(t *testing.T) {
	assert.Equal(t, "hello world", IndexForm("Hello, World!"))
}

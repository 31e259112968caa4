package semantic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibez/internal/models"
)

func TestNewHashingEmbedderValidation(t *testing.T) {
	e, err := NewHashingEmbedder(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, e.Dimensions())

	_, err = NewHashingEmbedder(32)
	assert.Error(t, err)

	_, err = NewHashingEmbedder(4096)
	assert.Error(t, err)

	e, err = NewHashingEmbedder(64)
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimensions())
}

func TestEmbedTextDeterministic(t *testing.T) {
	e, err := NewHashingEmbedder(256)
	require.NoError(t, err)

	a := e.EmbedText("postgres vector index tuning")
	b := e.EmbedText("postgres vector index tuning")
	assert.Equal(t, a, b)
	assert.Len(t, a, 256)
}

func TestEmbedTextNormalized(t *testing.T) {
	e, err := NewHashingEmbedder(256)
	require.NoError(t, err)

	vec := e.EmbedText("the quick brown fox jumps over the lazy dog")
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestEmbedTextEmpty(t *testing.T) {
	e, err := NewHashingEmbedder(128)
	require.NoError(t, err)

	vec := e.EmbedText("!!! ???")
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedTextDiffers(t *testing.T) {
	e, err := NewHashingEmbedder(256)
	require.NoError(t, err)

	a := e.EmbedText("deploying the analytics service")
	b := e.EmbedText("weekend hiking photos")
	assert.NotEqual(t, a, b)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "42", "world"}, Tokenize("Hello, 42 world! a"))
	assert.Nil(t, Tokenize(""))
	assert.Nil(t, Tokenize("a ! b"))
}

func TestComposeEmbeddingText(t *testing.T) {
	rec := models.Record{
		Message: models.Message{
			Body:       "the body",
			RoomName:   "general",
			SenderName: "Alice",
		},
		Topics:           []string{"golang", "vectors"},
		ContributionHint: "chime in",
	}
	text := ComposeEmbeddingText(rec)
	assert.Contains(t, text, "the body")
	assert.Contains(t, text, "golang vectors")
	assert.Contains(t, text, "chime in")
	assert.NotContains(t, text, "  \n ")
}

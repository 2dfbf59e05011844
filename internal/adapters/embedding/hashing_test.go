package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/config"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashingEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Mức phạt vi phạm")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "mức PHẠT vi phạm")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestHashingEmbedder_SharedWordsScoreHigher(t *testing.T) {
	e := NewHashingEmbedder(0)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{
		"Mức phạt vi phạm quy định an toàn là 500.000 VNĐ.",
		"Giờ làm việc bắt đầu lúc tám giờ sáng.",
	})
	require.NoError(t, err)
	q, err := e.Embed(ctx, "Mức phạt vi phạm an toàn là bao nhiêu?")
	require.NoError(t, err)

	assert.Greater(t, cosine(q, vecs[0]), cosine(q, vecs[1]))
}

func TestHashingEmbedder_EmptyText(t *testing.T) {
	v, err := NewHashingEmbedder(8).Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestNew_SelectsProvider(t *testing.T) {
	e, err := New(config.EmbedderConfig{Provider: "hashing", Dimensions: 16}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HashingEmbedder{}, e)

	e, err = New(config.EmbedderConfig{Provider: "ollama"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaAdapter{}, e)

	_, err = New(config.EmbedderConfig{Provider: "openai"}, nil)
	assert.Error(t, err, "openai needs an API key")

	_, err = New(config.EmbedderConfig{Provider: "bert"}, nil)
	assert.Error(t, err)
}

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashingEmbedder maps word unigrams and bigrams into a fixed number of
// signed buckets. It needs no model or network and is deterministic.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a HashingEmbedder; dims defaults to 512.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 512
	}
	return &HashingEmbedder{dims: dims}
}

// Embed returns the L2-normalized hashed feature vector of text.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dims)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		e.add(vec, tok)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds texts in order.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashingEmbedder) add(vec []float64, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}

package vectordb

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

type scored struct {
	chunk entities.Chunk
	score float64
}

// rank orders candidates by descending score and keeps the first topK.
// Candidates must arrive in insertion order; equal scores keep that order.
func rank(candidates []scored, topK int) []entities.QueryResult {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	results := make([]entities.QueryResult, len(candidates))
	for i, c := range candidates {
		results[i] = entities.QueryResult{
			Chunk:     c.chunk,
			Score:     c.score,
			SourceDoc: c.chunk.DocumentID,
		}
	}
	return results
}

// cosineSimilarity calculates cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	s := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(s) {
		return 0
	}
	return s
}

// encodeVector stores v as little-endian float32s.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.New("vectordb: truncated vector")
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

// Package embedder provides embedding functions for the chromem memory store.
package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// DefaultDimensions matches all-MiniLM-L6-v2.
const DefaultDimensions = 384

// Hash returns a deterministic embedding function seeded from the FNV hash of
// each lower-cased word. Texts sharing words land close to each other, which
// is enough for tests and offline use. It never calls out to a model.
func Hash(dimensions int) chromem.EmbeddingFunc {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dimensions)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,;:!?\"'()")
			if word == "" {
				continue
			}
			h := fnv.New64a()
			_, _ = h.Write([]byte(word))
			seed := h.Sum64()
			for i := range vec {
				seed = seed*6364136223846793005 + 1442695040888963407
				vec[i] += float32(int64(seed)) / float32(math.MaxInt64)
			}
		}
		return normalize(vec), nil
	}
}

// OpenAI returns an embedding function backed by an OpenAI compatible
// embeddings endpoint. An empty baseURL selects api.openai.com and an empty
// apiKey falls back to OPENAI_API_KEY.
func OpenAI(baseURL, apiKey, model string) chromem.EmbeddingFunc {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = string(chromem.EmbeddingModelOpenAI3Small)
	}
	if baseURL == "" {
		return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model))
	}
	normalized := true
	return chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, &normalized)
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// chromem rejects zero vectors for cosine similarity
		vec[0] = 1
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}

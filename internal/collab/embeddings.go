package collab

import "context"

// Embedder is the embedding-service collaborator boundary (spec §6): "a
// capability that maps one or more strings to vectors of a fixed
// dimension." All vectors returned by a single Embedder share Dimensions().
type Embedder interface {
	// Embed computes the embedding for a single string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for texts in one call; the result has
	// the same length as texts, in order. On error the result is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed length of every vector this Embedder produces.
	Dimensions() int
}

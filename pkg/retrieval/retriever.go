// Package retrieval adapts the pgvector store into the agent's Retriever
// contract: embed the query, run a similarity search, map the rows.
package retrieval

import (
	"context"
	"fmt"

	"github.com/opskb/knowledge-agent/pkg/agent"
	"github.com/opskb/knowledge-agent/pkg/embeddings"
	"github.com/opskb/knowledge-agent/pkg/vectorstore"
)

type Retriever struct {
	store    *vectorstore.PGVectorStore
	embedder *embeddings.GoogleEmbedder
}

func New(store *vectorstore.PGVectorStore, embedder *embeddings.GoogleEmbedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Search embeds the query and returns the top-k indexed documents.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]agent.Document, error) {
	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.SimilaritySearch(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	docs := make([]agent.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, agent.Document{
			Content:  res.Document.Content,
			Metadata: res.Document.Metadata,
		})
	}
	return docs, nil
}

// Package ingest populates the vector index from local documents: load,
// chunk, embed, store. It runs offline, separately from the answering
// workflow that reads the index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/opskb/knowledge-agent/pkg/embeddings"
	"github.com/opskb/knowledge-agent/pkg/vectorstore"
)

type Pipeline struct {
	store        *vectorstore.PGVectorStore
	embedder     *embeddings.GoogleEmbedder
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

func NewPipeline(store *vectorstore.PGVectorStore, embedder *embeddings.GoogleEmbedder, chunkSize, chunkOverlap int) *Pipeline {
	return &Pipeline{
		store:        store,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       slog.Default(),
	}
}

// Run ingests every supported document under path. A failing file is logged
// and skipped; the pipeline keeps going. Returns the number of chunks stored.
func (p *Pipeline) Run(ctx context.Context, path string) (int, error) {
	docs, err := LoadPath(path)
	if err != nil {
		return 0, err
	}
	p.logger.Info("loaded documents", "count", len(docs), "path", path)

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(p.chunkSize),
		textsplitter.WithChunkOverlap(p.chunkOverlap),
	)

	total := 0
	for _, doc := range docs {
		stored, err := p.ingestDocument(ctx, splitter, doc)
		if err != nil {
			p.logger.Error("failed to ingest document", "source", doc.Source, "error", err)
			continue
		}
		total += stored
	}

	p.logger.Info("ingestion complete", "chunks", total)
	return total, nil
}

func (p *Pipeline) ingestDocument(ctx context.Context, splitter textsplitter.TextSplitter, doc SourceDocument) (int, error) {
	chunks, err := splitter.SplitText(doc.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	// Re-ingesting a source replaces its previous chunks.
	if _, err := p.store.DeleteBySource(ctx, doc.Source); err != nil {
		return 0, err
	}

	records := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.Document{
			Content:   chunk,
			Metadata:  map[string]string{"source": doc.Source},
			Embedding: vectors[i],
		}
	}

	if err := p.store.AddDocuments(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("document indexed", "source", doc.Source, "chunks", len(chunks))
	return len(chunks), nil
}

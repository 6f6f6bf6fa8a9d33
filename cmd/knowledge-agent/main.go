package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opskb/knowledge-agent/pkg/agent"
	"github.com/opskb/knowledge-agent/pkg/clients"
	"github.com/opskb/knowledge-agent/pkg/config"
	"github.com/opskb/knowledge-agent/pkg/database"
	"github.com/opskb/knowledge-agent/pkg/drive"
	"github.com/opskb/knowledge-agent/pkg/embeddings"
	"github.com/opskb/knowledge-agent/pkg/ingest"
	"github.com/opskb/knowledge-agent/pkg/retrieval"
	"github.com/opskb/knowledge-agent/pkg/vectorstore"
	"github.com/opskb/knowledge-agent/pkg/websearch"
)

var question string

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "knowledge-agent",
		Short: "A terminal question-answering agent over the internal knowledge base",
		Long:  `knowledge-agent answers a question by retrieving from the internal vector index, grading relevance, and falling back to web search when the index has nothing useful.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("question") {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter question: ")
				input, _ := reader.ReadString('\n')
				question = strings.TrimSpace(input)
			}
			if question == "" {
				slog.Error("Question cannot be empty")
				os.Exit(1)
			}

			ctx := context.Background()
			db, store, embedder := mustOpenStore(ctx, cfg)
			defer db.Close()

			ag, err := buildAgent(ctx, cfg, store, embedder)
			if err != nil {
				slog.Error("Failed to initialize agent", "error", err)
				os.Exit(1)
			}

			state := ag.ProcessQuestion(ctx, question)

			fmt.Println()
			fmt.Println(state.Generation)
			fmt.Println()
			fmt.Printf("source=%s status=%s\n", state.Source, state.Status)
			if state.ErrorMessage != "" {
				fmt.Printf("error=%s\n", state.ErrorMessage)
			}
		},
	}
	rootCmd.Flags().StringVarP(&question, "question", "q", "", "The question to answer")

	ingestCmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Index documents from a file or directory into the knowledge base",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			db, store, embedder := mustOpenStore(ctx, cfg)
			defer db.Close()

			pipeline := ingest.NewPipeline(store, embedder, cfg.ChunkSize, cfg.ChunkOverlap)
			chunks, err := pipeline.Run(ctx, args[0])
			if err != nil {
				slog.Error("Ingestion failed", "error", err)
				os.Exit(1)
			}
			fmt.Printf("Indexed %d chunks from %s\n", chunks, args[0])
		},
	}
	rootCmd.AddCommand(ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// mustOpenStore connects to the database, ensures the schema, and builds the
// vector store and embedder. Exits on any failure.
func mustOpenStore(ctx context.Context, cfg *config.Config) (*database.PostgresDB, *vectorstore.PGVectorStore, *embeddings.GoogleEmbedder) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.InitSchema(ctx, cfg.CollectionName, embeddings.Dimension); err != nil {
		slog.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		slog.Error("Failed to create vector store", "error", err)
		os.Exit(1)
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		slog.Error("Failed to create embedder", "error", err)
		os.Exit(1)
	}

	return db, store, embedder
}

func buildAgent(ctx context.Context, cfg *config.Config, store *vectorstore.PGVectorStore, embedder *embeddings.GoogleEmbedder) (*agent.Agent, error) {
	llm, err := clients.NewChatModel(ctx, clients.Options{
		Provider:      cfg.LLMProvider,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		GoogleApiKey:  cfg.GoogleApiKey,
		GoogleModel:   cfg.GoogleModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init chat model: %w", err)
	}

	var searcher agent.WebSearcher
	if cfg.TavilyApiKey != "" {
		searcher = websearch.NewTavilyClient(cfg.TavilyApiKey)
	}

	var uploader agent.Uploader
	if cfg.DriveCredentials != "" && cfg.DriveFolderID != "" {
		uploader, err = drive.NewUploader(ctx, []byte(cfg.DriveCredentials), cfg.DriveFolderID)
		if err != nil {
			return nil, fmt.Errorf("failed to init drive uploader: %w", err)
		}
	}

	return agent.New(retrieval.New(store, embedder), llm, searcher, uploader, agent.Options{
		TopK:             cfg.TopK,
		WebSearchResults: cfg.WebSearchResults,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       time.Duration(cfg.RetryDelay * float64(time.Second)),
		Language:         cfg.Language,
	}), nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/opskb/knowledge-agent/pkg/agent"
	"github.com/opskb/knowledge-agent/pkg/clients"
	"github.com/opskb/knowledge-agent/pkg/config"
	"github.com/opskb/knowledge-agent/pkg/database"
	"github.com/opskb/knowledge-agent/pkg/drive"
	"github.com/opskb/knowledge-agent/pkg/embeddings"
	"github.com/opskb/knowledge-agent/pkg/retrieval"
	"github.com/opskb/knowledge-agent/pkg/server"
	"github.com/opskb/knowledge-agent/pkg/vectorstore"
	"github.com/opskb/knowledge-agent/pkg/websearch"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	// Database connection and schema
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx, cfg.CollectionName, embeddings.Dimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Retrieval stack
	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	retriever := retrieval.New(store, embedder)

	// Chat model
	llm, err := clients.NewChatModel(ctx, clients.Options{
		Provider:      cfg.LLMProvider,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		GoogleApiKey:  cfg.GoogleApiKey,
		GoogleModel:   cfg.GoogleModel,
	})
	if err != nil {
		log.Fatalf("Failed to init chat model: %v", err)
	}

	// Optional capabilities: a missing key leaves the collaborator nil and
	// the workflow degrades accordingly.
	var searcher agent.WebSearcher
	if cfg.TavilyApiKey != "" {
		searcher = websearch.NewTavilyClient(cfg.TavilyApiKey)
	} else {
		logger.Warn("TAVILY_API_KEY not set, web search disabled")
	}

	var uploader agent.Uploader
	if cfg.DriveCredentials != "" && cfg.DriveFolderID != "" {
		uploader, err = drive.NewUploader(ctx, []byte(cfg.DriveCredentials), cfg.DriveFolderID)
		if err != nil {
			log.Fatalf("Failed to init drive uploader: %v", err)
		}
	} else {
		logger.Warn("Google Drive not configured, knowledge saving disabled")
	}

	ag := agent.New(retriever, llm, searcher, uploader, agent.Options{
		TopK:             cfg.TopK,
		WebSearchResults: cfg.WebSearchResults,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       time.Duration(cfg.RetryDelay * float64(time.Second)),
		Language:         cfg.Language,
	})
	ag.SetLogger(logger)

	var notifier server.Notifier
	if cfg.SlackBotToken != "" {
		notifier = server.NewSlackNotifier(cfg.SlackBotToken)
	} else {
		logger.Warn("SLACK_BOT_TOKEN not set, answers to mentions will be dropped")
	}

	svc := server.NewService(ag, notifier, logger)
	handler := server.NewHandler(svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

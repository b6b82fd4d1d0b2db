package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/m-tancredi/plai-rag/internal/chunker"
	"github.com/m-tancredi/plai-rag/internal/config"
	"github.com/m-tancredi/plai-rag/internal/database"
	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/extractor"
	"github.com/m-tancredi/plai-rag/internal/handler"
	"github.com/m-tancredi/plai-rag/internal/llm"
	"github.com/m-tancredi/plai-rag/internal/pipeline"
	"github.com/m-tancredi/plai-rag/internal/repository"
	"github.com/m-tancredi/plai-rag/internal/storage"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.LogLevel)

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// File storage
	files, err := storage.NewLocalStore(cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	// Embedding manager
	embeddings := embedding.NewManager(&embedding.ProviderConfig{
		Kind:       embedding.ProviderKind(cfg.EmbeddingProvider),
		APIKey:     cfg.EmbeddingAPIKey,
		BaseURL:    cfg.EmbeddingBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	}, files, cfg.IndexCacheSize)

	// Chat model
	chatModel, err := llm.NewChatModel(context.Background(), &llm.ProviderConfig{
		Kind:    llm.ProviderKind(cfg.LLMProvider),
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create chat model: %v", err)
	}
	generator := llm.NewChatGenerator(chatModel, cfg.LLMModel)

	// Processing queue and worker pool
	queue, err := pipeline.NewQueue(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer queue.Close()

	processor := pipeline.NewProcessor(
		repository.NewDocumentRepository(db),
		repository.NewChunkRepository(db),
		repository.NewProcessingLogRepository(db),
		embeddings,
		extractor.DefaultRegistry(cfg.OCRLanguageList()),
		files,
		chunker.Config{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	)

	pool := pipeline.NewWorkerPool(queue, processor, cfg.WorkerCount)
	pool.Start()
	defer pool.Stop()

	// Setup router
	router := handler.SetupRouter(cfg, db, files, embeddings, generator, queue)

	// Create server
	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	// Start server
	go func() {
		log.Printf("RAG service starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

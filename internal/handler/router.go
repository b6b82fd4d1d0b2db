package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/m-tancredi/plai-rag/internal/config"
	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/llm"
	"github.com/m-tancredi/plai-rag/internal/repository"
	"github.com/m-tancredi/plai-rag/internal/retrieval"
	"github.com/m-tancredi/plai-rag/internal/service"
	"github.com/m-tancredi/plai-rag/internal/storage"
)

func SetupRouter(
	cfg *config.Config,
	db *gorm.DB,
	files storage.Store,
	embeddings *embedding.Manager,
	generator llm.Generator,
	queue service.Enqueuer,
) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Health check endpoints
	r.GET("/health", healthCheck)
	r.GET("/ready", readinessCheck)
	r.GET("/live", livenessCheck)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":      "PL-AI RAG Service",
			"version":      "1.0.0",
			"status":       "running",
			"health_check": "/health",
		})
	})

	// Initialize repositories
	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	logRepo := repository.NewProcessingLogRepository(db)
	kbRepo := repository.NewKnowledgeBaseRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Initialize retrieval orchestrator
	orchestrator := retrieval.NewOrchestrator(docRepo, chunkRepo, embeddings, generator, retrieval.Config{
		MaxContextChars: cfg.MaxContextChars,
		DefaultTopK:     cfg.DefaultTopK,
	})

	// Initialize services
	docSvc := service.NewDocumentService(docRepo, chunkRepo, logRepo, kbRepo, files, embeddings, queue)
	kbSvc := service.NewKnowledgeBaseService(kbRepo, docRepo, embeddings)
	chatSvc := service.NewChatService(orchestrator, chatRepo)

	// Initialize handlers
	docHandler := NewDocumentHandler(docSvc, cfg.MaxUploadSize)
	searchHandler := NewSearchHandler(orchestrator)
	chatHandler := NewChatHandler(chatSvc)
	kbHandler := NewKnowledgeBaseHandler(kbSvc)

	// API v1
	v1 := r.Group("/v1")
	{
		// Documents
		documents := v1.Group("/documents")
		{
			documents.GET("", docHandler.List)
			documents.POST("", docHandler.Upload)
			documents.GET("/:id", docHandler.Get)
			documents.DELETE("/:id", docHandler.Delete)
			documents.POST("/:id/reprocess", docHandler.Reprocess)
			documents.GET("/:id/chunks", docHandler.ListChunks)
			documents.GET("/:id/logs", docHandler.ListLogs)
			documents.GET("/:id/download", docHandler.Download)
			documents.POST("/:id/search", searchHandler.Search)
		}

		// Knowledge bases
		knowledgeBases := v1.Group("/knowledge-bases")
		{
			knowledgeBases.GET("", kbHandler.List)
			knowledgeBases.POST("", kbHandler.Create)
			knowledgeBases.GET("/:id", kbHandler.Get)
			knowledgeBases.PUT("/:id", kbHandler.Update)
			knowledgeBases.DELETE("/:id", kbHandler.Delete)
			knowledgeBases.POST("/:id/documents/:doc_id", kbHandler.AddDocument)
			knowledgeBases.DELETE("/:id/documents/:doc_id", kbHandler.RemoveDocument)
		}

		// Chat
		chat := v1.Group("/chat")
		{
			chat.POST("", chatHandler.Chat)
			chat.GET("/sessions/:id", chatHandler.GetSession)
		}
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "rag",
	})
}

func readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

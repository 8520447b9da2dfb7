package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"resumerag/internal/ai"
	appsvc "resumerag/internal/app"
	"resumerag/internal/bootstrap"
	"resumerag/internal/cache"
	"resumerag/internal/chunker"
	"resumerag/internal/platform/rabbitmq"
	"resumerag/internal/repository"
	"resumerag/internal/transport/http/handler"
	"resumerag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewConversationMessageRepository(app.MySQL)

	llmClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewEmbeddingProvider(llmClient, ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	})
	generator := ai.NewGenerationProvider(llmClient, ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	})

	splitter := chunker.New(
		chunker.WithChunkSize(app.Config.RAG.ChunkSize),
		chunker.WithOverlap(app.Config.RAG.ChunkOverlap),
	)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	indexService := appsvc.NewIndexService(
		documentRepo,
		conversationRepo,
		messageRepo,
		app.Vectors,
		embedder,
		splitter,
		app.Config.RAG.MaxDocuments,
	)
	queryService := appsvc.NewQueryService(app.Vectors, embedder, generator, app.Config.RAG.TopK)

	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	conversationService := appsvc.NewConversationService(conversationRepo, messageRepo, publisher, historyCache)

	authHandler := handler.NewAuthHandler(authService)
	resumeHandler := handler.NewResumeHandler(indexService, queryService, conversationService)
	conversationHandler := handler.NewConversationHandler(conversationService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	resumeGroup := v1.Group("/resumes")
	resumeGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	resumeGroup.POST("/documents", resumeHandler.IndexDocument)
	resumeGroup.POST("/documents/upload", resumeHandler.UploadPDF)
	resumeGroup.GET("/documents", resumeHandler.ListDocuments)
	resumeGroup.DELETE("/documents/:id", resumeHandler.DeleteDocument)
	resumeGroup.DELETE("/documents", resumeHandler.DeleteAllDocuments)
	resumeGroup.POST("/query", resumeHandler.Query)

	conversationGroup := v1.Group("/conversations")
	conversationGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	conversationGroup.POST("", conversationHandler.Create)
	conversationGroup.GET("", conversationHandler.List)
	conversationGroup.GET("/:id/history", conversationHandler.GetHistory)
	conversationGroup.DELETE("/:id", conversationHandler.Delete)

	return router
}

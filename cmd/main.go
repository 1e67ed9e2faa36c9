package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voxlead/server/adapters/llm"
	"github.com/voxlead/server/adapters/memory"
	mongoadapter "github.com/voxlead/server/adapters/mongo"
	"github.com/voxlead/server/adapters/stt"
	"github.com/voxlead/server/adapters/tts"
	"github.com/voxlead/server/domain/repositories"
	"github.com/voxlead/server/internal/api"
	"github.com/voxlead/server/internal/flow"
	"github.com/voxlead/server/internal/websocket"
	"github.com/voxlead/server/usecase"
)

func main() {
	// Load .env file if present; in production env vars come from the platform
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize persistence
	sessionRepo := memory.NewSessionRepository()

	var leadRepo repositories.LeadRepository
	var mongoClient *mongoadapter.Client
	if os.Getenv("LEAD_STORE") == "mongo" {
		client, err := mongoadapter.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = client
		leadRepo = mongoadapter.NewLeadRepository(client.Database)
	} else {
		leadRepo = memory.NewLeadRepository()
		logger.Info("Using in-memory lead store")
	}

	// Initialize speech adapters
	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		speechToText = stt.NewGoogleSpeechToText()
		logger.Info("Using Google Cloud speech recognition")
	} else {
		speechToText = stt.NewMockSpeechToText(logger)
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock speech recognition")
	}

	var textToSpeech repositories.TextToSpeech
	elevenLabsConfig := tts.NewElevenLabsConfigFromEnv()
	if err := tts.ValidateElevenLabsConfig(elevenLabsConfig); err == nil {
		service, err := tts.NewElevenLabsTTS(elevenLabsConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize ElevenLabs TTS", zap.Error(err))
		}
		textToSpeech = service
		logger.Info("Using ElevenLabs speech synthesis")
	} else {
		textToSpeech = tts.NewMockTextToSpeech(logger)
		logger.Warn("ELEVENLABS_API_KEY not set, using mock speech synthesis")
	}

	// Lead summaries are optional; without an API key leads are stored raw
	var summarizer repositories.LeadSummarizer
	if os.Getenv("GEMINI_API_KEY") != "" {
		s, err := llm.NewGeminiSummarizer(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini summarizer", zap.Error(err))
		}
		summarizer = s
		logger.Info("Using Gemini lead summaries")
	}

	// Initialize usecase services
	engine := flow.NewEngine(logger)
	chatService := usecase.NewChatService(engine, sessionRepo, leadRepo, summarizer, logger)

	// Initialize WebSocket hub for the voice bridge
	hub := websocket.NewHub(chatService, speechToText, textToSpeech, logger)
	go hub.Run()

	// Expire abandoned conversations in the background
	cleanupService := websocket.NewSessionCleanupService(sessionRepo, logger)
	cleanupService.Start()
	defer cleanupService.Stop()

	// Initialize API routes
	api.InitRoutes(e, hub, chatService, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if mongoClient != nil {
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

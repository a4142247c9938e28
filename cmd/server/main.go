package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/zenorc/zenorc/internal/config"
	"github.com/zenorc/zenorc/internal/handlers"
	"github.com/zenorc/zenorc/internal/llm"
	"github.com/zenorc/zenorc/internal/sessions"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterSessionRoutes(r, cfg)

	return r
}

func main() {
	config.LoadDotenv()

	cfg, err := config.ParseServer()
	if err != nil {
		log.Fatalf("server config failed: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Printf("WARNING: GEMINI_API_KEY not set. API calls will fail.")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	client, err := llm.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.OutputDir)
	if err != nil {
		// key missing: start anyway so /health and /api/history work;
		// the API endpoints report the failure per request
		log.Printf("WARNING: llm client unavailable: %v", err)
	}

	hcfg := handlers.HandlerConfig{
		LLM:      llmOrUnavailable(client, cfg.OutputDir),
		Sessions: sessions.NewStore(),
	}

	r := setupRouter(hcfg)

	log.Printf("running server on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

func llmOrUnavailable(c *llm.Client, outputDir string) handlers.LLM {
	if c != nil {
		return c
	}
	return unavailableLLM{outputDir: outputDir}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"llm-tournament-system/config"
	"llm-tournament-system/handlers"
	"llm-tournament-system/llm"
	"llm-tournament-system/services"
	"llm-tournament-system/store"
	"llm-tournament-system/utils"
	"llm-tournament-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	app := fiber.New()

	// CORS for the tournament frontend
	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatal("failed to initialize store:", err)
	}
	tournaments, prompts, results := st.Counts()
	log.Printf("🚀 Server started with %d tournaments, %d prompts, and %d results",
		tournaments, prompts, results)

	var llmClient llm.Client
	if client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL); err != nil {
		log.Println("⚠️  OpenAI API key not configured, generation and scoring endpoints are disabled")
	} else {
		llmClient = client
		log.Println("✅ OpenAI API key configured successfully")
	}

	tournamentService := services.NewTournamentService(st)
	evaluationService := services.NewEvaluationService(st, llmClient, cfg.EvaluationModel, cfg.GenerationTimeout, cfg.EvaluationDelay)
	generationService := services.NewGenerationService(st, llmClient, evaluationService, cfg.GenerationModel, cfg.GenerationTimeout)

	handlers.SetupTournamentRoutes(app, tournamentService, generationService, evaluationService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.BackupInterval > 0 {
		if cfg.R2Configured() {
			if err := utils.InitR2(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket); err != nil {
				log.Fatal("failed to initialize R2 client:", err)
			}
		}
		backupWorker := workers.NewBackupWorker(cfg.DataDir, cfg.BackupDir, cfg.BackupInterval)
		if err := backupWorker.Start(); err != nil {
			log.Fatal("failed to start backup worker:", err)
		}
		defer backupWorker.Stop()
		log.Printf("✅ Backup worker running (every %s)", cfg.BackupInterval)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	st.Flush()
}

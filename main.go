package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"card-tournament-system/engine"
	"card-tournament-system/handlers"
	"card-tournament-system/middleware"
	"card-tournament-system/models"
	"card-tournament-system/services"
	"card-tournament-system/utils"
	"card-tournament-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentEntry{},
		&models.PairingRecord{},
		&models.Replay{},
		&models.ReplayMove{},
		&models.HallOfFameEntry{},
		&models.LeaderboardRow{},
		&models.Payout{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("TOURNAMENT_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("TOURNAMENT_SERVICE_TOKEN environment variable not set")
	}

	registry := engine.NewRegistry()
	hub := engine.NewSpectatorHub(registry)

	defaults := services.EngineDefaults{
		MinParticipants: envInt("MIN_PARTICIPANTS", 2),
		BestOf:          envInt("BEST_OF", 3),
		PrizeSplit:      parsePrizeSplit(os.Getenv("PRIZE_SPLIT")),
		NewAuthority:    engine.NewCardAuthority,
	}

	tournamentService := services.NewTournamentService(db, registry, defaults)
	matchService := services.NewMatchService(db, registry)
	replayService := services.NewReplayService(db)
	hallOfFameService := services.NewHallOfFameService(db)
	spectatorService := services.NewSpectatorService(hub)
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	walletClient := workers.NewWalletClient(db)
	go workers.PollPayouts(ctx, walletClient, 10*time.Second)

	archiveWorker := workers.NewArchiveWorker(db, registry, 1*time.Minute)
	go archiveWorker.Run(ctx)

	tournamentService.StartScheduler()

	// ✅ Setup routes — now with enforced Gateway auth
	handlers.SetupTournamentRoutes(app, tournamentService, matchService, replayService, hallOfFameService, spectatorService, authClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Payout polling running (every 10s)")
	log.Println("✅ Archive worker running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

// parsePrizeSplit reads comma-separated fractional shares in placement
// order, e.g. "0.6,0.3,0.05,0.05". The engine only pays out listed
// places; any remainder stays unpaid.
func parsePrizeSplit(raw string) []float64 {
	if raw == "" {
		return []float64{0.6, 0.3, 0.05, 0.05}
	}
	parts := strings.Split(raw, ",")
	split := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 {
			log.Printf("⚠️  Invalid PRIZE_SPLIT entry %q, using default split", p)
			return []float64{0.6, 0.3, 0.05, 0.05}
		}
		split = append(split, f)
	}
	return split
}

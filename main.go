package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"spin-rewards-service/bot"
	"spin-rewards-service/handlers"
	"spin-rewards-service/models"
	"spin-rewards-service/services"
	pgstore "spin-rewards-service/storage/postgres"
	"spin-rewards-service/utils"
	"spin-rewards-service/workers"

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Admin-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Referral{},
		&models.WithdrawalRequest{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := pgstore.New(db)

	adminChatIDEnv := os.Getenv("ADMIN_CHAT_ID")
	if adminChatIDEnv == "" {
		log.Fatal("ADMIN_CHAT_ID environment variable not set")
	}
	adminChatID, err := strconv.ParseInt(adminChatIDEnv, 10, 64)
	if err != nil {
		log.Fatal("ADMIN_CHAT_ID must be a numeric Telegram chat id:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The bot is also the notifier, so it is built before the withdrawal
	// service and attached after.
	var notifier services.Notifier = services.NopNotifier{}
	var tgBot *bot.Bot
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tgBot, err = bot.New(token, adminChatID)
		if err != nil {
			log.Fatal("failed to start Telegram bot:", err)
		}
		notifier = tgBot
	} else {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set, running without the Telegram front end")
	}

	accountService := services.NewAccountService(store)
	spinService := services.NewSpinService(store)
	referralService := services.NewReferralService(store)
	withdrawalService := services.NewWithdrawalService(store, adminChatIDEnv, notifier)

	if tgBot != nil {
		tgBot.Attach(accountService, spinService, referralService, withdrawalService)
		go tgBot.Run(ctx)
	}

	digest, err := workers.StartWithdrawalDigest(ctx, store, notifier)
	if err != nil {
		log.Fatal("failed to start withdrawal digest worker:", err)
	}
	defer func() { _ = digest.Shutdown() }()

	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		reports, err := workers.StartPayoutReportWorker(ctx, store)
		if err != nil {
			log.Fatal("failed to start payout report worker:", err)
		}
		defer func() { _ = reports.Shutdown() }()
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set, payout report export disabled")
	}

	handlers.SetupAccountRoutes(app, accountService, spinService, referralService)
	handlers.SetupWithdrawalRoutes(app, withdrawalService)

	app.Static("/", "./static")

	port := os.Getenv("PORT")
	if port == "" {
		port = "7070"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

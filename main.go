package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"turtleboard/handlers"
	"turtleboard/middleware"
	"turtleboard/models"
	"turtleboard/probe"
	"turtleboard/secrets"
	"turtleboard/services"
	"turtleboard/vendorapi"
	"turtleboard/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "turtleboard",
	})

	// All requests must come through the gateway.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	originsList := strings.Split(allowedOrigins, ",")
	for i, origin := range originsList {
		originsList[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(originsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Proxy{},
		&models.EmailAccount{},
		&models.ExchangeAccount{},
		&models.Wallet{},
		&models.ReferralEdge{},
		&models.AccountRelationship{},
		&models.Activity{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cipher, err := secrets.NewCipherFromEnv()
	if err != nil {
		log.Fatal("failed to initialize secret cipher:", err)
	}

	var cache *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	} else {
		log.Println("REDIS_ADDR not set — vendor inventory caching disabled")
	}

	var vendorClient *vendorapi.Client
	if base := os.Getenv("PROXY_VENDOR_URL"); base != "" {
		apiKey := os.Getenv("PROXY_VENDOR_API_KEY")
		if apiKey == "" {
			log.Fatal("PROXY_VENDOR_API_KEY environment variable not set")
		}
		vendorClient = vendorapi.NewClient(base, apiKey, cache)
	} else {
		log.Println("PROXY_VENDOR_URL not set — vendor import/sync endpoints disabled")
	}

	activityService := services.NewActivityService(db)
	checker := probe.NewTCPChecker(probe.DefaultTimeout)
	proxyService := services.NewProxyService(db, checker, cipher, activityService)
	referralService := services.NewReferralService(db, activityService)
	emailService := services.NewEmailAccountService(db, cipher, proxyService, activityService)
	exchangeService := services.NewExchangeAccountService(db, cipher, activityService)
	walletService := services.NewWalletService(db, cipher, activityService)
	relationshipService := services.NewRelationshipService(db, activityService)
	userService := services.NewUserService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers.StartProxyMaintenance(ctx, proxyService, vendorClient, 30*time.Minute)

	if identityURL := os.Getenv("IDENTITY_SERVICE_URL"); identityURL != "" {
		workers.NewOperatorSyncWorker(db, identityURL, os.Getenv("TURTLEBOARD_SERVICE_TOKEN")).Start(ctx)
	} else {
		log.Println("IDENTITY_SERVICE_URL not set — operator sync disabled")
	}

	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupProxyRoutes(app, proxyService, vendorClient)
	handlers.SetupAccountRoutes(app, emailService, exchangeService, walletService, relationshipService)
	handlers.SetupDashboardRoutes(app, db, activityService, userService)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":5300"
	}

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("turtleboard running on %s", addr)
	log.Println("proxy maintenance scheduler running")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

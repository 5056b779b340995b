package main

import (
	"context"                           // context package is needed for Redis operations
	"log"                               // log package is needed for logging
	"wallet_engine/internal/api"        // Custom package for API handlers
	"wallet_engine/internal/config"     // Custom package for configuration
	"wallet_engine/internal/events"     // Wallet event publishing
	"wallet_engine/internal/ledger"     // Append-only transaction ledger
	"wallet_engine/internal/middleware" // Custom package for middleware
	"wallet_engine/internal/recharge"   // Auto-recharge policy and executor
	"wallet_engine/internal/reward"     // Giveaway reward claims
	"wallet_engine/internal/utils"      // Cache invalidation helpers
	"wallet_engine/internal/wallet"     // Wallet operations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Setup event publishing; without brokers events are dropped
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer)
	}

	// Wire the wallet engine together
	ledgerStore := ledger.New()                                    // Append-only transaction ledger
	walletService := wallet.NewService(db, ledgerStore, publisher) // Balance mutations
	locker := recharge.NewRedisLocker(redisClient)                 // Per-wallet single-flight guard
	policy := recharge.NewPolicy(db, walletService, locker, cfg.MinThreshold, cfg.MinRecharge)
	gateway := recharge.NewHTTPGateway(cfg.GatewayURL) // External payment collaborator
	executor := recharge.NewExecutor(db, walletService, policy, gateway, locker, publisher, cfg.RechargeLockTTL, cfg.GatewayTimeout)
	walletService.SetRechargeTrigger(executor) // Post-debit evaluation
	walletService.SetCacheInvalidator(func(ctx context.Context, walletID uint) {
		utils.InvalidateWallet(ctx, redisClient, walletID) // Drop cached reads on every mutation
	})
	rewardService := reward.NewService(db, walletService)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.POST("", api.CreateWalletHandler(walletService))                                              // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(walletService, redisClient))                                     // Snapshot endpoint
	walletGroup.POST("/credit", api.CreditHandler(walletService))                                             // Credit endpoint (invoice paid)
	walletGroup.POST("/debit", api.DebitHandler(walletService))                                               // Debit endpoint (paid service consumed)
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(walletService, ledgerStore, redisClient)) // Ledger history endpoint

	// Auto-recharge routes (protected by JWT)
	rechargeGroup := r.Group("/wallet/auto-recharge")
	rechargeGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	rechargeGroup.PUT("", api.ConfigureAutoRechargeHandler(walletService, policy))    // Configure endpoint
	rechargeGroup.GET("", api.GetAutoRechargeHandler(walletService, policy))          // Settings endpoint
	rechargeGroup.DELETE("", api.DisableAutoRechargeHandler(walletService, policy))   // Disable endpoint

	// Giveaway reward routes (protected by JWT)
	rewardGroup := r.Group("/wallet/rewards")
	rewardGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	rewardGroup.GET("", api.ListGiveawayWinsHandler(walletService, rewardService))            // List wins endpoint
	rewardGroup.POST("/:id/claim", api.ClaimRewardHandler(walletService, rewardService)) // Claim endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/wallets", api.ListWalletsHandler(db, redisClient))                        // List wallets endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))              // List transactions endpoint
	adminGroup.GET("/wallets/:id/consistency", api.CheckConsistencyHandler(walletService, ledgerStore)) // Ledger invariant check
	adminGroup.POST("/giveaway-wins", api.CreateGiveawayWinHandler(rewardService))             // Giveaway resolver hook

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}

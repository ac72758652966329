package main

import (
	"context"
	"log"
	"os"
	"time"

	"interviewgo/internal/account"
	"interviewgo/internal/api"
	"interviewgo/internal/auth"
	"interviewgo/internal/config"
	"interviewgo/internal/interview"
	"interviewgo/internal/notifier"
	"interviewgo/internal/oracle"
	"interviewgo/internal/redis"
	"interviewgo/internal/runtime"
	"interviewgo/internal/storage"
	"interviewgo/internal/transcript"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("INTERVIEWGO_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("INTERVIEWGO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, user_tokens, interviews
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Redis is optional; without it interviews do not survive a restart.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	}

	ctx := context.Background()
	store, err := transcript.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("init transcript store: %v", err)
	}

	oracleService, err := oracle.NewService(ctx, cfg)
	if err != nil {
		log.Fatalf("init completion oracle: %v", err)
	}

	engine := interview.NewEngine(oracleService, store, notifier.FromConfig(cfg.Email), interview.Options{
		TestUsername: cfg.Interview.TestUsername,
		SystemPrompt: cfg.Interview.SystemPrompt,
	})

	accountService := account.NewService(db)
	manager := runtime.NewManager(engine, accountService, rdb, 0)
	authService := auth.NewService(db, 24*time.Hour)

	oracleTimeout := time.Duration(cfg.Interview.OracleTimeoutSeconds) * time.Second
	handlers := api.NewHandler(accountService, authService, manager, oracleTimeout)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/smartlearning/auth-service/internal/config"
	"github.com/smartlearning/auth-service/internal/database"
	"github.com/smartlearning/auth-service/internal/handler"
	"github.com/smartlearning/auth-service/internal/middleware"
	"github.com/smartlearning/auth-service/internal/notifier"
	"github.com/smartlearning/auth-service/internal/queue"
	"github.com/smartlearning/auth-service/internal/repository"
	"github.com/smartlearning/auth-service/internal/router"
	"github.com/smartlearning/auth-service/internal/service"
	"github.com/smartlearning/auth-service/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	otps := repository.NewOTPRepo(db)
	devices := repository.NewDeviceRepo(db)

	mail := notifier.NewAMQPNotifier()
	auth := service.NewAuthService(cfg, users, otps, devices, mail)
	h := handler.NewAuthHandler(cfg, auth)

	// Background workers: email delivery off the broker, expired-device
	// sweeps on a timer. Both are independent of request handling.
	go queue.StartEmailConsumer(cfg)
	go worker.RunDeviceSweeper(context.Background(), devices, cfg.SweepInterval)

	e := echo.New()
	rdb := config.NewRedisClient() // nil disables rate limiting
	rl := middleware.NewTokenBucket(config.LoadAuthRateLimit(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, h, cfg.JWTSecret, rl)
	router.RegisterPortals(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

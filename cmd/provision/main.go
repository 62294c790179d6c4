// Command provision creates the administrator account if it is missing.
// It reads the same environment as the server and is safe to run
// repeatedly.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/config"
	"github.com/iliyamo/store-rating/internal/database"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/service"
)

func main() {
	cfg := config.Load()
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewExample()
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	seed := service.DefaultAdminSeed(cfg.AdminPassword)
	seed.Email = cfg.AdminEmail
	created, err := service.EnsureAdmin(ctx, repository.NewUserRepo(db), cfg.BcryptCost, seed, log)
	if err != nil {
		log.Fatal("admin provisioning failed", zap.Error(err))
	}
	if created {
		log.Info("admin account ready", zap.String("email", seed.Email))
	}
}

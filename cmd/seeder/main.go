// cmd/seeder/main.go
package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/aspform-backend/internal/config"
	"github.com/unclebandit/aspform-backend/internal/db"
	"github.com/unclebandit/aspform-backend/internal/logging"
	"github.com/unclebandit/aspform-backend/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.App.Debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	conn, err := db.Open(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	seedFiles := []string{
		"seed/schema.sql",
	}
	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("failed to read seed file", zap.String("file", file), zap.Error(err))
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.Fatal("failed to execute seed file", zap.String("file", file), zap.Error(err))
		}
		log.Info("applied", zap.String("file", file))
	}

	plans := &repository.PlanRepository{DB: conn}
	groups := &repository.GroupRepository{DB: conn}
	if err := repository.SeedMock(ctx, plans, groups, time.Now()); err != nil {
		log.Fatal("failed to seed mock data", zap.Error(err))
	}

	log.Info("database seeding completed")
}

// cmd/worker/main.go
package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/aspform-backend/internal/config"
	"github.com/unclebandit/aspform-backend/internal/db"
	"github.com/unclebandit/aspform-backend/internal/logging"
	"github.com/unclebandit/aspform-backend/internal/queue"
	"github.com/unclebandit/aspform-backend/internal/repository"
	"github.com/unclebandit/aspform-backend/internal/service"
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

	auditor := newAuditor(
		&repository.SubmissionRepository{DB: conn},
		&repository.GroupRepository{DB: conn},
		log,
	)

	q, err := queue.DialAMQP(cfg.Queue.AMQPURL, cfg.Queue.Name, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer q.Close()

	if err := queue.StartSubmissionAuditSubscriber(q, auditor, log); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for submission events", zap.String("queue", cfg.Queue.Name))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("worker shutting down")
}

func newAuditor(subs repository.SubmissionRepositoryInterface, groups repository.GroupRepositoryInterface, log *zap.Logger) *service.SubmissionService {
	return &service.SubmissionService{Repo: subs, GroupRepo: groups, Log: log}
}

// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/aspform-backend/internal/auth"
	"github.com/unclebandit/aspform-backend/internal/config"
	"github.com/unclebandit/aspform-backend/internal/controller"
	"github.com/unclebandit/aspform-backend/internal/db"
	"github.com/unclebandit/aspform-backend/internal/flow"
	"github.com/unclebandit/aspform-backend/internal/handler"
	"github.com/unclebandit/aspform-backend/internal/httpx"
	"github.com/unclebandit/aspform-backend/internal/logging"
	"github.com/unclebandit/aspform-backend/internal/metrics"
	"github.com/unclebandit/aspform-backend/internal/queue"
	"github.com/unclebandit/aspform-backend/internal/repository"
	"github.com/unclebandit/aspform-backend/internal/service"
)

type repos struct {
	plans       repository.PlanRepositoryInterface
	groups      repository.GroupRepositoryInterface
	submissions repository.SubmissionRepositoryInterface
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init store
	var (
		rp   repos
		conn *sql.DB
	)
	switch cfg.Database.Store {
	case config.StorePostgres:
		conn, err = db.Open(cfg.Database.DSN(), log)
		if err != nil {
			log.Fatal("database unavailable", zap.Error(err))
		}
		defer conn.Close()
		go metrics.WatchDBStats(ctx, conn, 15*time.Second)
		rp = repos{
			plans:       &repository.PlanRepository{DB: conn},
			groups:      &repository.GroupRepository{DB: conn},
			submissions: &repository.SubmissionRepository{DB: conn},
		}
	default:
		store := repository.NewMemoryStore()
		rp = repos{plans: store.Plans(), groups: store.Groups(), submissions: store.Submissions()}
		log.Info("using in-memory store")
	}
	if cfg.Database.SeedMock {
		if err := repository.SeedMock(ctx, rp.plans, rp.groups, time.Now()); err != nil {
			log.Fatal("failed to seed mock data", zap.Error(err))
		}
		log.Info("mock plans and groups seeded")
	}

	submissionService := &service.SubmissionService{Repo: rp.submissions, GroupRepo: rp.groups, Log: log}

	// Init queue
	var q queue.Queue
	switch cfg.Queue.Driver {
	case config.QueueAMQP:
		aq, err := queue.DialAMQP(cfg.Queue.AMQPURL, cfg.Queue.Name, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer aq.Close()
		// cmd/worker consumes
		q = aq
	default:
		mq := queue.NewInMemoryQueue(log)
		if err := queue.StartSubmissionAuditSubscriber(mq, submissionService, log); err != nil {
			log.Fatal("failed to subscribe auditor", zap.Error(err))
		}
		q = mq
	}

	if cfg.Admin.SessionSecret == config.DefaultSessionSecret {
		log.Warn("SESSION_SECRET is the development default; set it in production")
	}
	authManager := auth.NewManager(cfg.Admin.SessionSecret, cfg.Admin.SessionSecure, auth.Credentials{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
	}, log)
	hashKey, blockKey := auth.DeriveKeys(cfg.Admin.SessionSecret)

	consentController := &controller.ConsentController{
		ConsentService: &service.ConsentService{
			PlanRepo:       rp.plans,
			GroupRepo:      rp.groups,
			SubmissionRepo: rp.submissions,
			Queue:          q,
			Log:            log,
			TokenExpiry:    cfg.Flow.TokenExpiry,
			Location:       cfg.Flow.DisplayLocation,
		},
		Drafts: flow.NewCookieStore(hashKey, blockKey, cfg.Admin.SessionSecure),
		Log:    log,
	}

	adminHandler := &handler.AdminHandler{
		Auth:        authManager,
		Plans:       service.NewPlanService(rp.plans),
		Groups:      service.NewGroupService(rp.groups),
		Submissions: submissionService,
		Dashboard: &service.DashboardService{
			PlanRepo:       rp.plans,
			GroupRepo:      rp.groups,
			SubmissionRepo: rp.submissions,
		},
		Log: log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.PrometheusMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if conn != nil {
			if err := conn.PingContext(r.Context()); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	consentController.Routes(r)
	adminHandler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

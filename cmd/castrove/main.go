package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/castrove/castrove/internal/api"
	"github.com/castrove/castrove/internal/clients"
	"github.com/castrove/castrove/internal/command"
	"github.com/castrove/castrove/internal/config"
	"github.com/castrove/castrove/internal/credentials"
	"github.com/castrove/castrove/internal/db"
	"github.com/castrove/castrove/internal/executor"
	"github.com/castrove/castrove/internal/ideas"
	"github.com/castrove/castrove/internal/repository"
	"github.com/castrove/castrove/internal/scheduler"
	"github.com/castrove/castrove/internal/store"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("castrove v0.1.0")
	fmt.Println("Usage: castrove serve")
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credentials.NewEnvStore(cfg.EnvFile)
	if err != nil {
		slog.Error("credentials error", "err", err)
		os.Exit(1)
	}

	workflowMem := repository.NewMemoryWorkflowRepository()
	runMem := repository.NewMemoryRunRepository()
	auditMem := repository.NewMemoryAuditRepository()

	var (
		workflows repository.WorkflowRepository = workflowMem
		runs      repository.RunRepository      = runMem
		audit     repository.AuditRepository    = auditMem
	)

	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database error", "err", err)
			os.Exit(1)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			slog.Error("migration error", "err", err)
			os.Exit(1)
		}

		persistent := repository.NewPersistentWorkflowRepository(workflowMem, database)
		if err := persistent.WarmCache(ctx); err != nil {
			slog.Error("cache warmup error", "err", err)
			os.Exit(1)
		}
		workflows = persistent
		runs = repository.NewPersistentRunRepository(runMem, database)
		audit = repository.NewPersistentAuditRepository(auditMem, database)
		slog.Info("database connected", "persistence", "postgres")
	} else {
		slog.Info("no database configured, running in memory only")
	}

	st := store.New(workflows, runs, audit)

	bank := ideas.NewBank()
	if cfg.Ideas.FeedURL != "" {
		fetched, err := ideas.BankFromFeed(ctx, cfg.Ideas.FeedURL, 0)
		if err != nil {
			slog.Warn("idea feed unavailable, using builtin ideas", "url", cfg.Ideas.FeedURL, "err", err)
		} else {
			bank = fetched
		}
	}

	var videoOpts []clients.VideoOption
	if cfg.Video.Model != "" {
		videoOpts = append(videoOpts, clients.WithVideoModel(cfg.Video.Model))
	}
	gen := clients.NewVideoClient(cfg.Video.URL, cfg.Video.Credential, creds, videoOpts...)
	pub := clients.NewSocialClient(cfg.Social.URL, cfg.Social.Credential, creds, cfg.Social.Accounts)

	exec := executor.New(bank, gen, pub, executor.Config{
		SelectTimeout:      time.Duration(cfg.Executor.SelectTimeoutSeconds) * time.Second,
		GenerateTimeout:    time.Duration(cfg.Executor.GenerateTimeoutSeconds) * time.Second,
		PublishTimeout:     time.Duration(cfg.Executor.PublishTimeoutSeconds) * time.Second,
		MaxParallelPublish: cfg.Executor.MaxParallelPublish,
	})

	sched := scheduler.New(st, exec, time.Duration(cfg.Scheduler.TickSeconds)*time.Second)
	sched.Start(ctx)
	defer sched.Stop()

	interp := command.New(st)
	srv := api.NewServer(st, interp)
	srv.SetScheduler(sched)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("starting castrove server", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("castrove server stopped")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookstore/services/comics/internal/config"
	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/events"
	"github.com/bookstore/services/comics/internal/jobs"
	"github.com/bookstore/services/comics/internal/metrics"
	"github.com/bookstore/services/comics/internal/status"
	"github.com/bookstore/services/comics/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		modeFlag   = flag.String("mode", "", fmt.Sprintf("run mode: %v", jobs.Modes))
		configPath = flag.String("config", "", "optional YAML config file")
		dsn        = flag.String("dsn", "", "PostgreSQL DSN, overrides PG_DSN")
		dataPath   = flag.String("data", "", "directory holding the input files, overrides DATA_PATH")
	)
	flag.Parse()

	mode, err := jobs.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.PGDSN = *dsn
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}

	// Initialize logger
	log := logger.New(logger.Options{Service: cfg.ServiceName, Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Comics loader starting", zap.String("mode", string(mode)))

	// Connect to database
	log.Info("Connecting to database...")
	database, err := db.Connect(cfg.PGDSN, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to RabbitMQ
	var publisher events.Notifier
	if cfg.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL not set, run events disabled")
		publisher = events.NewNopPublisher(log)
	} else {
		log.Info("Connecting to RabbitMQ")
		p, err := events.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		publisher = p
	}
	defer publisher.Close()

	recorder := metrics.NewRecorder()
	checker := status.NewChecker(database, publisher, log)
	statusServer := status.NewServer(cfg.HTTPHealthPort, cfg.GRPCPort, checker, recorder.Handler(), log)
	runner := jobs.NewRunner(database, cfg, recorder, publisher, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	jobCtx, jobDone := context.WithCancel(ctx)

	g.Go(func() error {
		return statusServer.Run(jobCtx)
	})
	g.Go(func() error {
		defer jobDone()
		return runner.Run(jobCtx, mode)
	})

	if err := g.Wait(); err != nil {
		log.Error("Comics loader failed", zap.String("mode", string(mode)), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}

	log.Info("Comics loader finished", zap.String("mode", string(mode)))
}

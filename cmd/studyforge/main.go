package main

//	@title			StudyForge API
//	@version		0.1.0
//	@description	Quiz, roadmap, chat and course recommendation API for self-directed learners.
//	@BasePath		/api/v1

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/studyforge/internal/chat"
	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/courses"
	"github.com/HerbHall/studyforge/internal/event"
	"github.com/HerbHall/studyforge/internal/history"
	"github.com/HerbHall/studyforge/internal/llm"
	"github.com/HerbHall/studyforge/internal/quiz"
	"github.com/HerbHall/studyforge/internal/registry"
	"github.com/HerbHall/studyforge/internal/roadmap"
	"github.com/HerbHall/studyforge/internal/server"
	"github.com/HerbHall/studyforge/internal/store"
	"github.com/HerbHall/studyforge/internal/tracing"
	"github.com/HerbHall/studyforge/internal/version"
	"github.com/HerbHall/studyforge/internal/webhook"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before configuration")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("StudyForge server starting", zap.String("version", version.Short()))
	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var traceCfg tracing.Config
	if err := viperCfg.UnmarshalKey("tracing", &traceCfg); err != nil {
		logger.Fatal("invalid tracing configuration", zap.Error(err))
	}
	shutdownTracing, err := tracing.Setup(ctx, traceCfg, version.Short(), logger.Named("tracing"))
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	dbPath := viperCfg.GetString("database.path")
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dbPath))

	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	// Compile-time composition; the registry orders Init by dependency.
	modules := []plugin.Plugin{
		llm.New(),
		quiz.New(),
		roadmap.New(),
		chat.New(),
		courses.New(),
		history.New(),
		webhook.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}
	if err := reg.Validate(); err != nil {
		logger.Fatal("plugin validation failed", zap.Error(err))
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", viperCfg.GetString("server.host"), viperCfg.GetInt("server.port"))
	srv := server.New(server.Options{
		Addr:           addr,
		DevMode:        viperCfg.GetBool("server.dev_mode"),
		RateLimitRPS:   viperCfg.GetFloat64("server.rate_limit.rps"),
		RateLimitBurst: viperCfg.GetInt("server.rate_limit.burst"),
		AllowedOrigins: viperCfg.GetStringSlice("server.cors.allowed_origins"),
		Ready:          db.Ping,
	}, reg, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("StudyForge server ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	// Let history record events published by the last requests.
	bus.Wait()
	reg.StopAll(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}
	logger.Info("StudyForge server stopped")
}

package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lysyi3m/forum-monitor/app/api"
	"github.com/lysyi3m/forum-monitor/app/cfg"
	"github.com/lysyi3m/forum-monitor/app/database"
	"github.com/lysyi3m/forum-monitor/app/feed"
	"github.com/lysyi3m/forum-monitor/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	closeLog, err := setupLogger(appCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(appCfg); err != nil {
		slog.Error("Forum monitor stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting forum monitor", "version", appCfg.Version, "driver", appCfg.DBDriver)

	db, err := database.NewConnection(appCfg.DBDriver, appCfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	topicSeeds := feed.NewTopicSeeds(appCfg.TopicsDir)
	if err := topicSeeds.Run(); err != nil {
		return fmt.Errorf("failed to load topic seeds: %w", err)
	}
	slog.Info("Topic seeds loaded", "dir", appCfg.TopicsDir, "count", topicSeeds.GetSeedCount())

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.FetchTimeoutDuration())
	ingester := tasks.NewIngester(db, fetcher, feed.NewFilterer())

	scheduler := tasks.NewScheduler(topicSeeds, database.NewTopicStore(db), ingester,
		appCfg.SchedulerIntervalDuration(), appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := cmp.Or(appCfg.BaseUrl, "http://localhost:"+appCfg.Port)
	handler := api.NewHandler(db, feed.NewGenerator(baseURL, appCfg.Version), ingester, appCfg.MaxFeedItems)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.Debug),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return serveErr
}

// setupLogger installs the default slog logger. With a log file configured,
// records go to stdout and to a size-rotated file.
func setupLogger(appCfg *cfg.Cfg) (func(), error) {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}

	var (
		output  io.Writer = os.Stdout
		closeFn           = func() {}
	)

	if appCfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(appCfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		rotator := &lumberjack.Logger{
			Filename:   appCfg.LogFile,
			MaxSize:    appCfg.LogMaxSize,
			MaxBackups: appCfg.LogMaxBackups,
			MaxAge:     appCfg.LogMaxAge,
			Compress:   true,
		}
		output = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { rotator.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})))

	return closeFn, nil
}

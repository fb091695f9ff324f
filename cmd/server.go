package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"job-killer/internal/api"
	"job-killer/internal/fetcher"
	"job-killer/internal/importer"
	"job-killer/internal/materializer"
	"job-killer/internal/notifier"
	"job-killer/internal/provider"
	"job-killer/internal/scheduler"
	"job-killer/internal/storage"
)

// AppConfig is the whole service configuration, one section per package.
type AppConfig struct {
	Server       ServerConfig         `yaml:"server"`
	Database     DatabaseConfig       `yaml:"database"`
	Fetcher      fetcher.Config       `yaml:"fetcher"`
	Importer     importer.Config      `yaml:"importer"`
	Materializer materializer.Config  `yaml:"materializer"`
	Scheduler    scheduler.Config     `yaml:"scheduler"`
	Email        notifier.EmailConfig `yaml:"email"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		return
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "jobkiller.db"
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		log.Printf("init store error: %v", err)
		return
	}
	defer store.Close()

	client := &http.Client{Timeout: 60 * time.Second}
	fetch := fetcher.New(cfg.Fetcher, client, store)
	registry := provider.NewRegistry()
	mat := materializer.New(store, cfg.Materializer)
	imp := importer.New(store, fetch, registry, mat, buildNotifier(cfg.Email), cfg.Importer)
	sched := scheduler.New(imp, cfg.Scheduler)

	handler := api.NewHandler(store, store, store, sched, imp, sched)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sched.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("scheduler stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("server error: %v", err)
	}
}

func loadConfig() (AppConfig, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func buildNotifier(cfg notifier.EmailConfig) importer.Notifier {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" || len(cfg.To) == 0 {
		log.Printf("email notifier disabled: missing host/port/from/to")
		return notifier.NewLogNotifier(nil)
	}
	return notifier.NewEmailNotifier(cfg, nil)
}

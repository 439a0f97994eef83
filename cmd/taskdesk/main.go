package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/api/apitest"
	"github.com/sandeepkv93/taskdesk/internal/config"
	"github.com/sandeepkv93/taskdesk/internal/scheduler"
	"github.com/sandeepkv93/taskdesk/internal/storage"
	"github.com/sandeepkv93/taskdesk/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskdesk failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultConfigFileName, "path to the TOML config file")
	demo := flag.Bool("demo", false, "run against an in-process demo backend")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config %s: %v (using defaults)\n", *configPath, err)
	}
	cfg = config.FromEnv(cfg)

	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "taskdesk")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	baseURL := cfg.APIBaseURL
	if *demo {
		srv := httptest.NewServer(apitest.NewDemo(time.Now()).Handler())
		defer srv.Close()
		baseURL = srv.URL + "/api"
		log.Printf("demo backend at %s", baseURL)
	}

	var cache storage.Cache
	if cfg.CachePath != "" {
		c, err := storage.OpenSQLite(cfg.CachePath)
		if err != nil {
			log.Printf("open cache %s: %v (continuing without offline cache)", cfg.CachePath, err)
		} else {
			cache = c
			defer c.Close()
		}
	}

	engine := scheduler.NewEngine(cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	model := update.NewModel(update.Options{
		Config:   cfg,
		Client:   api.NewClient(baseURL, api.WithTimeout(cfg.RequestTimeoutDuration())),
		Engine:   engine,
		Cache:    cache,
		Notifier: update.ExecDesktopNotifier{},
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

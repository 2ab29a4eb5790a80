package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/aravhawk/openrank/internal/history"
	"github.com/aravhawk/openrank/internal/scrapers/homeaccess"
	"github.com/aravhawk/openrank/internal/service"
	"github.com/aravhawk/openrank/internal/store"
	"github.com/aravhawk/openrank/internal/telemetry"
	"github.com/aravhawk/openrank/internal/web"
	"github.com/aravhawk/openrank/lib/configutil"
	"github.com/aravhawk/openrank/lib/serviceutil"
)

type Config struct {
	Addr            string `json:"addr"`
	DataFile        string `json:"data_file"`
	HistoryDb       string `json:"history_db"`
	DefaultDistrict string `json:"default_district"`
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8000",
		DataFile:        "data/students.json",
		HistoryDb:       "data/history.db",
		DefaultDistrict: homeaccess.DefaultDistrict,
	}
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	telemetry.InitSlog(*verbose)
	ctx := serviceutil.SignalContext()

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if os.IsNotExist(err) {
		slog.Info("no config.json5 found, using defaults")
		cfg = defaultConfig()
	} else if err != nil {
		serviceutil.Fatal("read config", err)
	}
	defaults := defaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.DataFile == "" {
		cfg.DataFile = defaults.DataFile
	}
	if cfg.HistoryDb == "" {
		cfg.HistoryDb = defaults.HistoryDb
	}

	tel := telemetry.SlogAPI{}

	st, err := store.NewFileStore(cfg.DataFile, tel)
	if err != nil {
		serviceutil.Fatal("open record store", err)
	}
	hist, err := history.Open(cfg.HistoryDb)
	if err != nil {
		serviceutil.Fatal("open history db", err)
	}
	defer hist.Close()

	svc := service.NewService(st, homeaccess.NewScraper(tel), &hist, tel)
	server := web.NewServer(svc, st, cfg.DefaultDistrict, tel)

	serviceutil.StartHttpServer(ctx, cfg.Addr, server.Router())
}

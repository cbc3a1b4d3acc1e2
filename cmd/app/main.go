package main

import (
	"flag"
	"log"
	"os"
	_ "time/tzdata"

	"StockLens/internal/di"
	"StockLens/pkg/config"
)

func main() {
	defaultPath := "config/config.yaml"
	if p, ok := os.LookupEnv("CONFIG_PATH"); ok {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "config file path (empty for defaults and env only)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

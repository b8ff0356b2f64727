package main

import (
	"flag"
	"fmt"
	"os"

	"homehub/config"
	"homehub/internal/logs"
	"homehub/server"
)

var version = "dev"

func main() {
	cfgPath := flag.String("config", os.Getenv("HOMEHUB_CONFIG"), "path to config file (yaml/json/toml)")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "homehub: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	var app server.App
	if err := app.Initialize(cfg); err != nil {
		return err
	}
	logs.Logger.WithField("version", version).Info("homehub started")
	return app.Run()
}

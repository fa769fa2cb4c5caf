package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goserg/poolrating/internal/app"
	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/logger"
	"github.com/goserg/poolrating/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/server.toml", "path to the server config")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		return err
	}
	l := logger.New(cfg.Server.LogLevel)
	ctx := context.Background()

	st, err := app.OpenStorage(ctx, l, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := service.New(l, st, cfg.Rating).Backfill(ctx)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	for _, name := range result.Missing {
		fmt.Printf("no profile for %s\n", name)
	}
	return nil
}

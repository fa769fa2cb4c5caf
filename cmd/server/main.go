package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/goserg/poolrating/internal/app"
	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/logger"
	"github.com/goserg/poolrating/internal/service"
	"github.com/goserg/poolrating/internal/tgbot"
	"github.com/goserg/poolrating/internal/web"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStorage(ctx, l, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	ratingService := service.New(l, st, cfg.Rating)
	server, err := web.New(ratingService, cfg, l)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.TgBot.Enabled {
		bot, err := tgbot.New(ratingService, cfg.TgBot, l)
		if err != nil {
			return err
		}
		ratingService.SetNotifier(bot)
		g.Go(func() error {
			return bot.Run(gCtx)
		})
	}
	g.Go(server.Serve)
	g.Go(func() error {
		<-gCtx.Done()
		l.Info("shutting down")
		return server.Shutdown()
	})
	return g.Wait()
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"loveoracle/app/client/gemini"
	"loveoracle/app/config"
	"loveoracle/app/server"
	"loveoracle/app/service/conversation"
	"loveoracle/app/service/instruction"
	"loveoracle/app/service/memory"
	"loveoracle/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, gemini.NewClient)
	do.Provide(di, memory.New)
	do.Provide(di, instruction.New)
	do.Provide(di, conversation.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	if err := do.MustInvoke[*server.Service](di).Run(appCtx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

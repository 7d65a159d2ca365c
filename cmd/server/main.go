package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/kgimport/internal/server"
	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Init(ctx); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
}

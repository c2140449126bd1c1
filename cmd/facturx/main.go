package main

import (
	"os"

	"github.com/jhoicas/facturx/internal/interfaces/cli"
	"github.com/jhoicas/facturx/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Env:   "development",
		Level: os.Getenv("LOG_LEVEL"),
		Out:   os.Stderr,
	})
	cli.Execute(cli.Options{Logger: log.Component("cli")})
}

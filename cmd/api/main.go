package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturx/internal/app"
	httpRouter "github.com/jhoicas/facturx/internal/interfaces/http"
	"github.com/jhoicas/facturx/pkg/config"
	"github.com/jhoicas/facturx/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("profile", cfg.FacturX.Profile).
		Str("sequence", cfg.FacturX.Sequence).
		Msg("iniciando aplicación")

	ctx := context.Background()
	res, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("secuencia de numeración")
	}
	defer res.Close()

	generateUC, err := app.NewGenerateUseCase(cfg, res, log)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline Factur-X")
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    cfg.HTTP.BodyLimitKiB * 1024,
	})
	fiberApp.Use(recover.New())

	httpRouter.Router(fiberApp, httpRouter.RouterDeps{
		GenerateUC: generateUC,
		Logger:     log,
	})

	go func() {
		if err := fiberApp.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

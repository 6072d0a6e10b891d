package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/air-gases/defibrillator"
	"github.com/air-gases/langman"
	"github.com/air-gases/limiter"
	"github.com/air-gases/logger"
	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/handler"
	"github.com/spf13/pflag"
)

func main() {
	cf := pflag.StringP("config", "c", "config.toml", "configuration file")
	pflag.Parse()

	if err := base.Load(*cf); err != nil {
		base.Logger.Fatal().Err(err).
			Msg("failed to load configuration")
	}

	if err := handler.Setup(); err != nil {
		base.Logger.Fatal().Err(err).
			Msg("failed to set up handlers")
	}

	base.Air.Pregases = []air.Gas{
		logger.Gas(logger.GasConfig{}),
		defibrillator.Gas(defibrillator.GasConfig{}),
		limiter.BodySizeGas(limiter.BodySizeGasConfig{
			MaxBytes: 1 << 20,
		}),
		langman.Gas(langman.GasConfig{}),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		base.Logger.Info().
			Str("address", base.Air.Address).
			Msg("starting server")
		if err := base.Air.Serve(); err != nil {
			base.Logger.Error().Err(err).
				Msg("server error")
		}
	}()

	<-shutdownChan

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := base.Air.Shutdown(ctx); err != nil {
		base.Logger.Error().Err(err).
			Msg("failed to shut down server")
	}
}

package base

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aofei/air"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var (
	// Viper is the global instace of the `viper.Viper`.
	Viper = viper.New()

	// Logger is the global instace of the `zerolog.Logger`.
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Air is the global instace of the `air.Air`.
	Air = air.New()

	// Context is the global instance of the `context.Context`.
	Context = context.Background()

	// Cron is the global instance of the `cron.Cron`.
	Cron = cron.New(cron.WithLocation(time.UTC))
)

func init() {
	zerolog.TimeFieldFormat = ""

	Viper.SetDefault("zerolog.level", "info")
	Viper.SetDefault("database.driver", "sqlite")
	Viper.SetDefault("database.dsn", "ask.db")
	Viper.SetDefault("database.max_open_conns", 0)
	Viper.SetDefault("qa.page_size", 10)
	Viper.SetDefault("qa.session_max_age", 14*24*time.Hour)
	Viper.SetDefault("qa.session_cookie_name", "ask_session")
	Viper.SetDefault("qa.session_cookie_secure", false)
	Viper.SetDefault("qa.login_rate", 1)
	Viper.SetDefault("qa.login_burst", 5)
	Viper.SetDefault("qa.time_zone", "UTC")
	Viper.SetDefault("qa.faq_root", "qas")
}

// Load reads the configuration file cf and sets up the global instances
// according to it.
func Load(cf string) error {
	ext := filepath.Ext(cf)
	Viper.AddConfigPath(filepath.Dir(cf))
	Viper.SetConfigName(strings.TrimSuffix(filepath.Base(cf), ext))
	Viper.SetConfigType(strings.TrimPrefix(ext, "."))
	if err := Viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	Logger = Logger.
		With().
		Str("app_name", Viper.GetString("air.app_name")).
		Logger()
	if Viper.GetBool("air.debug_mode") {
		Logger = Logger.Level(zerolog.DebugLevel)
	} else {
		l, err := zerolog.ParseLevel(Viper.GetString("zerolog.level"))
		if err != nil {
			return fmt.Errorf("failed to parse logger level: %w", err)
		}

		Logger = Logger.Level(l)
	}

	if err := Viper.UnmarshalKey("air", Air); err != nil {
		return fmt.Errorf(
			"failed to unmarshal air configuration items: %w",
			err,
		)
	}

	Air.ErrorLogger = log.New(&errorLogWriter{}, "", 0)

	if err := loadDisplayLocation(Viper.GetString("qa.time_zone")); err != nil {
		return err
	}

	var cancel context.CancelFunc
	Context, cancel = context.WithCancel(context.Background())
	Air.AddShutdownJob(cancel)

	Cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(
			cron.PrintfLogger(log.New(Logger, "cron: ", 0)),
		),
	)
	Cron.Start()
	Air.AddShutdownJob(func() {
		<-Cron.Stop().Done()
	})

	return nil
}

// errorLogWriter is an error log writer.
type errorLogWriter struct{}

// Write implements the `io.Writer`.
func (elw *errorLogWriter) Write(b []byte) (int, error) {
	Logger.Error().Err(errors.New(strings.TrimSuffix(string(b), "\n"))).
		Msg("air error")

	return len(b), nil
}

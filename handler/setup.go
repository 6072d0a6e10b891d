package handler

import (
	"fmt"
	"time"

	"github.com/askcn/ask/auth"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/store"
	"github.com/robfig/cron/v3"
)

// Setup opens the store, applies the configuration, and schedules the
// background jobs. It must be called after the `base.Load`.
func Setup() error {
	s, err := store.Open(
		base.Viper.GetString("database.driver"),
		base.Viper.GetString("database.dsn"),
	)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	if n := base.Viper.GetInt("database.max_open_conns"); n > 0 {
		s.SetMaxOpenConns(n)
	}

	qaStore = s
	base.Logger.Info().
		Str("driver", s.Driver()).
		Msg("store opened")

	base.Air.AddShutdownJob(func() {
		if err := s.Close(); err != nil {
			base.Logger.Error().Err(err).
				Msg("failed to close store")
		}
	})

	registerStaticRoutes(".")

	pageSize = max(base.Viper.GetInt("qa.page_size"), 1)
	sessionCookieName = base.Viper.GetString("qa.session_cookie_name")
	sessionMaxAge = base.Viper.GetDuration("qa.session_max_age")
	sessionCookieSecure = base.Viper.GetBool("qa.session_cookie_secure")
	authLimiter = auth.NewLimiter(
		base.Viper.GetFloat64("qa.login_rate"),
		base.Viper.GetInt("qa.login_burst"),
		time.Hour,
	)

	if root := base.Viper.GetString("qa.faq_root"); root != "" {
		faqRoot = root
	}

	if err := watchFAQs(); err != nil {
		base.Logger.Warn().Err(err).
			Str("root", faqRoot).
			Msg("failed to watch faq root")
	}

	if err := setupStatsPublishing(); err != nil {
		return fmt.Errorf("failed to set up stats publishing: %w", err)
	}

	if err := loadPublishedStats(base.Context); err != nil {
		base.Logger.Warn().Err(err).
			Msg("failed to load published stats")
	}

	if _, err := base.Cron.AddJob(
		"*/10 * * * *", // Every 10 minutes
		cron.NewChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		).Then(cron.FuncJob(func() {
			if err := updateStats(base.Context); err != nil {
				base.Logger.Error().Err(err).
					Msg("failed to update stats")
			}
		})),
	); err != nil {
		return fmt.Errorf("failed to add stats update cron job: %w", err)
	}

	if _, err := base.Cron.AddJob(
		"@hourly",
		cron.NewChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		).Then(cron.FuncJob(purgeSessions)),
	); err != nil {
		return fmt.Errorf(
			"failed to add session purge cron job: %w",
			err,
		)
	}

	return nil
}

// purgeSessions deletes the expired sessions and forgets idle throttling
// buckets.
func purgeSessions() {
	authLimiter.Cleanup()

	n, err := qaStore.PurgeExpiredSessions(base.Context, now())
	if err != nil {
		base.Logger.Error().Err(err).
			Msg("failed to purge expired sessions")
		return
	}

	base.Logger.Debug().
		Int64("count", n).
		Msg("purged expired sessions")
}

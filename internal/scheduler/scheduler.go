package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"marketing-insights-backend/config"
	"marketing-insights-backend/internal/service"
)

// NewScheduler refreshes the default SEO spreadsheet snapshot on the
// configured cron schedule so queries read warm data instead of hitting the
// Sheets API inline.
func NewScheduler(lc fx.Lifecycle, cfg *config.Config, sheetsSvc service.SheetsService) *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	schedule := cfg.Sheets.RefreshSchedule
	_, err := c.AddFunc(schedule, func() {
		go func() {
			err := sheetsSvc.RefreshDefaultSnapshot(context.Background())
			if err != nil {
				log.Error().Err(err).Msg("Error during scheduled sheet snapshot refresh")
			}
		}()
	})

	if err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled sheet snapshot refresh job")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})

	return c
}

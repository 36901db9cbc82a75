// Package cli wires the mindplanner commands.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"mindplanner/internal/config"
	"mindplanner/internal/events"
	"mindplanner/internal/repository"
	"mindplanner/internal/service"
)

// App holds settings shared by every command.
type App struct {
	DatabaseURL string
	Timezone    string

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "mindplanner",
		Short:        "Wellness activity planner: HTTP API, Telegram bot and tools",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the API, bot and scheduler
  mindplanner serve

  # See which dates a rule produces
  mindplanner preview --start 2024-01-31 --type monthly --count 6

  # Export a user's activities to iCalendar
  mindplanner export --user alice --out alice.ics
`),
	}

	cmd.PersistentFlags().StringVar(&app.DatabaseURL, "db", "", "SQLite database path (overrides DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&app.Timezone, "tz", "", "IANA timezone (overrides TIMEZONE)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if app.DatabaseURL != "" {
			cfg.DatabaseURL = app.DatabaseURL
		}
		if app.Timezone != "" {
			loc, err := time.LoadLocation(app.Timezone)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			cfg.Location = loc
		}
		app.cfg = cfg
		return nil
	}

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPreviewCmd(app))
	cmd.AddCommand(newExportCmd(app))

	return cmd
}

// stack is the storage and service layer every command builds on.
type stack struct {
	db         *gorm.DB
	users      *repository.UserRepository
	dispatcher *events.Dispatcher
	categories *service.CategoryService
	activities *service.ActivityService
	presets    *service.PresetService
	reminders  *service.ReminderService
}

func (app *App) open() (*stack, error) {
	db, err := repository.NewDB(app.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	activityRepo := repository.NewActivityRepository(db)
	presetRepo := repository.NewPresetRepository(db)
	dispatcher := events.NewDispatcher()
	categories := service.NewCategoryService(repository.NewCategoryRepository(db))

	return &stack{
		db:         db,
		users:      repository.NewUserRepository(db),
		dispatcher: dispatcher,
		categories: categories,
		activities: service.NewActivityService(activityRepo, categories, dispatcher, app.cfg.DayPartTimes, app.cfg.ChunkSize),
		presets:    service.NewPresetService(presetRepo, activityRepo, dispatcher, app.cfg.DayPartTimes, app.cfg.ChunkSize),
		reminders:  service.NewReminderService(activityRepo, presetRepo),
	}, nil
}

func (s *stack) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

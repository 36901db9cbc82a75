package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mindplanner/internal/bot"
	"mindplanner/internal/events"
	"mindplanner/internal/httpapi"
	"mindplanner/internal/service"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot (when TELEGRAM_TOKEN is set) and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
	return cmd
}

func serve(ctx context.Context, app *App) error {
	cfg := app.cfg
	st, err := app.open()
	if err != nil {
		return err
	}
	defer st.close()

	st.dispatcher.Subscribe(func(e events.Event) {
		log.Printf("[info] event %s user=%d activities=%d group=%q", e.Kind, e.UserID, len(e.ActivityIDs), e.GroupID)
	})

	api := httpapi.NewAPI(httpapi.Deps{
		Users:       st.users,
		Activities:  st.activities,
		Presets:     st.presets,
		Categories:  st.categories,
		Dispatcher:  st.dispatcher,
		Location:    cfg.Location,
		CORSOrigins: cfg.CORSOrigins,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	if _, err := scheduler.ScheduleExpiry(cfg.ExpiryInterval, st.presets); err != nil {
		return err
	}

	var telegramBot *bot.Bot
	if cfg.BotEnabled() {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.Services{
			Users:      st.users,
			Categories: st.categories,
			Activities: st.activities,
			Presets:    st.presets,
			Reminders:  st.reminders,
		}, cfg.Location)
		if err != nil {
			return err
		}
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("report: %v", err)
			}
		}); err != nil {
			return err
		}
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, bot disabled")
	}

	scheduler.Start()
	defer scheduler.Stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	botErr := make(chan error, 1)
	if telegramBot != nil {
		go func() {
			log.Println("Mind planner bot started.")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				botErr <- err
			}
			close(botErr)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			runErr = err
		}
	case err, ok := <-botErr:
		if ok {
			runErr = err
		}
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
	return runErr
}

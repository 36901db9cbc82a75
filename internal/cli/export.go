package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mindplanner/internal/calendar"
	"mindplanner/internal/model"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		subject  string
		telegram string
		from     string
		to       string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's activities as an iCalendar (.ics) file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (subject == "") == (telegram == "") {
				return errors.New("provide exactly one of --user or --telegram")
			}
			st, err := app.open()
			if err != nil {
				return err
			}
			defer st.close()

			ctx := cmd.Context()
			user, err := findUser(ctx, st, subject, telegram)
			if err != nil {
				return err
			}

			loc := app.cfg.Location
			var fromDay, toDay *time.Time
			if from != "" {
				d, err := parseDay(from, loc)
				if err != nil {
					return err
				}
				fromDay = &d
			}
			if to != "" {
				d, err := parseDay(to, loc)
				if err != nil {
					return err
				}
				toDay = &d
			}

			activities, err := st.activities.List(ctx, user, fromDay, toDay)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			if err := calendar.Export(out, activities, loc, time.Now()); err != nil {
				return err
			}
			if outPath != "" && outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d activities to %s\n", len(activities), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "user", "", "API user subject")
	cmd.Flags().StringVar(&telegram, "telegram", "", "Telegram user id")
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, '-' for stdout")
	return cmd
}

func findUser(ctx context.Context, st *stack, subject, telegram string) (*model.User, error) {
	if subject != "" {
		return st.users.FindBySubject(ctx, subject)
	}
	id, err := strconv.ParseInt(telegram, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram id %q", telegram)
	}
	return st.users.FindByTelegramID(ctx, id)
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mindplanner/internal/recurrence"
	"mindplanner/internal/service"
)

func newPreviewCmd(app *App) *cobra.Command {
	var (
		start        string
		ruleType     string
		count        int
		interval     int
		unit         string
		endCondition string
		endDate      string
		endCount     int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the dates a recurrence rule produces without storing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := app.cfg.Location
			if loc == nil {
				loc = time.Local
			}
			from, err := parseDay(start, loc)
			if err != nil {
				return err
			}

			rule := recurrence.Rule{Count: count, CustomInterval: interval, EndCount: endCount}
			if rule.Type, err = recurrence.ParseType(ruleType); err != nil {
				return err
			}
			if rule.CustomUnit, err = recurrence.ParseUnit(unit); err != nil {
				return err
			}
			if rule.EndCondition, err = recurrence.ParseEndCondition(endCondition); err != nil {
				return err
			}
			if endDate != "" {
				end, err := parseDay(endDate, loc)
				if err != nil {
					return err
				}
				rule.EndDate = &end
			}

			preview, err := service.PreviewDates(from, rule)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range preview.Dates {
				fmt.Fprintln(out, d.Format("2006-01-02 Mon"))
			}
			fmt.Fprintf(out, "%d occurrences, window ends %s\n", len(preview.Dates), preview.ActivationEnd.Format(time.DateOnly))
			if preview.RRule != "" {
				fmt.Fprintln(out, preview.RRule)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "today", "first date (YYYY-MM-DD or 'today')")
	cmd.Flags().StringVar(&ruleType, "type", "none", "none, daily, weekly, monthly or custom")
	cmd.Flags().IntVar(&count, "count", 0, "occurrences for daily, weekly and monthly rules")
	cmd.Flags().IntVar(&interval, "interval", 1, "custom rule interval")
	cmd.Flags().StringVar(&unit, "unit", "day", "custom rule unit: day, week, month or year")
	cmd.Flags().StringVar(&endCondition, "end", "never", "custom rule end: never, date or count")
	cmd.Flags().StringVar(&endDate, "end-date", "", "custom rule end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&endCount, "end-count", 0, "custom rule occurrences when --end=count")
	return cmd
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" || raw == "today" {
		return recurrence.DateOf(time.Now().In(loc)), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return t, nil
}

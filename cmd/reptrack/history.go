package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/store"
)

var (
	historyExercise string
	historyLimit    int
	historyDays     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded workouts and per-exercise totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, _, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.WorkoutFilter{Exercise: historyExercise, Limit: historyLimit}
		if historyDays > 0 {
			filter.Since = time.Now().AddDate(0, 0, -historyDays)
		}

		workouts, err := st.Workouts().List(filter)
		if err != nil {
			return fmt.Errorf("failed to retrieve workouts: %w", err)
		}

		printHeader("HISTORY")
		if len(workouts) == 0 {
			fmt.Println(color.HiBlackString("  no workouts recorded"))
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, wo := range workouts {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				wo.StartedAt.Local().Format("2006-01-02 15:04"),
				color.New(color.Bold).Sprint(wo.Exercise),
				formatReps(wo.Reps, wo.TargetReps),
				formatDuration(time.Duration(wo.DurationMs)*time.Millisecond),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		totals, err := st.Workouts().Totals()
		if err != nil {
			return fmt.Errorf("failed to compute totals: %w", err)
		}
		fmt.Println()
		printHeader("TOTALS")
		for _, t := range totals {
			printMetric(t.Exercise, fmt.Sprintf("%d reps in %d workouts", t.Reps, t.Workouts))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyExercise, "exercise", "x", "", "Only show this exercise")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of workouts to display")
	historyCmd.Flags().IntVarP(&historyDays, "days", "d", 0, "Only show workouts from the last N days")
}

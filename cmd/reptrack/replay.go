package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

var (
	replayExercise string
	replayVerbose  bool
	replaySave     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <poses.jsonl>",
	Short: "Count reps in a recorded pose sequence (JSON Lines, - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		poses, err := readPoses(args[0])
		if err != nil {
			return err
		}

		st, catalog, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		exerciseID := replayExercise
		if exerciseID == "" {
			exerciseID = cfg.DefaultExercise
		}

		sessions := session.NewManager(catalog, nil)
		if replaySave {
			sessions.OnStop(func(sum session.Summary) {
				if err := st.Workouts().Record(sum); err != nil {
					fmt.Fprintf(os.Stderr, "save workout: %v\n", err)
				}
			})
		}

		s, err := sessions.Start(exerciseID)
		if err != nil {
			return err
		}

		for i, p := range poses {
			snap, err := s.Feed(p)
			if err != nil {
				return err
			}
			printFrame(cmd.OutOrStdout(), i, snap)
		}

		sum, err := sessions.Stop(s.ID())
		if err != nil {
			return err
		}

		printHeader("REPLAY")
		printMetric("Exercise", sum.Exercise)
		printMetric("Reps", formatReps(sum.Reps, sum.TargetReps))
		printMetric("Frames", fmt.Sprintf("%d (%d skipped)", sum.Frames, sum.Skipped))
		if replaySave {
			printMetric("Saved as", sum.SessionID)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayExercise, "exercise", "x", "", "Exercise ID (default from config)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Print every frame, not only counted reps")
	replayCmd.Flags().BoolVar(&replaySave, "save", false, "Record the replay as a workout")
}

func readPoses(path string) ([]*pose.Pose, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	poses, err := pose.ReadSequence(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return poses, nil
}

func printFrame(w io.Writer, i int, snap repcount.Snapshot) {
	switch {
	case snap.Counted:
		fmt.Fprintf(w, "%5d  %s %s\n", i, color.GreenString("rep %d", snap.Reps), formatAngle(snap.Angle))
	case !replayVerbose:
	case snap.Indeterminate:
		fmt.Fprintf(w, "%5d  %s\n", i, color.HiBlackString("not visible"))
	default:
		fmt.Fprintf(w, "%5d  %-10s %s\n", i, snap.Phase, formatAngle(snap.Angle))
	}
}

func formatAngle(angle *float64) string {
	if angle == nil {
		return ""
	}
	return fmt.Sprintf("%.0f°", *angle)
}

func formatReps(reps, target int) string {
	if target <= 0 {
		return fmt.Sprint(reps)
	}
	out := fmt.Sprintf("%d/%d", reps, target)
	if reps >= target {
		out += " " + color.GreenString("✓")
	}
	return out
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}

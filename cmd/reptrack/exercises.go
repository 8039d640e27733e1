package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/repcount"
)

var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "List the built-in and custom exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, catalog, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		printHeader("EXERCISES")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, ex := range catalog.List() {
			kind := color.GreenString("builtin")
			if !ex.Builtin {
				kind = color.MagentaString("custom")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\ttarget %d\n", color.New(color.Bold).Sprint(ex.ID), ex.Name, kind, ex.TargetReps)
		}
		return w.Flush()
	},
}

var exerciseAddCmd = &cobra.Command{
	Use:   "add <definition.json>",
	Short: "Add a custom angle exercise from a JSON definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var def repcount.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, catalog, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ex, err := def.Exercise()
		if err != nil {
			return err
		}
		if err := catalog.Register(ex); err != nil {
			return err
		}
		if err := st.Exercises().Create(def); err != nil {
			return fmt.Errorf("save exercise: %w", err)
		}

		fmt.Printf("%s added exercise %s\n", color.GreenString("✓"), ex.ID)
		return nil
	},
}

var exerciseRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a custom exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, catalog, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := catalog.Remove(args[0]); err != nil {
			return err
		}
		if err := st.Exercises().Delete(args[0]); err != nil {
			return err
		}

		fmt.Printf("%s removed exercise %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

func init() {
	exercisesCmd.AddCommand(exerciseAddCmd, exerciseRemoveCmd)
}

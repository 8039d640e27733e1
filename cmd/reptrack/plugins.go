package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the rep event plugins found in the plugin directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		manager := plugin.NewManager(cfg.PluginPath())
		if err := manager.Discover(); err != nil {
			return err
		}

		printHeader("PLUGINS")
		printMetric("Directory", manager.PluginDir())
		plugins := manager.List()
		if len(plugins) == 0 {
			fmt.Println("  no plugins installed")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, p := range plugins {
			events := make([]string, len(p.Manifest.Events))
			for i, e := range p.Manifest.Events {
				events[i] = string(e)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", color.New(color.Bold).Sprint(p.Manifest.Name), p.Manifest.Version, strings.Join(events, ","), p.Manifest.Description)
		}
		return w.Flush()
	},
}

var pluginTestCmd = &cobra.Command{
	Use:   "test <name> [event]",
	Short: "Run a plugin once with a sample event",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		manager := plugin.NewManager(cfg.PluginPath())
		if err := manager.Discover(); err != nil {
			return err
		}
		p, err := manager.Get(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		event := plugin.EventRep
		if len(args) == 2 {
			event = plugin.Event(args[1])
		}
		req := plugin.Request{
			Event:      event,
			SessionID:  "test",
			Exercise:   cfg.DefaultExercise,
			Reps:       1,
			TargetReps: 10,
		}

		executor := plugin.NewExecutor(time.Duration(cfg.PluginTimeoutMs) * time.Millisecond)
		resp, err := executor.Execute(context.Background(), p, req)
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
		}
		fmt.Printf("%s %s handled %s\n", color.GreenString("✓"), p.Manifest.Name, event)
		if len(resp.Data) > 0 {
			printMetric("Data", string(resp.Data))
		}
		return nil
	},
}

func init() {
	pluginsCmd.AddCommand(pluginTestCmd)
}

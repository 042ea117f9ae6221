package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codewarden/internal/config"
)

var governorsCmd = &cobra.Command{
	Use:   "governors",
	Short: "List the governors the current configuration would register",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		registry, err := buildRegistry(cfg.Governors)
		if err != nil {
			return err
		}

		fmt.Printf("%-16s %-8s %s\n", "NAME", "WEIGHT", "BLOCKING RULES")
		for _, g := range registry.List() {
			blocking := strings.Join(g.BlockingRuleIDs(), ", ")
			if blocking == "" {
				blocking = "-"
			}
			fmt.Printf("%-16s %-8.2f %s\n", g.Name(), g.Weight(), blocking)
		}
		return nil
	},
}

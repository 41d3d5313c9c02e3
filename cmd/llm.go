package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/milhao/internal/requestlog"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect logged generator requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generator requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath, err := resolveDBPath(cmd, nil)
		if err != nil {
			return fmt.Errorf("resolve request log path: %w", err)
		}

		log, err := requestlog.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open request log: %w", err)
		}
		defer log.Close()

		entries, err := log.Recent(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("query requests: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No generator requests logged.")
			return nil
		}

		// Header.
		fmt.Printf("%-5s  %-19s  %-12s  %-26s  %-6s  %-6s  %-7s  %-9s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK")
		fmt.Println(strings.Repeat("─", 104))

		for _, e := range entries {
			ok := "yes"
			if !e.Success {
				ok = "no"
			}
			fmt.Printf("%-5d  %-19s  %-12s  %-26s  %-6d  %-6d  %-7d  $%-8.4f  %s\n",
				e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Purpose,
				e.Model, e.InputTokens, e.OutputTokens, e.LatencyMs, e.CostUSD, ok)
		}
		return nil
	},
}

func init() {
	llmListCmd.Flags().Int("limit", 20, "Maximum number of requests to show")
	llmCmd.AddCommand(llmListCmd)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query token logs and aggregated stats",
}

var (
	logsTool       string
	logsSession    string
	logsConfigName string
	logsStatus     string
	logsStart      string
	logsEnd        string
	logsPage       int
	logsPageSize   int
	logsGranularity string
)

func init() {
	logsCmd.AddCommand(logsQueryCmd)
	logsCmd.AddCommand(logsSummaryCmd)
	logsCmd.AddCommand(logsTrendsCmd)
	logsCmd.AddCommand(logsCostCmd)

	for _, c := range []*cobra.Command{logsQueryCmd, logsSummaryCmd, logsTrendsCmd, logsCostCmd} {
		c.Flags().StringVar(&logsTool, "tool", "", "Filter by tool")
		c.Flags().StringVar(&logsSession, "session", "", "Filter by session id")
		c.Flags().StringVar(&logsConfigName, "config-name", "", "Filter by config profile name")
		c.Flags().StringVar(&logsStatus, "status", "", "Filter by status (success/failed)")
		c.Flags().StringVar(&logsStart, "start", "", "Filter start time, RFC3339")
		c.Flags().StringVar(&logsEnd, "end", "", "Filter end time, RFC3339")
	}
	logsQueryCmd.Flags().IntVar(&logsPage, "page", 1, "Page number (1-based)")
	logsQueryCmd.Flags().IntVar(&logsPageSize, "page-size", 50, "Page size")

	for _, c := range []*cobra.Command{logsTrendsCmd, logsCostCmd} {
		c.Flags().StringVar(&logsGranularity, "granularity", "1h", "Bucket size: 15m, 30m, 1h, 12h, 1d, 1w, 1mo")
	}
}

func parseFilters() (map[string]any, error) {
	f := map[string]any{
		"Tool":       logsTool,
		"Session":    logsSession,
		"ConfigName": logsConfigName,
		"Status":     logsStatus,
	}
	if logsStart != "" {
		t, err := time.Parse(time.RFC3339, logsStart)
		if err != nil {
			return nil, fmt.Errorf("parsing --start: %w", err)
		}
		f["Start"] = t
	}
	if logsEnd != "" {
		t, err := time.Parse(time.RFC3339, logsEnd)
		if err != nil {
			return nil, fmt.Errorf("parsing --end: %w", err)
		}
		f["End"] = t
	}
	return f, nil
}

var logsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query token logs with filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters()
		if err != nil {
			return err
		}
		params := map[string]any{"Filters": filters, "Page": logsPage, "PageSize": logsPageSize}
		var out any
		if err := call("query_token_logs", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var logsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show all-time token/cost totals for a filter set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters()
		if err != nil {
			return err
		}
		var out any
		if err := call("get_token_stats_summary", map[string]any{"Filters": filters}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var logsTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show token usage bucketed over time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters()
		if err != nil {
			return err
		}
		params := map[string]any{"Filters": filters, "Granularity": logsGranularity}
		var out any
		if err := call("query_token_trends", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var logsCostCmd = &cobra.Command{
	Use:   "cost",
	Short: "Show cost bucketed over time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters()
		if err != nil {
			return err
		}
		params := map[string]any{"Filters": filters, "Granularity": logsGranularity}
		var out any
		if err := call("query_cost_summary", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

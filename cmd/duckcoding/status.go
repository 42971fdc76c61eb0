package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/duckcoding/duckcoding/internal/tool"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-tool proxy status",
	Long: `Show whether the supervisor is reachable and, for each supported tool,
whether its proxy is running and on which port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

type statusEntry struct {
	Running   bool      `json:"Running"`
	Port      int       `json:"Port"`
	StartedAt time.Time `json:"StartedAt"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(commandAddr() + "/health")
	if err != nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Printf("Expected at: %s\n", commandAddr())
		return nil
	}
	resp.Body.Close()

	fmt.Println("Status: RUNNING")
	fmt.Printf("Command port: %s\n", commandAddr())
	fmt.Println()

	var all map[tool.ID]statusEntry
	if err := call("get_all_proxy_status", nil, &all); err != nil {
		return err
	}

	fmt.Printf("%-14s %-10s %-8s %s\n", "TOOL", "STATUS", "PORT", "STARTED")
	fmt.Printf("%-14s %-10s %-8s %s\n", "----", "------", "----", "-------")
	for _, tid := range tool.All {
		e := all[tid]
		state := "stopped"
		started := ""
		if e.Running {
			state = "running"
			started = e.StartedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-14s %-10s %-8d %s\n", tid, state, e.Port, started)
	}
	return nil
}

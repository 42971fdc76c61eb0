package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect, annotate, and clear sessions",
}

var sessionConfigMode, sessionConfigProfileName string

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsStatsCmd)
	sessionsCmd.AddCommand(sessionsNoteCmd)
	sessionsCmd.AddCommand(sessionsConfigCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)

	sessionsConfigCmd.Flags().StringVar(&sessionConfigMode, "mode", "", "Config mode label")
	sessionsConfigCmd.Flags().StringVar(&sessionConfigProfileName, "profile", "", "Config profile name")
}

var sessionsListCmd = &cobra.Command{
	Use:   "list <tool>",
	Short: "List sessions for a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("get_session_list", map[string]string{"Tool": args[0]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats <tool> <session-id>",
	Short: "Show a session's persisted record plus live counters if active",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{"Tool": args[0], "SessionID": args[1]}
		var out any
		if err := call("get_session_stats", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var sessionsNoteCmd = &cobra.Command{
	Use:   "note <session-id> <text>",
	Short: "Attach a note to a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{"SessionID": args[0], "Note": args[1]}
		if err := call("update_session_note", params, nil); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	},
}

var sessionsConfigCmd = &cobra.Command{
	Use:   "config <session-id>",
	Short: "Set a session's config mode/profile label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{
			"SessionID":         args[0],
			"ConfigMode":        sessionConfigMode,
			"ConfigProfileName": sessionConfigProfileName,
		}
		if err := call("update_session_config", params, nil); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("delete_session", map[string]string{"SessionID": args[0]}, nil); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("clear_all_sessions", nil, nil); err != nil {
			return err
		}
		fmt.Println("cleared")
		return nil
	},
}

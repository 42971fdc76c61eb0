package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage per-tool credential profiles",
}

var (
	profileAPIKey            string
	profileBaseURL           string
	profileWireAPI           string
	profileModel             string
	profilePricingTemplateID string
)

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileActivateCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileActiveCmd)

	for _, c := range []*cobra.Command{profileCreateCmd, profileUpdateCmd} {
		c.Flags().StringVar(&profileAPIKey, "api-key", "", "Vendor API key")
		c.Flags().StringVar(&profileBaseURL, "base-url", "", "Vendor base URL")
		c.Flags().StringVar(&profileWireAPI, "wire-api", "", "Wire API variant (tool-specific)")
		c.Flags().StringVar(&profileModel, "model", "", "Default model")
		c.Flags().StringVar(&profilePricingTemplateID, "pricing-template", "", "Pricing template id")
	}
}

var profileListCmd = &cobra.Command{
	Use:   "list <tool>",
	Short: "List a tool's profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("list_profiles", map[string]string{"Tool": args[0]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <tool> <name>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]any{
			"Tool": args[0],
			"Name": args[1],
			"Payload": map[string]string{
				"APIKey":            profileAPIKey,
				"BaseURL":           profileBaseURL,
				"WireAPI":           profileWireAPI,
				"Model":             profileModel,
				"PricingTemplateID": profilePricingTemplateID,
			},
		}
		var out any
		if err := call("create_profile", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update <tool> <name>",
	Short: "Update a profile (only flags explicitly set are changed)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := map[string]*string{}
		if cmd.Flags().Changed("api-key") {
			patch["APIKey"] = &profileAPIKey
		}
		if cmd.Flags().Changed("base-url") {
			patch["BaseURL"] = &profileBaseURL
		}
		if cmd.Flags().Changed("wire-api") {
			patch["WireAPI"] = &profileWireAPI
		}
		if cmd.Flags().Changed("model") {
			patch["Model"] = &profileModel
		}
		if cmd.Flags().Changed("pricing-template") {
			patch["PricingTemplateID"] = &profilePricingTemplateID
		}
		params := map[string]any{"Tool": args[0], "Name": args[1], "Patch": patch}
		var out any
		if err := call("update_profile", params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <tool> <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("delete_profile", map[string]string{"Tool": args[0], "Name": args[1]}, nil); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var profileActivateCmd = &cobra.Command{
	Use:   "activate <tool> <name>",
	Short: "Activate a profile (writes its credentials into the tool's native config)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("activate_profile", map[string]string{"Tool": args[0], "Name": args[1]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <tool> <name>",
	Short: "Import the tool's current native config as a new profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("import_from_native", map[string]string{"Tool": args[0], "Name": args[1]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var profileActiveCmd = &cobra.Command{
	Use:   "active <tool>",
	Short: "Show the active profile for a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("get_active_config", map[string]string{"Tool": args[0]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

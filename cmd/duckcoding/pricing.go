package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Manage pricing templates",
}

var pricingTemplateFile string

func init() {
	pricingCmd.AddCommand(pricingListCmd)
	pricingCmd.AddCommand(pricingSaveCmd)
	pricingCmd.AddCommand(pricingDeleteCmd)
	pricingCmd.AddCommand(pricingSetDefaultCmd)

	pricingSaveCmd.Flags().StringVar(&pricingTemplateFile, "file", "", "Path to a JSON-encoded pricing.Template document")
	pricingSaveCmd.MarkFlagRequired("file")
}

var pricingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pricing templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("list_pricing_templates", nil, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var pricingSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or replace a pricing template from a JSON file (--file)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(pricingTemplateFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", pricingTemplateFile, err)
		}
		var tmpl any
		if err := json.Unmarshal(raw, &tmpl); err != nil {
			return fmt.Errorf("parsing %s: %w", pricingTemplateFile, err)
		}
		if err := call("save_pricing_template", tmpl, nil); err != nil {
			return err
		}
		fmt.Println("saved")
		return nil
	},
}

var pricingDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a pricing template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("delete_pricing_template", map[string]string{"ID": args[0]}, nil); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var pricingSetDefaultCmd = &cobra.Command{
	Use:   "set-default <tool> <template-id>",
	Short: "Set a tool's default pricing template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{"Tool": args[0], "TemplateID": args[1]}
		if err := call("set_default_template", params, nil); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	},
}

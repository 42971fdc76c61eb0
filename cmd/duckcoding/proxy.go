package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start, stop, and configure per-tool proxies",
}

var (
	proxyPort              int
	proxyLocalAPIKey       string
	proxyRealBaseURL       string
	proxyRealAPIKey        string
	proxyWireAPI           string
	proxyPricingTemplateID string
	proxyEnabled           bool
	proxyAllowPublic       bool
	proxyAutoStart         bool
	proxySessionEndpoint   bool
)

func init() {
	proxyCmd.AddCommand(proxyStartCmd)
	proxyCmd.AddCommand(proxyStopCmd)
	proxyCmd.AddCommand(proxyStatusCmd)
	proxyCmd.AddCommand(proxyConfigGetCmd)
	proxyCmd.AddCommand(proxyConfigSetCmd)

	proxyConfigSetCmd.Flags().BoolVar(&proxyEnabled, "enabled", false, "Enable the proxy")
	proxyConfigSetCmd.Flags().IntVar(&proxyPort, "port", 0, "Local listen port")
	proxyConfigSetCmd.Flags().StringVar(&proxyLocalAPIKey, "local-api-key", "", "Key inbound clients must present")
	proxyConfigSetCmd.Flags().BoolVar(&proxyAllowPublic, "allow-public", false, "Bind 0.0.0.0 instead of loopback")
	proxyConfigSetCmd.Flags().BoolVar(&proxyAutoStart, "auto-start", false, "Start this proxy on daemon launch")
	proxyConfigSetCmd.Flags().BoolVar(&proxySessionEndpoint, "session-endpoint-config", false, "Allow per-session config overrides")
	proxyConfigSetCmd.Flags().StringVar(&proxyPricingTemplateID, "pricing-template", "", "Pricing template id")
	proxyConfigSetCmd.Flags().StringVar(&proxyRealBaseURL, "real-base-url", "", "Real upstream vendor base URL")
	proxyConfigSetCmd.Flags().StringVar(&proxyRealAPIKey, "real-api-key", "", "Real upstream vendor API key")
	proxyConfigSetCmd.Flags().StringVar(&proxyWireAPI, "wire-api", "", "Wire API variant (tool-specific)")
}

var proxyStartCmd = &cobra.Command{
	Use:   "start <tool>",
	Short: "Start a tool's proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("start_tool_proxy", map[string]string{"Tool": args[0]}, nil); err != nil {
			return err
		}
		fmt.Println("started")
		return nil
	},
}

var proxyStopCmd = &cobra.Command{
	Use:   "stop <tool>",
	Short: "Stop a tool's proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call("stop_tool_proxy", map[string]string{"Tool": args[0]}, nil); err != nil {
			return err
		}
		fmt.Println("stopped")
		return nil
	},
}

var proxyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-tool proxy status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
	},
}

var proxyConfigGetCmd = &cobra.Command{
	Use:   "config-get <tool>",
	Short: "Show a tool's proxy config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out any
		if err := call("get_proxy_config", map[string]string{"Tool": args[0]}, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var proxyConfigSetCmd = &cobra.Command{
	Use:   "config-set <tool>",
	Short: "Replace a tool's proxy config (proxy must be stopped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := map[string]any{
			"Enabled":                      proxyEnabled,
			"Port":                         proxyPort,
			"LocalAPIKey":                  proxyLocalAPIKey,
			"AllowPublic":                  proxyAllowPublic,
			"AutoStart":                    proxyAutoStart,
			"SessionEndpointConfigEnabled": proxySessionEndpoint,
			"PricingTemplateID":            proxyPricingTemplateID,
			"RealBaseURL":                  proxyRealBaseURL,
			"RealAPIKey":                   proxyRealAPIKey,
			"WireAPI":                      proxyWireAPI,
		}
		params := map[string]any{"Tool": args[0], "Config": cfg}
		if err := call("update_proxy_config", params, nil); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	},
}

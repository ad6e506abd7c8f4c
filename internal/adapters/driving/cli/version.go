package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/adapters/driving/mcp"
)

var versionJSON bool

type versionInfo struct {
	Version   string `json:"version"`
	MCPServer string `json:"mcp_server"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{skipAppAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versionInfo{
			Version:   version,
			MCPServer: mcp.Version,
			Go:        runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		if versionJSON {
			return printJSON(cmd, info)
		}
		cmd.Printf("govlens version %s\n", info.Version)
		cmd.Printf("  mcp server %s, %s %s\n", info.MCPServer, info.Go, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"fmt"
	"runtime"

	"example.com/rfidscan/pkg/common"

	"github.com/spf13/cobra"
)

// BuildInfo is filled in at build time through -ldflags
var BuildInfo struct {
	GitCommit string
	BuildTime string
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, build information, and runtime environment of the RFID scan service.`,
	Run: func(cmd *cobra.Command, args []string) {
		displayVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func displayVersion() {
	fmt.Println("RFID Scan Service")
	fmt.Println("=================")
	fmt.Printf("Version:    %s\n", common.Version)
	fmt.Printf("Git Commit: %s\n", valueOr(BuildInfo.GitCommit, "unknown"))
	fmt.Printf("Built:      %s\n", valueOr(BuildInfo.BuildTime, "unknown"))
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

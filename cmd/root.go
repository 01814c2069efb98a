package cmd

import (
	"os"

	"github.com/NitronPlus/hostpilot/pkg/logger"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hostpilot [command] [flags]",
	Short: "hostpilot is a command-line file transfer tool for SSH hosts",
	Long: `hostpilot moves files and directories to and from remote hosts over SSH,
concurrently, with glob expansion, atomic writes, and per-file retries. It also keeps a small alias registry so hosts can be referenced
by name instead of user@host:port.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		verboseFlag, _ := cmd.Flags().GetBool("verbose")
		switch {
		case debugFlag:
			logger.SetLevel("debug")
		case verboseFlag:
			logger.SetLevel("info")
		}
	},
}

// Execute adds all child commands to the root command and runs it. It is
// called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose (info-level) logging")
}

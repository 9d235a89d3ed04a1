// Command officewatch mirrors a multi-agent work session into a live office
// view, serving a browser dashboard and a terminal viewer.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	initLogging()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging configures the global zerolog logger from the environment.
func initLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("OFFICE_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("OFFICE_LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
}

var rootCmd = &cobra.Command{
	Use:   "officewatch",
	Short: "Live dashboard for multi-agent work sessions",
	Long: `officewatch watches the active session file written by your agent
runner, projects it into an office view, and streams changes to a browser
dashboard and terminal viewers over WebSocket.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Terminal viewer for a running officewatch server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runTUI(addr)
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current office projection as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runState(cmd.Context(), addr)
	},
}

func init() {
	tuiCmd.Flags().String("addr", "", "server address (host:port); discovered from the running server when empty")
	stateCmd.Flags().String("addr", "", "server address (host:port); discovered from the running server when empty")
	rootCmd.AddCommand(tuiCmd, stateCmd)
}

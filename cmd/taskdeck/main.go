// Package main provides the taskdeck CLI, a thin terminal front-end over
// the client package: sign in, inspect projects and tasks, and preview
// ticket numbers against a running backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "taskdeck"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Taskdeck project and task management CLI",
		Long: `Taskdeck is a project/task tracker with human-readable ticket numbers.

The CLI talks to a running Taskdeck backend. Sign in once with
"taskdeck login"; the session is persisted locally and restored on
every invocation until you log out.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", envOrDefault("TASKDECK_SERVER", "http://localhost:8080"), "Backend base URL")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "Directory for the persisted session (default: user config dir)")

	cmd.AddCommand(
		loginCmd(&opts),
		logoutCmd(&opts),
		whoamiCmd(&opts),
		signupCmd(&opts),
		projectCmd(&opts),
		taskCmd(&opts),
		membersCmd(&opts),
	)
	return cmd
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

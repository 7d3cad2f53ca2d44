// Command cvrp solves capacitated vehicle routing instances from the command
// line and checks solution files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vrpls/internal/buildinfo"
	"vrpls/internal/logging"
)

func main() {
	_ = godotenv.Load()
	logging.FromEnv()
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("cvrp")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cvrp",
		Short:         "Local-search solver for capacitated vehicle routing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSolveCmd(), newCheckCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := buildinfo.Info()
			line := "cvrp " + info["version"]
			if info["commit"] != "" {
				line += " (" + info["commit"] + ")"
			}
			if info["builtAt"] != "" {
				line += " built " + info["builtAt"]
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		},
	}
}

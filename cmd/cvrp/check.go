package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vrpls/internal/vrp"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <instance-file> <solution-file>",
		Short: "Verify a solution file against an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInstance(args[0])
			if err != nil {
				return err
			}
			fh, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer fh.Close()
			sol, _, err := vrp.ReadSolutionFile(fh)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			if err := in.Check(sol, sol.TotalDistance); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %.2f %d routes\n", sol.TotalDistance, len(sol.Routes))
			return nil
		},
	}
}

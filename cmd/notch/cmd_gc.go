package main

import (
	"fmt"

	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newGcCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove objects no reference can reach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			summary, err := r.GC(dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summary.Pruned) == 0 {
				fmt.Fprintln(out, "nothing to prune")
				return nil
			}
			verb := "pruned"
			if dryRun {
				verb = "would prune"
			}
			for _, h := range summary.Pruned {
				fmt.Fprintf(out, "%s %s\n", verb, h)
			}
			fmt.Fprintf(out, "%s %d object(s), kept %d\n", verb, len(summary.Pruned), summary.Reachable)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only report what would be removed")
	return cmd
}

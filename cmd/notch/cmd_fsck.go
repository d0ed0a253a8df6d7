package main

import (
	"fmt"
	"sort"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Verify object integrity and reference resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			report, err := r.Fsck()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			types := make([]string, 0, len(report.Objects.ByType))
			for t := range report.Objects.ByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			fmt.Fprintf(out, "objects: %d\n", report.Objects.Objects)
			for _, t := range types {
				fmt.Fprintf(out, "  %s: %d\n", t, report.Objects.ByType[object.ObjectType(t)])
			}
			fmt.Fprintf(out, "refs: %d\n", report.Refs)

			if len(report.Problems) > 0 {
				for _, p := range report.Problems {
					fmt.Fprintf(out, "problem: %s\n", p)
				}
				return fmt.Errorf("fsck: %d problem(s) found", len(report.Problems))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

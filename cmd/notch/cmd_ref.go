package main

import (
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/refs"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newRefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Inspect and edit references",
	}
	cmd.AddCommand(newRefListCmd())
	cmd.AddCommand(newRefShowCmd())
	cmd.AddCommand(newRefCreateCmd())
	cmd.AddCommand(newRefDeleteCmd())
	cmd.AddCommand(newRefResolveCmd())
	return cmd
}

func newRefListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List references in name order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			out := cmd.OutOrStdout()
			for rec, err := range r.Refs.All(prefix) {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", rec.Target, rec.Name)
			}
			return nil
		},
	}
}

func newRefShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a reference record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			rec, err := r.Resolver.Dwim(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:      %s\n", rec.Name)
			fmt.Fprintf(out, "kind:      %s\n", rec.Kind())
			fmt.Fprintf(out, "shorthand: %s\n", rec.Shorthand())
			fmt.Fprintf(out, "target:    %s\n", rec.Target)
			return nil
		},
	}
}

func newRefCreateCmd() *cobra.Command {
	var (
		symbolic bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "create <name> <target>",
		Short: "Create a reference to an object or, with --symbolic, to another reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			var target refs.Target
			if symbolic {
				target = refs.Symbolic(strings.TrimSpace(args[1]))
			} else {
				h, err := r.ResolveRevision(args[1])
				if err != nil {
					return err
				}
				target = refs.Direct(h)
			}

			rec, err := r.Refs.Create(args[0], target, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&symbolic, "symbolic", "s", false, "target is a reference name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing reference")
	return cmd
}

func newRefDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()
			return r.Refs.Delete(args[0])
		},
	}
}

func newRefResolveCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Follow a reference to the object it names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			rec, err := r.Resolver.Dwim(args[0])
			if err != nil {
				return err
			}
			res, err := r.Resolver.Trace(rec)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if trace {
				fmt.Fprintln(out, strings.Join(res.Chain, " -> "))
			}
			if res.Dangling {
				return fmt.Errorf("%s: %w: %q does not exist", rec.Name, refs.ErrDanglingReference, res.Missing)
			}
			fmt.Fprintln(out, res.Hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "print every reference visited")
	return cmd
}

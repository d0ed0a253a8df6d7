package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var (
		deleteTag string
		force     bool
		showHash  bool
		annotate  bool
		message   string
	)

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				return r.DeleteTag(deleteTag)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range tags {
					if !showHash {
						fmt.Fprintln(out, name)
						continue
					}
					h, err := r.ResolveTag(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %s\n", h, name)
				}
				return nil
			}

			start := "HEAD"
			if len(args) == 2 {
				start = args[1]
			}
			target, err := r.ResolveRevision(start)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", start, err)
			}

			if annotate || message != "" {
				h, err := r.CreateAnnotatedTag(args[0], target, r.Signature(time.Now()), message, force)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, h)
				return nil
			}
			return r.CreateTag(args[0], target, force)
		},
	}

	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	cmd.Flags().BoolVar(&showHash, "show-hash", false, "show tag target hashes when listing")
	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotated tag message (implies --annotate)")
	return cmd
}

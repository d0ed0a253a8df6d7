package main

import (
	"fmt"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitTreeCmd() *cobra.Command {
	var (
		parents []string
		message string
		sign    bool
		keyPath string
	)

	cmd := &cobra.Command{
		Use:   "commit-tree <tree>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			tree, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			parentHashes := make([]object.Hash, 0, len(parents))
			for _, p := range parents {
				h, err := r.ResolveRevision(p)
				if err != nil {
					return err
				}
				parentHashes = append(parentHashes, h)
			}

			var signer notes.Signer
			if sign {
				signer, err = loadSigner(r, keyPath)
				if err != nil {
					return err
				}
			}

			h, err := r.CommitTree(tree, parentHashes, message, signer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key for --sign (default: signing.key, then ~/.ssh)")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

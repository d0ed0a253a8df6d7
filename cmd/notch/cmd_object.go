package main

import (
	"fmt"
	"io"
	"os"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var (
		objType string
		write   bool
		stdin   bool
	)

	cmd := &cobra.Command{
		Use:   "hash-object [file]",
		Short: "Compute an object hash and optionally store the object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := object.ObjectType(objType)
			if !t.Valid() {
				return fmt.Errorf("hash-object: unknown type %q", objType)
			}

			var (
				data []byte
				err  error
			)
			switch {
			case stdin && len(args) == 0:
				data, err = io.ReadAll(cmd.InOrStdin())
			case !stdin && len(args) == 1:
				data, err = os.ReadFile(args[0])
			default:
				return fmt.Errorf("hash-object: give exactly one of a file or --stdin")
			}
			if err != nil {
				return fmt.Errorf("hash-object: %w", err)
			}

			if _, err := object.Unmarshal(t, data); err != nil {
				return fmt.Errorf("hash-object: not a valid %s: %w", t, err)
			}

			alg := object.AlgorithmSHA256
			r, openErr := repo.Open(".")
			if openErr == nil {
				defer r.Close()
				alg = r.Objects.Algorithm()
			}

			var h object.Hash
			if write {
				if openErr != nil {
					return openErr
				}
				h, err = r.Objects.Put(t, data)
				if err != nil {
					return err
				}
			} else {
				h = alg.HashObject(t, data)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&objType, "type", "t", string(object.TypeBlob), "object type")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the object into the store")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the object from standard input")
	return cmd
}

func newCatObjectCmd() *cobra.Command {
	var (
		showType bool
		showSize bool
	)

	cmd := &cobra.Command{
		Use:   "cat-object <revision>",
		Short: "Print an object's content, type or size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			obj, err := r.Objects.Get(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, obj.Type)
			case showSize:
				fmt.Fprintln(out, len(obj.Data))
			default:
				_, err = out.Write(obj.Data)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the object size")
	cmd.MarkFlagsMutuallyExclusive("type", "size")
	return cmd
}

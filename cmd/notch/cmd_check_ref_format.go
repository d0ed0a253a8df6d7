package main

import (
	"fmt"

	"github.com/odvcencio/notch/pkg/refname"
	"github.com/spf13/cobra"
)

func newCheckRefFormatCmd() *cobra.Command {
	var (
		allowOneLevel bool
		pattern       bool
		shorthand     bool
		printName     bool
	)

	cmd := &cobra.Command{
		Use:   "check-ref-format <refname>",
		Short: "Check that a reference name is well formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := refname.FormatNormal
			if allowOneLevel {
				format |= refname.FormatAllowOneLevel
			}
			if pattern {
				format |= refname.FormatRefspecPattern
			}
			if shorthand {
				format |= refname.FormatRefspecShorthand
			}

			name, err := refname.Normalize(args[0], format)
			if err != nil {
				return err
			}
			if printName {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowOneLevel, "allow-onelevel", false, "accept one-level names such as HEAD")
	cmd.Flags().BoolVar(&pattern, "refspec-pattern", false, "accept a single trailing '*' component")
	cmd.Flags().BoolVar(&shorthand, "refspec-shorthand", false, "accept short names such as main")
	cmd.Flags().BoolVar(&printName, "normalize", false, "print the validated name")
	return cmd
}

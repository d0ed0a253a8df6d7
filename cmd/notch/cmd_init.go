package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		hashAlg    string
		storage    string
		noCompress bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty notch repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			cfg := repo.DefaultConfig()
			cfg.Core.Hash = hashAlg
			cfg.Core.Storage = storage
			if noCompress {
				cfg.Core.Compression = "none"
			}

			r, err := repo.InitWithConfig(abs, cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty notch repository in %s\n", r.Dir+string(filepath.Separator))
			return nil
		},
	}

	cmd.Flags().StringVar(&hashAlg, "hash", "sha256", "object hash algorithm (sha256, blake3)")
	cmd.Flags().StringVar(&storage, "storage", repo.StorageLoose, "storage backend (loose, badger)")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "store loose objects without zstd compression")
	return cmd
}

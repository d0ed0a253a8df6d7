package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newNotesCmd() *cobra.Command {
	var ns string

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Attach messages to objects",
	}
	cmd.PersistentFlags().StringVar(&ns, "ref", "", "notes namespace (default: notes.ref from config)")

	namespace := func(r *repo.Repo) string {
		if strings.TrimSpace(ns) != "" {
			return ns
		}
		return r.Config.Notes.Ref
	}

	cmd.AddCommand(newNotesAddCmd(namespace))
	cmd.AddCommand(newNotesShowCmd(namespace))
	cmd.AddCommand(newNotesListCmd(namespace))
	cmd.AddCommand(newNotesRemoveCmd(namespace))
	return cmd
}

func newNotesAddCmd(namespace func(*repo.Repo) string) *cobra.Command {
	var (
		message string
		force   bool
		sign    bool
		keyPath string
	)

	cmd := &cobra.Command{
		Use:   "add [revision]",
		Short: "Attach a note to an object (default HEAD)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			target, err := r.ResolveRevision(rev)
			if err != nil {
				return err
			}

			opts := notes.AttachOptions{Namespace: namespace(r), Force: force}
			if sign {
				opts.Signer, err = loadSigner(r, keyPath)
				if err != nil {
					return err
				}
			}

			sig := r.Signature(time.Now())
			note, err := r.Notes.Attach(target, message, sig, sig, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", note.ID, note.Ref)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "note message")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing note")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the note with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key for --sign (default: signing.key, then ~/.ssh)")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newNotesShowCmd(namespace func(*repo.Repo) string) *cobra.Command {
	var (
		verify     bool
		trustedKey string
	)

	cmd := &cobra.Command{
		Use:   "show [revision]",
		Short: "Show the note attached to an object (default HEAD)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			target, err := r.ResolveRevision(rev)
			if err != nil {
				return err
			}
			note, err := r.Notes.Find(target, namespace(r))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "note %s\n", note.ID)
			fmt.Fprintf(out, "Object: %s\n", note.Target)
			if obj := r.Notes.Target(note); obj != nil {
				fmt.Fprintf(out, "Type:   %s\n", obj.Type)
			} else {
				fmt.Fprintln(out, "Type:   (missing)")
			}
			fmt.Fprintf(out, "Author: %s <%s>\n", note.Author.Name, note.Author.Email)
			fmt.Fprintf(out, "Date:   %s\n", note.Author.Time().Format("2006-01-02 15:04:05 -0700"))

			if verify {
				var trusted ssh.PublicKey
				if trustedKey != "" {
					trusted, err = loadTrustedKey(trustedKey)
					if err != nil {
						return err
					}
				}
				pub, err := notes.VerifySignature(note, trusted)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Good signature from %s\n", ssh.FingerprintSHA256(pub))
			}

			fmt.Fprintln(out)
			fmt.Fprint(out, note.Message)
			if !strings.HasSuffix(note.Message, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "verify the note's SSH signature")
	cmd.Flags().StringVar(&trustedKey, "trusted-key", "", "public key the signature must come from")
	return cmd
}

func newNotesListCmd(namespace func(*repo.Repo) string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes as <note> <object>",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			for note, err := range r.Notes.All(namespace(r)) {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", note.ID, note.Target)
			}
			return nil
		},
	}
}

func newNotesRemoveCmd(namespace func(*repo.Repo) string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [revision]",
		Short: "Remove the note attached to an object (default HEAD)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			target, err := r.ResolveRevision(rev)
			if err != nil {
				return err
			}
			return r.Notes.Remove(target, namespace(r))
		},
	}
}

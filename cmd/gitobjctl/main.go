// Command gitobjctl is a thin CLI over the gitobj package: enough to
// inspect an object database and working tree without a full Git
// installation, mirroring the way the teacher's cmd/ layer exposes its
// scanning library as a set of narrow verbs.
package main

import (
	"fmt"
	"os"

	"github.com/objstore-go/gitobj"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "gitobjctl",
		Short: "Inspect and check out a gitobj object database",
	}
	cmd.PersistentFlags().StringVar(&root, "root", ".", "repository working directory")

	cmd.AddCommand(newCatFileCmd(&root))
	cmd.AddCommand(newRefCmd(&root))
	cmd.AddCommand(newCheckoutCmd(&root))
	cmd.AddCommand(newDiffCmd(&root))
	return cmd
}

func openRepo(root string) (*gitobj.Repository, error) {
	return gitobj.Open(root)
}

func newCatFileCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cat-file <hash>",
		Short: "Print the decoded framing of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(*root)
			if err != nil {
				return err
			}
			v, err := repo.Store.ReadExn(gitobj.ShortHash(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", v.Kind())
			switch t := v.(type) {
			case gitobj.Blob:
				cmd.OutOrStdout().Write(t.Data)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", t)
			}
			return nil
		},
	}
}

func newRefCmd(root *string) *cobra.Command {
	refCmd := &cobra.Command{Use: "ref", Short: "Inspect references"}

	refCmd.AddCommand(&cobra.Command{
		Use:   "list <namespace>",
		Short: "List refs under a namespace, e.g. refs/heads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(*root)
			if err != nil {
				return err
			}
			names, err := repo.Refs.List(args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})

	refCmd.AddCommand(&cobra.Command{
		Use:   "resolve <ref>",
		Short: "Resolve a ref to its commit hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(*root)
			if err != nil {
				return err
			}
			h, ok, err := repo.Refs.Read(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("ref %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	})

	return refCmd
}

func newCheckoutCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <commit-hash>",
		Short: "Materialize a commit's tree onto the working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(*root)
			if err != nil {
				return err
			}
			h, err := gitobj.ParseHash(args[0])
			if err != nil {
				return err
			}
			return repo.Out.WriteIndex(nil, h, repo.Digest())
		},
	}
}

func newDiffCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-hash> <new-hash>",
		Short: "Show a unified diff between two blob objects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(*root)
			if err != nil {
				return err
			}
			oldBlob, err := readBlob(repo, args[0])
			if err != nil {
				return err
			}
			newBlob, err := readBlob(repo, args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), gitobj.DiffBlob(args[0], args[1], oldBlob.Data, newBlob.Data))
			return nil
		},
	}
}

func readBlob(repo *gitobj.Repository, hash string) (gitobj.Blob, error) {
	v, err := repo.Store.ReadExn(gitobj.ShortHash(hash))
	if err != nil {
		return gitobj.Blob{}, err
	}
	b, ok := v.(gitobj.Blob)
	if !ok {
		return gitobj.Blob{}, fmt.Errorf("%s is not a blob", hash)
	}
	return b, nil
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nexusgeometry/pkg/store"
	"nexusgeometry/pkg/treefile"
)

var (
	copyBackend string
	copyTarget  string
)

var copyCmd = &cobra.Command{
	Use:   "copy [source] [dot.path] [destination]",
	Short: "Copy a subtree into a new store",
	Long: `copy creates a new store and copies the subtree at dot.path into it. The
subtree keeps its path unless --to names another one; missing parent groups
are created.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := treefile.OpenStore(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		dst, err := treefile.CreateStore(treefile.Backend(copyBackend), args[2])
		if err != nil {
			return err
		}

		srcPath := store.FromDotPath(args[1])
		dstPath := srcPath
		if copyTarget != "" {
			dstPath = store.FromDotPath(copyTarget)
		}

		if err := createParents(dst, dstPath); err != nil {
			_ = dst.Close()
			return err
		}
		if err := store.Copy(dst, src, srcPath, dstPath); err != nil {
			_ = dst.Close()
			return err
		}
		fmt.Printf("Copied %s from %s to %s in %s\n", srcPath, args[0], dstPath, args[2])
		return dst.Close()
	},
}

// createParents creates every missing group above path.
func createParents(s store.Store, path string) error {
	parent, _ := store.Split(path)
	current := store.Root
	for _, part := range strings.Split(strings.Trim(parent, "/"), "/") {
		if part == "" {
			continue
		}
		current = store.Join(current, part)
		if err := s.CreateGroup(current); err != nil && !errors.Is(err, store.ErrExists) {
			return err
		}
	}
	return nil
}

func init() {
	copyCmd.Flags().StringVarP(&copyBackend, "backend", "b", string(treefile.BackendSQLite), "Destination backend: sqlite or badger")
	copyCmd.Flags().StringVar(&copyTarget, "to", "", "Destination dot path (defaults to the source path)")
	rootCmd.AddCommand(copyCmd)
}

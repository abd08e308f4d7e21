package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/mediastash/internal/repository"
)

var resolveOnlyFlag bool

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <path> [destination]",
	Short: "Download and restore everything stashed under a path",
	Long: `Downloads every object under the given logical path, decrypts and
decompresses it, and writes it below the destination directory.
With --resolve-only, prints object URIs without downloading.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().BoolVar(&resolveOnlyFlag, "resolve-only", false, "only list object URIs")
}

// runRetrieve is the main entry point for the retrieve command
func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	if !resolveOnlyFlag && len(args) < 2 {
		return fmt.Errorf("destination is required unless --resolve-only is set")
	}

	sess, err := openSession(ctx, 1, !resolveOnlyFlag)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close repository", "error", err)
		}
	}()

	var opts []repository.RetrieveOption
	if resolveOnlyFlag {
		opts = append(opts, repository.ResolveOnly())
	}
	c, err := sess.repo.RetrieveContainer(ctx, path, containerFlag, opts...)
	if err != nil {
		return err
	}

	if resolveOnlyFlag {
		for _, m := range c.Media {
			fmt.Printf("%s\t%s\n", m.Name, m.URI)
		}
		return nil
	}

	dest := args[1]
	var total uint64
	for _, m := range c.Media {
		target, err := safeJoin(dest, m.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, m.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		total += uint64(m.Size())
	}

	printRetrieveSuccess(len(c.Media), total, dest)
	return nil
}

// safeJoin joins a slash-separated object name below dir, refusing
// names that would escape it.
func safeJoin(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal path: %s", name)
	}
	return filepath.Join(dir, clean), nil
}

// printRetrieveSuccess displays a success message
func printRetrieveSuccess(n int, total uint64, dest string) {
	color.Green("✓ Retrieved %d files (%s) to %s\n", n, humanize.IBytes(total), dest)
}

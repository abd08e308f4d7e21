package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/progress"
	"github.com/thebluefowl/mediastash/internal/walker"
)

var (
	stashPath      string
	stashRecursive bool
	stashExclude   []string
	stashJobs      int
)

var stashCmd = &cobra.Command{
	Use:   "stash <file-or-directory>",
	Short: "Compress, encrypt and upload a file or directory",
	Long: `Uploads a single file, or every file of a directory tree. A directory is
stored under --path (default: the directory name) followed by each file's
relative directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runStash,
}

func init() {
	stashCmd.Flags().StringVarP(&stashPath, "path", "p", "", "logical storage path to stash under")
	stashCmd.Flags().BoolVarP(&stashRecursive, "recursive", "r", true, "descend into subdirectories")
	stashCmd.Flags().StringSliceVarP(&stashExclude, "exclude", "e", nil, `glob patterns to skip, e.g. "*.tmp", ".git/**"`)
	stashCmd.Flags().IntVarP(&stashJobs, "jobs", "j", 1, "files to upload in parallel")
}

// runStash is the main entry point for the stash command
func runStash(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source := args[0]

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	sess, err := openSession(ctx, stashJobs, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close repository", "error", err)
		}
	}()

	if !info.IsDir() {
		return stashFile(ctx, sess, source)
	}
	return stashDirectory(ctx, sess, source)
}

func stashFile(ctx context.Context, sess *session, source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	c, err := sess.repo.StashMedia(ctx, stashPath, []*media.Media{media.New(filepath.Base(source), data)}, containerFlag)
	if err != nil {
		return err
	}
	m := c.Media[0]
	color.Green("✓ Stashed %s (%s → %s)\n", filepath.Base(source), humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(m.Size())))
	fmt.Println(m.URI)
	return nil
}

func stashDirectory(ctx context.Context, sess *session, source string) error {
	w := walker.New(sess.repo, walker.WithLogger(log), walker.WithConcurrency(stashJobs))
	w.Subscribe(progress.NewBar(os.Stderr, "stashing").Observe)
	w.Subscribe(progress.Logger(log))

	res, err := w.Walk(ctx, source, walker.Options{
		BasePath:    stashPath,
		ContainerID: containerFlag,
		Recursive:   stashRecursive,
		Exclude:     stashExclude,
	})
	if err != nil {
		if res != nil && len(res.Stashed) > 0 {
			color.Yellow("⚠ %d of %d files were stashed before the failure\n", len(res.Stashed), res.Files)
		}
		return err
	}

	color.Green("✓ Stashed %d files (%s)\n", res.Files, humanize.IBytes(uint64(res.TotalBytes)))
	if verboseFlag {
		for _, m := range res.Stashed {
			fmt.Println(m.URI)
		}
	}
	return nil
}

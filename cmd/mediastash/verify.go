package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"github.com/thebluefowl/mediastash/internal/media"
	"github.com/thebluefowl/mediastash/internal/repository"
	"github.com/thebluefowl/mediastash/internal/walker"
)

var (
	verifyPath      string
	verifyRecursive bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <directory>",
	Short: "Check that a stashed directory round-trips byte for byte",
	Long: `Retrieves everything stashed under the directory's base path in one pass
and compares BLAKE3 digests of the restored files with the local ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyPath, "path", "p", "", "logical storage path the directory was stashed under")
	verifyCmd.Flags().BoolVarP(&verifyRecursive, "recursive", "r", true, "descend into subdirectories")
}

// verifyReport counts the outcome per file.
type verifyReport struct {
	ok, missing, mismatched int
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := walker.Options{BasePath: verifyPath, Recursive: verifyRecursive}
	base, err := walker.BasePath(args[0], opts)
	if err != nil {
		return err
	}
	files, _, err := walker.Plan(ctx, args[0], opts)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, 1, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close repository", "error", err)
		}
	}()

	report, err := verifyFiles(ctx, sess.repo, base, files)
	if err != nil {
		return err
	}
	if report.missing+report.mismatched > 0 {
		color.Red("✗ %d ok, %d missing, %d mismatched\n", report.ok, report.missing, report.mismatched)
		return fmt.Errorf("verification failed")
	}
	color.Green("✓ %d files verified\n", report.ok)
	return nil
}

// verifyFiles retrieves everything under base once and compares each
// local file with the object stashed at its container path.
func verifyFiles(ctx context.Context, repo *repository.Repository, base string, files []walker.File) (verifyReport, error) {
	var report verifyReport

	c, err := repo.RetrieveContainer(ctx, base, containerFlag)
	if err != nil {
		return report, err
	}
	remote := make(map[string][32]byte, len(c.Media))
	for _, m := range c.Media {
		remote[media.JoinKey(base, m.Name)] = blake3.Sum256(m.Data)
	}

	for _, f := range files {
		// empty objects are dropped on retrieval
		if f.Size == 0 {
			report.ok++
			continue
		}

		want, ok := remote[media.JoinKey(f.Container, f.Name)]
		if !ok {
			report.missing++
			color.Yellow("missing     %s\n", f.Path)
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return report, err
		}
		if blake3.Sum256(data) != want {
			report.mismatched++
			color.Red("mismatched  %s\n", f.Path)
			continue
		}
		report.ok++
		log.Debug("verified", "file", f.Path, "container", f.Container)
	}
	return report, nil
}

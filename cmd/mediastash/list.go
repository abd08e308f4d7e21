package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List stored objects",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var prefix string
	if len(args) == 1 {
		prefix = args[0]
	}

	sess, err := openSession(ctx, 1, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close repository", "error", err)
		}
	}()

	objects, err := sess.repo.ListObjects(ctx, containerFlag, prefix)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, o := range objects {
		modified := "-"
		if !o.LastModified.IsZero() {
			modified = humanize.Time(o.LastModified)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Key, humanize.IBytes(uint64(o.Size)), modified)
	}
	return tw.Flush()
}

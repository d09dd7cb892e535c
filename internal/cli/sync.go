package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newPullCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the published document and merge it in",
		Long: `Fetch the published document and merge it into the local one. Posts
and announcements are replaced by the remote copy; messages are combined so
contact submissions received since the last publish are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.sess.Store.Pull(cmd.Context(), force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pulled via %s (revision %s)\n", res.Fetch, orDash(res.Revision))
			if res.Stats.Retained > 0 || res.Stats.Upgraded > 0 {
				fmt.Fprintf(out, "Kept %d local message(s), %d marked read locally\n", res.Stats.Retained, res.Stats.Upgraded)
			}
			if res.Dirty {
				fmt.Fprintln(out, "Local changes remain unpublished")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard every local change and take the remote document")
	return cmd
}

func newPushCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Publish the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.sess.Store.Push(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d bytes (revision %s)\n", res.Bytes, res.Revision)
			return nil
		},
	}
}

func newUploadCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image to the repository image folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			asset, err := a.sess.Store.UploadAsset(cmd.Context(), data, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", asset.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "file name to store under (default is the local base name)")
	return cmd
}

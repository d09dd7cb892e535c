package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tessera-archive/tessera/pkg/archive"
	"github.com/tessera-archive/tessera/pkg/response"
	"github.com/tessera-archive/tessera/pkg/site"
)

func newArchiveCommand(a *app) *cobra.Command {
	var q archive.Query
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Show the public archive view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := response.FromArchive(archive.Build(a.sess.Store.Document(), q))
			renderPosts(cmd, view.Posts)

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Category", "Posts"})
			for _, c := range view.Categories {
				t.AppendRow(table.Row{c.Name, c.Count})
			}
			t.Render()

			if len(view.Announcements) > 0 {
				renderAnnouncements(cmd, view.Announcements)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unread messages: %d\n", view.Unread)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Category, "category", "", "only posts in this category")
	cmd.Flags().StringVar(&q.Search, "search", "", "rank posts by these search terms")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of posts (0 means all)")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List cached document versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.sess.Store.History()
			if err != nil {
				return err
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Version", "Saved", "Current", "Reason"})
			for _, e := range entries {
				saved := time.UnixMilli(e.ValidFrom).UTC().Format(time.RFC3339)
				t.AppendRow(table.Row{e.Version, saved, yesNo(e.IsCurrent), orDash(e.ChangeReason)})
			}
			t.Render()
			return nil
		},
	}
}

func newRestoreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <version>",
		Short: "Make a cached version current again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			doc, err := a.sess.Store.Restore(version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored version %d (%q); push to publish it\n", version, doc.SiteTitle)
			return nil
		},
	}
}

func newEnhanceCommand(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "enhance <post-id>",
		Short: "Rewrite a post's content in a curatorial register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := a.sess.Store.Document()
			i := site.IndexOf(doc.Posts, args[0])
			if i < 0 {
				return fmt.Errorf("no post with id %s", args[0])
			}
			post := doc.Posts[i]

			text, err := a.sess.Insight.Enhance(cmd.Context(), post.Title, post.Content)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if !apply {
				return nil
			}
			if _, err := a.sess.Store.UpdateEntity(site.Posts, post.ID, map[string]any{"content": text}); err != nil {
				return errors.Join(errors.New("enhanced text not stored"), err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Content updated; push to publish it")
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "store the rewritten content on the post")
	return cmd
}

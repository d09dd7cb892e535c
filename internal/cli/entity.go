package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-archive/tessera/pkg/response"
	"github.com/tessera-archive/tessera/pkg/site"
)

func newPostCommand(a *app) *cobra.Command {
	cmd := collectionCommand(a, site.Posts, "post", `  sitectl post add title="Höyük kazısı" content="..." category=Saha`)
	cmd.AddCommand(listCommand(func(cmd *cobra.Command) {
		renderPosts(cmd, response.FromPosts(a.sess.Store.Document().Posts))
	}))
	return cmd
}

func newAnnouncementCommand(a *app) *cobra.Command {
	cmd := collectionCommand(a, site.Announcements, "announcement", `  sitectl announcement add title="Sergi" content="..." isActive=true`)
	cmd.AddCommand(listCommand(func(cmd *cobra.Command) {
		renderAnnouncements(cmd, response.FromAnnouncements(a.sess.Store.Document().Announcements))
	}))
	return cmd
}

func newMessageCommand(a *app) *cobra.Command {
	cmd := collectionCommand(a, site.Messages, "message", `  sitectl message add senderName=Deniz senderEmail=deniz@example.com subject=Soru body="..."`)
	cmd.AddCommand(listCommand(func(cmd *cobra.Command) {
		doc := a.sess.Store.Document()
		renderMessages(cmd, response.FromMessages(doc.Messages))
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sess.Store.MarkMessageRead(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to mark: %s\n", args[0])
			}
			return nil
		},
	})
	return cmd
}

// collectionCommand builds the add/update/delete verbs shared by every
// collection.
func collectionCommand(a *app, c site.Collection, noun, example string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   noun,
		Short: fmt.Sprintf("Manage %s", c),
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "add key=value...",
		Short:   fmt.Sprintf("Add a %s at the top of %s", noun, c),
		Example: example,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseAssignments(args)
			if err != nil {
				return err
			}
			entity, err := a.sess.Store.AddEntity(c, data)
			if err != nil {
				return err
			}
			return printJSON(cmd, entity)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <id> key=value...",
		Short: fmt.Sprintf("Patch a %s by id", noun),
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			entity, err := a.sess.Store.UpdateEntity(c, args[0], patch)
			if err != nil {
				return err
			}
			return printJSON(cmd, entity)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s by id", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sess.Store.DeleteEntity(c, args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s with id %s\n", noun, args[0])
			}
			return nil
		},
	})

	return cmd
}

func listCommand(render func(cmd *cobra.Command)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entries in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			render(cmd)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

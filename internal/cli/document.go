package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the document and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.sess.Store.Status()

			t := newTable(cmd)
			t.AppendRows([]table.Row{
				{"Mode", st.Mode},
				{"Source", st.Source},
				{"Location", orDash(st.Location)},
				{"Revision", orDash(st.Revision)},
				{"Unpublished changes", yesNo(st.Dirty)},
				{"Credential", yesNo(st.HasCredential)},
				{"Posts", st.Posts},
				{"Announcements", st.Announcements},
				{"Messages", st.Messages},
			})
			t.Render()
			return nil
		},
	}
}

func newSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Update top-level document fields",
		Long: `Update top-level document fields. Values that look like JSON
(objects, arrays, quoted strings, true/false) are decoded; everything else
is taken as a plain string.`,
		Example: `  sitectl set siteTitle="TESSERA" accentColor=#c2410c
  sitectl set 'focusAreas=[{"id":"fa-1","title":"Saha","desc":"Kazı"}]'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if err := a.sess.Store.UpdateFields(fields); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d field(s)\n", len(fields))
			return nil
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the write credential",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store the write credential (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token on stdin")
				}
				token = line
			}
			if err := a.sess.Store.SetCredential(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credential stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the write credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.sess.Store.ClearCredential()
			fmt.Fprintln(cmd.OutOrStdout(), "Credential cleared")
			return nil
		},
	})

	return cmd
}

// parseAssignments turns key=value arguments into a field map.
func parseAssignments(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		fields[key] = parseValue(raw)
	}
	return fields, nil
}

func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "true" || trimmed == "false" || strings.HasPrefix(trimmed, "{") ||
		strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}

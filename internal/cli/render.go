package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/tessera-archive/tessera/pkg/response"
)

const maxCellWidth = 48

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func renderPosts(cmd *cobra.Command, posts []response.SlimPost) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"ID", "Date", "Category", "Title", "Reading"})
	for _, p := range posts {
		t.AppendRow(table.Row{p.ID, p.Date, p.Category, clip(p.Title), p.ReadingTime})
	}
	t.Render()
}

func renderAnnouncements(cmd *cobra.Command, items []response.SlimAnnouncement) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"ID", "Date", "Title", "Active"})
	for _, a := range items {
		t.AppendRow(table.Row{a.ID, a.Date, clip(a.Title), yesNo(a.IsActive)})
	}
	t.Render()
}

func renderMessages(cmd *cobra.Command, items []response.SlimMessage) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"ID", "Received", "From", "Subject", "Read"})
	for _, m := range items {
		t.AppendRow(table.Row{m.ID, m.ReceivedAt, m.SenderName, clip(m.Subject), yesNo(m.Read)})
	}
	t.Render()
}

func clip(s string) string {
	return text.Trim(s, maxCellWidth)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"boardpacks/internal/domains"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func renderSections(w io.Writer, views []domains.PackSectionView, now time.Time) {
	submitted := 0
	for _, view := range views {
		if view.Status == domains.SectionStatusSubmitted {
			submitted++
		}
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("%d of %d sections submitted", submitted, len(views))))
	fmt.Fprintf(w, "%-4s %-32s %-10s %-8s %s\n",
		HeaderStyle.Render("#"), HeaderStyle.Render("Section"), HeaderStyle.Render("Status"),
		HeaderStyle.Render("Version"), HeaderStyle.Render("Updated"))

	for _, view := range views {
		status := PendingStyle.Render(view.Status)
		version := MutedStyle.Render("-")
		updated := MutedStyle.Render("never")
		if view.Status == domains.SectionStatusSubmitted {
			status = SubmittedStyle.Render(view.Status)
		}
		if view.Document != nil {
			version = fmt.Sprintf("v%d", view.Document.VersionNumber)
		}
		if last := view.LastUpdated(); last != nil {
			updated = humanize.RelTime(*last, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%-4d %-32s %-10s %-8s %s\n", view.OrderIndex, truncate(view.Title, 32), status, version, updated)
	}
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n-1])) + "…"
}

func NewSectionsCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "sections [pack id]",
		GroupID: "actions",
		Short:   "Sections shows the tracker of a pack",
		Long: `Sections shows every section of a pack with its submission status. For example:

packctl sections 0b6f...

Will list the sections of the pack in order, with the current version of each.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("pack id: %w", err)
			}

			all, db, err := openProviders()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pack, err := all.PackProvider.GetPackByID(ctx, packID)
			if err != nil {
				return err
			}
			views, err := all.PackProvider.GetPackSections(ctx, packID)
			if err != nil {
				return err
			}

			cmd.Printf("%s, %s (%s)\n", pack.Title, pack.MeetingDate.Format("2 Jan 2006"), pack.Status)
			renderSections(cmd.OutOrStdout(), views, time.Now())
			return nil
		},
	}
	parent.AddCommand(cmd)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"boardpacks/internal/domains"
	"boardpacks/internal/scheduler"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewSweepCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "sweep",
		GroupID: "actions",
		Short:   "Sweep deletes packs and templates that have no sections",
		Long: `Sweep runs one pass of the orphan sweeper. Headers younger than the grace period are kept.
For example:

packctl sweep --grace 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grace, err := cmd.Flags().GetDuration("grace")
			if err != nil {
				return err
			}

			all, db, err := openProviders()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			result, err := scheduler.NewSweeper(all.MaintenanceProvider, nil, nil, 0, grace).Sweep(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("removed %s empty packs and %s empty templates\n",
				humanize.Comma(result.Packs), humanize.Comma(result.Templates))
			return nil
		},
	}
	cmd.Flags().Duration("grace", time.Hour, "keep headers created within this period")
	parent.AddCommand(cmd)
}

func renderAnomalies(w io.Writer, anomalies []domains.VersionAnomaly) {
	if len(anomalies) == 0 {
		fmt.Fprintln(w, SubmittedStyle.Render("document history is consistent"))
		return
	}
	fmt.Fprintln(w, WarnStyle.Render(fmt.Sprintf("%d version anomalies", len(anomalies))))
	for _, a := range anomalies {
		switch a.Kind {
		case domains.AnomalyDuplicateVersion:
			fmt.Fprintf(w, "  section %s: version %d stored %d times\n", a.SectionID, a.VersionNumber, a.Documents)
		default:
			fmt.Fprintf(w, "  section %s: version %d is newer than the current document\n", a.SectionID, a.VersionNumber)
		}
	}
}

func NewAuditCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "audit",
		GroupID: "actions",
		Short:   "Audit checks stored data for inconsistencies",
	}
	parent.AddCommand(cmd)

	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "Versions reports duplicate or unreferenced document versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, db, err := openProviders()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			anomalies, err := all.MaintenanceProvider.ListVersionAnomalies(ctx)
			if err != nil {
				return err
			}
			renderAnomalies(cmd.OutOrStdout(), anomalies)
			if len(anomalies) > 0 {
				return fmt.Errorf("found %d anomalies", len(anomalies))
			}
			return nil
		},
	}
	cmd.AddCommand(versionsCmd)
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/subledger/internal/config"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/storage"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Bool("dry-run", false, "Report drift without writing corrected balances")
	reconcileCmd.Flags().String("user", "", "Only reconcile this tenant (default: every tenant)")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute wallet balances from the transaction history",
	Long: `Recompute every wallet balance from its transactions and overwrite the
cached balance where it drifted by more than a cent. With --dry-run nothing is
written and the drift is only reported.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	userID, _ := cmd.Flags().GetString("user")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	backend, err := storage.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer backend.Close()

	report, err := reconcile.NewService(backend.Reconcile).Run(cmd.Context(), reconcile.Options{
		UserID: userID,
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, report *reconcile.Report) error {
	mode := "corrective"
	if report.DryRun {
		mode = "dry run"
	}

	fmt.Fprintf(out, "%s: checked %d wallets, %d drifted, %d corrected\n",
		mode, report.Checked, report.Drifted, report.Corrected)

	if len(report.Wallets) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tWALLET\tSTORED\tCOMPUTED\tDRIFT\tCORRECTED")

	for _, w := range report.Wallets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			w.UserID, w.Name, w.Stored.StringFixed(2), w.Computed.StringFixed(2), w.Drift.StringFixed(2), w.Corrected)
	}

	return tw.Flush()
}

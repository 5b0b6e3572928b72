package commands

import (
	"capitolwatch-backend/lib/disclosurestore"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showDb      *string
	showChamber *string
	showYear    *string
)

func init() {
	showDb = showCmd.Flags().String("db", "disclosures.db", "The database written by the batch command.")
	showChamber = showCmd.Flags().String("chamber", "house", "Chamber the member belongs to.")
	showYear = showCmd.Flags().String("year", "", "Filing year the batch ran for.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <last name> --year <yyyy> [--chamber house|senate]",
	Short: "Prints a member's stored disclosures from a batch database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, err := disclosurestore.Open(*showDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer store.Close()

		categorized, err := store.Pull(ctx, args[0], *showChamber, *showYear)
		if err != nil {
			serviceutil.Fatal("failed to read disclosures", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Category", "Subject", "Report Type", "Filed", "File"})
		for category, records := range categorized {
			for _, record := range records {
				t.AppendRow(table.Row{category, record.Subject, record.ReportType, record.FiledDate, record.FilePath})
			}
		}
		t.Render()
	},
}

package commands

import (
	"encoding/json"
	"os"
	"path/filepath"

	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/congress"
	"capitolwatch-backend/lib/scrapers/senate"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	senateFirstName  *string
	senateState      *string
	senateYear       *string
	senateCandidates *bool
	senateProcess    *bool
)

func init() {
	senateFirstName = senateCmd.Flags().String("first-name", "", "First name, improves match accuracy.")
	senateState = senateCmd.Flags().String("state", "", "Two-letter state code.")
	senateYear = senateCmd.Flags().String("year", "", "Filing year, defaults to the current year.")
	senateCandidates = senateCmd.Flags().Bool("include-candidates", false, "Include candidate filings.")
	senateProcess = senateCmd.Flags().Bool("process-trades", false, "Process each trade filing and dump its parsed sections to JSON.")
	rootCmd.AddCommand(senateCmd)
}

var senateCmd = &cobra.Command{
	Use:   "senate <last name>",
	Short: "Fetches a senator's financial disclosures.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		senator, err := congress.NewSenator(args[0], *senateFirstName, *senateState)
		if err != nil {
			serviceutil.Fatal("invalid member identity", err)
		}

		session, err := browser.Launch(browser.Options{Headless: *headless})
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer session.Close()

		scraper := senate.NewScraper(session.Page())
		disclosures, err := senator.Disclosures(ctx, scraper, congress.DisclosureOptions{
			Year:                    *senateYear,
			IncludeCandidateReports: *senateCandidates,
		})
		if err != nil {
			serviceutil.Fatal("failed to fetch disclosures", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Category", "Name", "Report Type", "Date"})
		appendRows := func(category string, rows []senate.Disclosure) {
			for _, d := range rows {
				t.AppendRow(table.Row{category, d.FirstName + " " + d.LastName, d.ReportType, d.Date})
			}
		}
		appendRows("trades", disclosures.Trades)
		appendRows("annual", disclosures.Annual)
		appendRows("amendments", disclosures.Amendments)
		appendRows("blind_trust", disclosures.BlindTrust)
		appendRows("extension", disclosures.Extension)
		appendRows("other", disclosures.Other)
		t.Render()

		if *senateProcess {
			for i, trade := range disclosures.Trades {
				filing, err := scraper.ProcessFiling(ctx, trade.ReportURL, senate.ReportTypePTR, *outputDir)
				if err != nil {
					cmd.PrintErrf("failed to process %s: %v\n", trade.ReportURL, err)
					continue
				}
				data, err := json.MarshalIndent(filing, "", "  ")
				if err != nil {
					serviceutil.Fatal("failed to marshal filing", err)
				}
				path := filepath.Join(*outputDir, filing.Metadata.Title+".json")
				if filing.Metadata.Title == "" {
					path = filepath.Join(*outputDir, trade.Date+"_trade.json")
				}
				err = os.WriteFile(path, data, 0644)
				if err != nil {
					serviceutil.Fatal("failed to write filing json", err)
				}
				cmd.Printf("processed trade %d/%d -> %s\n", i+1, len(disclosures.Trades), path)
			}
		}
	},
}

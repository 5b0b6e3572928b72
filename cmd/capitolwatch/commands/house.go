package commands

import (
	"os"

	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/congress"
	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	houseState    *string
	houseDistrict *string
	houseYear     *string
	houseDownload *bool
)

func init() {
	houseState = houseCmd.Flags().String("state", "", "Two-letter state code.")
	houseDistrict = houseCmd.Flags().String("district", "", "District number.")
	houseYear = houseCmd.Flags().String("year", "", "Filing year, defaults to the current year.")
	houseDownload = houseCmd.Flags().Bool("download-annual", false, "Download the annual disclosure PDF.")
	rootCmd.AddCommand(houseCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var houseCmd = &cobra.Command{
	Use:   "house <last name>",
	Short: "Fetches a House member's financial disclosures.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rep, err := congress.NewRepresentative(args[0], *houseState, *houseDistrict)
		if err != nil {
			serviceutil.Fatal("invalid member identity", err)
		}

		session, err := browser.Launch(browser.Options{Headless: *headless})
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer session.Close()

		scraper := house.NewScraper(session.Page())
		disclosures, err := rep.Disclosures(ctx, scraper, *houseYear)
		if err != nil {
			serviceutil.Fatal("failed to fetch disclosures", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Category", "Name", "Office", "Year", "Filing Type"})
		for _, d := range disclosures.Trades {
			t.AppendRow(table.Row{"trades", d.Name, d.Office, d.Year, d.FilingType})
		}
		for _, d := range disclosures.Annual {
			t.AppendRow(table.Row{"annual", d.Name, d.Office, d.Year, d.FilingType})
		}
		t.Render()

		if *houseDownload {
			disclosure, err := rep.AnnualDisclosure(ctx, scraper, *houseYear, *outputDir)
			if err != nil {
				serviceutil.Fatal("failed to download annual disclosure", err)
			}
			cmd.Printf("annual disclosure saved to %s\n", disclosure.FilePath)
		}
	},
}

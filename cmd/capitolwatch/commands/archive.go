package commands

import (
	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var archiveYear *string

func init() {
	archiveYear = archiveCmd.Flags().String("year", "", "Download the ZIP archive for this year instead of listing.")
	rootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive [--year <yyyy>]",
	Short: "Lists or downloads the House portal's yearly filing archives.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		session, err := browser.Launch(browser.Options{Headless: *headless})
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer session.Close()

		scraper := house.NewScraper(session.Page())

		if *archiveYear != "" {
			path, err := scraper.DownloadYearArchive(ctx, *archiveYear, *outputDir)
			if err != nil {
				serviceutil.Fatal("failed to download archive", err)
			}
			cmd.Printf("archive saved to %s\n", path)
			return
		}

		years, err := scraper.AvailableYears(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list archive years", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"Year"})
		for _, year := range years {
			t.AppendRow(table.Row{year})
		}
		t.Render()
	},
}

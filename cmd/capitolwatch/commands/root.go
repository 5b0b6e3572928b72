package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"capitolwatch-backend/lib/restyutil"
	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "capitolwatch",
	Short: "capitolwatch fetches and normalizes congressional financial disclosures.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// optional, the CLI works without an .env file
		godotenv.Load()

		if *verbose {
			telemetry.InitSlog(true)
			house.SetRestyInstrumentOutput(
				restyutil.NewFilesystemOutput(filepath.Join(*outputDir, "resty_telemetry")),
			)
		}
	},
}

var (
	headless  *bool
	outputDir *string
	verbose   *bool
)

func init() {
	headless = rootCmd.PersistentFlags().Bool("headless", true, "Run the browser in headless mode.")
	outputDir = rootCmd.PersistentFlags().String("output", "example_output", "Directory to write downloaded documents to.")
	verbose = rootCmd.PersistentFlags().Bool("verbose", false, "Debug logging, including HTTP traffic dumps.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package commands

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/configutil"
	"capitolwatch-backend/lib/congress"
	"capitolwatch-backend/lib/disclosurestore"
	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/scrapers/senate"
	"capitolwatch-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

// BatchMember is one entry of the batch config file.
type BatchMember struct {
	Chamber   string `json:"chamber"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	State     string `json:"state"`
	District  string `json:"district"`
}

type BatchConfig struct {
	Year    string        `json:"year"`
	Members []BatchMember `json:"members"`
}

var (
	batchConfigPath *string
	batchDb         *string
	batchRetries    *int
)

func init() {
	batchConfigPath = batchCmd.Flags().String("config", "batch.json5", "The member list config to process.")
	batchDb = batchCmd.Flags().String("db", "disclosures.db", "The database to write results to.")
	batchRetries = batchCmd.Flags().Int("retries", 3, "Retry attempts per member with exponential backoff.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [--config <path/to/batch.json5>] [--db <path/to/output.db>]",
	Short: "Fetches disclosures for a list of members and writes them to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := configutil.ReadConfig[BatchConfig](*batchConfigPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Year == "" {
			cfg.Year = strconv.Itoa(time.Now().Year())
		}

		store, err := disclosurestore.Open(*batchDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer store.Close()

		session, err := browser.Launch(browser.Options{Headless: *headless})
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer session.Close()

		houseScraper := house.NewScraper(session.Page())
		senateScraper := senate.NewScraper(session.Page())

		t1 := time.Now()
		succeeded := 0
		for _, member := range cfg.Members {
			// One member's failure must not abort the batch.
			err := processWithBackoff(ctx, *batchRetries, func() error {
				return processMember(ctx, store, houseScraper, senateScraper, member, cfg.Year)
			})
			if err != nil {
				slog.ErrorContext(
					ctx, "failed to process member",
					"last_name", member.LastName, "chamber", member.Chamber, "err", err,
				)
				continue
			}
			succeeded++
		}

		slog.InfoContext(
			ctx, "batch complete",
			"members", len(cfg.Members),
			"succeeded", succeeded,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}

// processWithBackoff retries the whole member operation with
// exponential backoff. This layering is deliberately a caller policy,
// the scrapers only do their own bounded fixed-delay retries.
func processWithBackoff(ctx context.Context, attempts int, operation func() error) error {
	var err error
	delay := time.Second
	for attempt := 1; attempt <= attempts; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		slog.WarnContext(ctx, "retrying member after backoff", "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func processMember(
	ctx context.Context,
	store disclosurestore.Store,
	houseScraper *house.Scraper,
	senateScraper *senate.Scraper,
	member BatchMember,
	year string,
) error {
	switch member.Chamber {
	case "senate":
		senator, err := congress.NewSenator(member.LastName, member.FirstName, member.State)
		if err != nil {
			return err
		}
		disclosures, err := senator.Disclosures(ctx, senateScraper, congress.DisclosureOptions{Year: year})
		if err != nil {
			return err
		}
		return store.Push(ctx, member.LastName, "senate", year, senateRecords(disclosures))

	default:
		rep, err := congress.NewRepresentative(member.LastName, member.State, member.District)
		if err != nil {
			return err
		}
		disclosures, err := rep.Disclosures(ctx, houseScraper, year)
		if err != nil {
			return err
		}
		return store.Push(ctx, member.LastName, "house", year, houseRecords(disclosures))
	}
}

func houseRecords(disclosures *congress.HouseDisclosures) []disclosurestore.Record {
	var records []disclosurestore.Record
	appendRows := func(category string, rows []house.Disclosure) {
		for _, d := range rows {
			records = append(records, disclosurestore.Record{
				Category:    category,
				Subject:     d.Name,
				Office:      d.Office,
				ReportType:  d.FilingType,
				FiledDate:   d.Year,
				DocumentURL: d.PDFURL,
				FilePath:    d.FilePath,
			})
		}
	}
	appendRows("trades", disclosures.Trades)
	appendRows("annual", disclosures.Annual)
	return records
}

func senateRecords(disclosures *congress.SenateDisclosures) []disclosurestore.Record {
	var records []disclosurestore.Record
	appendRows := func(category string, rows []senate.Disclosure) {
		for _, d := range rows {
			records = append(records, disclosurestore.Record{
				Category:    category,
				Subject:     d.FirstName + " " + d.LastName,
				Office:      d.Office,
				ReportType:  d.ReportType,
				FiledDate:   d.Date,
				DocumentURL: d.ReportURL,
				FilePath:    d.FilePath,
			})
		}
	}
	appendRows("trades", disclosures.Trades)
	appendRows("annual", disclosures.Annual)
	appendRows("amendments", disclosures.Amendments)
	appendRows("blind_trust", disclosures.BlindTrust)
	appendRows("extension", disclosures.Extension)
	appendRows("other", disclosures.Other)
	return records
}

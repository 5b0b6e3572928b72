package senate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"capitolwatch-backend/lib/htmlutil"
	"capitolwatch-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// FilingType describes how a filing's document is served.
type FilingType string

const (
	FilingWebTable FilingType = "web_table"
	FilingPDF      FilingType = "pdf"
)

var (
	ErrNoPrinterFriendly = fmt.Errorf("no printer-friendly rendering available")
	ErrNoSections        = fmt.Errorf("no sections found in report")
)

// Filing is a resolved disclosure document: a generated PDF snapshot
// and, for web-table filings, the parsed report structure.
type Filing struct {
	Type     FilingType
	FilePath string
	Metadata ReportMetadata
	Sections []Section
}

type ReportMetadata struct {
	Title     string
	Filer     string
	FiledDate string
}

// Section is one block of a sectioned report. The attachments and
// comments section carries the boolean flags instead of a table.
type Section struct {
	Title    string
	Question string
	Answer   string
	Table    *Table

	HasAttachments bool
	HasComments    bool
	Comments       string
}

type Table struct {
	// Headers in document order, lowercased.
	Headers []string
	Rows    []Row
}

// Row maps header name to cell text. Asset carries option or bond
// metadata decoded from the asset cell's secondary text, when present.
type Row struct {
	Cells map[string]string
	Asset *AssetDetail
}

// AssetDetail holds the sub-fields embedded under an asset name on PTR
// transaction rows. Absent numeric fields stay nil.
type AssetDetail struct {
	OptionType     string
	StrikePrice    *float64
	ExpirationDate string
	Rate           *float64
	MaturityDate   string
}

// ClassifyFiling navigates to a report and decides whether it is a
// structured web table or a PDF-only document. Detection is
// affirmative-only: any failure falls back to PDF.
func (s *Scraper) ClassifyFiling(ctx context.Context, reportURL string) FilingType {
	ctx, span := tracer.Start(ctx, "ClassifyFiling")
	defer span.End()

	err := s.page.Navigate(ctx, NormalizeURL(reportURL))
	if err != nil {
		slog.WarnContext(ctx, "failed to load report, assuming pdf", "url", reportURL, "err", err)
		return FilingPDF
	}
	content, err := s.page.Content(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read report, assuming pdf", "url", reportURL, "err", err)
		return FilingPDF
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse report, assuming pdf", "url", reportURL, "err", err)
		return FilingPDF
	}

	if doc.Find("#reportDataTable").Length() > 0 {
		return FilingWebTable
	}
	if doc.Find(".grid-items").Length() > 0 {
		return FilingWebTable
	}
	if isAnnualReportPage(doc) || isPTRPage(doc) {
		return FilingWebTable
	}
	return FilingPDF
}

// isAnnualReportPage looks for sectioned content with data tables next
// to headers about assets, transactions or income.
func isAnnualReportPage(doc *goquery.Document) bool {
	found := false
	doc.Find("section").EachWithBreak(func(_ int, section *goquery.Selection) bool {
		if section.Find("table").Length() == 0 {
			return true
		}
		header := section.Find("h1, h2, h3").Text()
		if textutil.ContainsFold(header, "assets") ||
			textutil.ContainsFold(header, "transactions") ||
			textutil.ContainsFold(header, "income") {
			found = true
			return false
		}
		return true
	})
	return found
}

// isPTRPage looks for a periodic transaction report title next to a
// transaction table.
func isPTRPage(doc *goquery.Document) bool {
	title := doc.Find("h1, h2").Text()
	return textutil.ContainsFold(title, "periodic transaction report") &&
		doc.Find("table").Length() > 0
}

// ProcessFiling resolves a report into a Filing. Web-table filings get
// parsed into sections (and a best-effort PDF snapshot); PDF filings
// require the printer-friendly rendering and always produce a file.
// After a PDF snapshot the page is navigated back to the report so
// callers can keep working from where they were.
func (s *Scraper) ProcessFiling(ctx context.Context, reportURL string, hint ReportType, outputDir string) (*Filing, error) {
	ctx, span := tracer.Start(ctx, "ProcessFiling")
	defer span.End()

	reportURL = NormalizeURL(reportURL)
	filingType := s.ClassifyFiling(ctx, reportURL)
	slog.DebugContext(ctx, "processing filing", "url", reportURL, "type", filingType)

	content, err := s.page.Content(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if filingType == FilingWebTable {
		filing := &Filing{
			Type:     FilingWebTable,
			Metadata: parseMetadata(doc),
		}

		// Snapshot failures are non-fatal here, the parsed structure is
		// the primary artifact.
		filePath, err := s.materializePDF(ctx, doc, reportURL, outputDir, false)
		if err != nil {
			slog.WarnContext(ctx, "failed to snapshot web table filing", "url", reportURL, "err", err)
		} else {
			filing.FilePath = filePath
		}

		if hint == ReportTypePTR {
			filing.Sections, err = parsePTRSections(doc)
		} else {
			filing.Sections, err = parseReportSections(doc)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "section parse failed")
			return nil, err
		}
		return filing, nil
	}

	filePath, err := s.materializePDF(ctx, doc, reportURL, outputDir, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pdf materialization failed")
		return nil, err
	}
	return &Filing{
		Type:     FilingPDF,
		FilePath: filePath,
		Metadata: parseMetadata(doc),
	}, nil
}

// DownloadPDF materializes a filing's PDF and returns its local path.
func (s *Scraper) DownloadPDF(ctx context.Context, reportURL, outputDir string) (string, error) {
	filing, err := s.ProcessFiling(ctx, reportURL, "", outputDir)
	if err != nil {
		return "", err
	}
	if filing.FilePath == "" {
		return "", fmt.Errorf("failed to get pdf file path for %s", reportURL)
	}
	return filing.FilePath, nil
}

// materializePDF renders the printer-friendly version of the current
// report to a timestamped file, then navigates back to the report.
// strict controls whether a missing printer link is an error.
func (s *Scraper) materializePDF(ctx context.Context, doc *goquery.Document, reportURL, outputDir string, strict bool) (string, error) {
	printerURL := findPrinterLink(doc)
	if printerURL == "" {
		if strict {
			return "", fmt.Errorf("%w: %s", ErrNoPrinterFriendly, reportURL)
		}
		return "", nil
	}

	err := s.page.Navigate(ctx, printerURL)
	if err != nil {
		return "", err
	}
	data, err := s.page.PDF(ctx)

	// The session must end up back on the report page regardless of
	// how rendering went.
	returnErr := s.page.Navigate(ctx, reportURL)

	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("generated pdf is empty: %s", printerURL)
	}
	if returnErr != nil {
		return "", fmt.Errorf("failed to return to report page: %w", returnErr)
	}

	err = os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("report_%d.pdf", time.Now().Unix()))
	err = os.WriteFile(outputPath, data, 0644)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "generated pdf snapshot", "url", printerURL, "path", outputPath, "bytes", len(data))
	return outputPath, nil
}

// findPrinterLink locates the printer-friendly anchor. The selector
// varies across report types, so match on href and label together.
func findPrinterLink(doc *goquery.Document) string {
	var href string
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		linkHref := link.AttrOr("href", "")
		if linkHref == "" {
			return true
		}
		label := textutil.ContainsFold(link.Text(), "printer-friendly")
		if !label {
			return true
		}
		if strings.Contains(linkHref, "print") || link.HasClass("btn-primary") {
			href = linkHref
			return false
		}
		return true
	})
	if href == "" {
		return ""
	}
	return NormalizeURL(href)
}

func parseMetadata(doc *goquery.Document) ReportMetadata {
	return ReportMetadata{
		Title:     htmlutil.CellText(doc.Find("h1").First()),
		Filer:     htmlutil.CellText(doc.Find(".filer").First()),
		FiledDate: htmlutil.CellText(doc.Find(".filed-date").First()),
	}
}

// parseReportSections walks the report's section blocks in order. Each
// yields a title, optional question/answer text and an optional data
// table; the attachments and comments block is special-cased.
func parseReportSections(doc *goquery.Document) ([]Section, error) {
	var sections []Section
	doc.Find("section").Each(func(_ int, block *goquery.Selection) {
		section := Section{
			Title:    htmlutil.CellText(block.Find("h1, h2, h3").First()),
			Question: htmlutil.CellText(block.Find(".question").First()),
			Answer:   htmlutil.CellText(block.Find(".answer").First()),
		}

		if textutil.ContainsFold(section.Title, "attachments") &&
			textutil.ContainsFold(section.Title, "comments") {
			text := block.Text()
			section.HasAttachments = !textutil.ContainsFold(text, "no attachments")
			section.HasComments = !textutil.ContainsFold(text, "no comments")
			if section.HasComments {
				section.Comments = section.Answer
			}
			sections = append(sections, section)
			return
		}

		table := block.Find("table").First()
		if table.Length() > 0 {
			section.Table = parseTable(table, false)
		}
		sections = append(sections, section)
	})

	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	return sections, nil
}

// parsePTRSections parses a periodic transaction report page: a single
// transactions table whose asset cells may embed option or bond
// metadata in a secondary text node.
func parsePTRSections(doc *goquery.Document) ([]Section, error) {
	table := doc.Find("#reportDataTable").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, ErrNoSections
	}

	title := htmlutil.CellText(doc.Find("h1").First())
	if title == "" {
		title = "Transactions"
	}
	return []Section{{
		Title: title,
		Table: parseTable(table, true),
	}}, nil
}

func parseTable(table *goquery.Selection, decodeAssets bool) *Table {
	parsed := &Table{}
	table.Find("thead th").Each(func(_ int, header *goquery.Selection) {
		parsed.Headers = append(parsed.Headers, strings.ToLower(htmlutil.CellText(header)))
	})

	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		parsedRow := Row{Cells: map[string]string{}}
		for i, header := range parsed.Headers {
			if i >= cells.Length() {
				parsedRow.Cells[header] = ""
				continue
			}
			cell := cells.Eq(i)
			text := htmlutil.CellText(cell)

			if decodeAssets && strings.Contains(header, "asset") {
				secondary := htmlutil.CellText(cell.Find("div, small, em").First())
				detail := parseAssetDetail(secondary)
				if detail != nil {
					parsedRow.Asset = detail
					// decoded metadata is not part of the asset name
					text = htmlutil.CleanText(strings.Replace(text, secondary, "", 1))
				}
			}
			parsedRow.Cells[header] = text
		}
		parsed.Rows = append(parsed.Rows, parsedRow)
	})
	return parsed
}

var (
	optionTypeRegex = regexp.MustCompile(`(?i)option type:\s*([a-z]+)`)
	strikeRegex     = regexp.MustCompile(`(?i)strike price:\s*\$?([0-9][0-9,]*\.?[0-9]*)`)
	expirationRegex = regexp.MustCompile(`(?i)expiration date:\s*([0-9/]+)`)
	rateRegex       = regexp.MustCompile(`(?i)rate/coupon:\s*([0-9][0-9,]*\.?[0-9]*)`)
	maturityRegex   = regexp.MustCompile(`(?i)matures:\s*([0-9/]+)`)
)

// parseAssetDetail decodes the option or bond metadata in the
// secondary text under an asset name, if any.
func parseAssetDetail(secondary string) *AssetDetail {
	if secondary == "" {
		return nil
	}

	detail := &AssetDetail{}
	found := false
	if groups := optionTypeRegex.FindStringSubmatch(secondary); groups != nil {
		detail.OptionType = strings.ToLower(groups[1])
		found = true
	}
	if groups := strikeRegex.FindStringSubmatch(secondary); groups != nil {
		detail.StrikePrice = parsePrice(groups[1])
		found = found || detail.StrikePrice != nil
	}
	if groups := expirationRegex.FindStringSubmatch(secondary); groups != nil {
		detail.ExpirationDate = groups[1]
		found = true
	}
	if groups := rateRegex.FindStringSubmatch(secondary); groups != nil {
		detail.Rate = parsePrice(groups[1])
		found = found || detail.Rate != nil
	}
	if groups := maturityRegex.FindStringSubmatch(secondary); groups != nil {
		detail.MaturityDate = groups[1]
		found = true
	}
	if !found {
		return nil
	}
	return detail
}

func parsePrice(text string) *float64 {
	text = strings.ReplaceAll(text, ",", "")
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &value
}

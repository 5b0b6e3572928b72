// Package house scrapes the House of Representatives financial
// disclosure portal. The search flow drives a browser page (the portal
// renders results with DataTables); artifact downloads go over plain
// HTTP with the portal's cloudflare posture bypassed.
package house

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/htmlutil"
	"capitolwatch-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/house")

var restyOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput directs debug dumps of portal HTTP traffic to
// the given output. Only affects scrapers created afterwards.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyOutput = output
}

const (
	BaseURL   = "https://disclosures-clerk.house.gov"
	searchURL = BaseURL + "/FinancialDisclosure#Search"
	portalURL = BaseURL + "/FinancialDisclosure"

	// Electronic filings only go back to 1995.
	MinFilingYear = 1995

	searchAttempts = 3

	waitShort = time.Second * 10
	waitLong  = time.Second * 20
)

// delay between search attempts, a variable so tests can shrink it
var retryDelay = time.Second * 2

var (
	ErrSearchTimeout = fmt.Errorf("search results did not load within the timeout period")
	ErrSessionFailed = fmt.Errorf("failed to establish a session with the House portal")
)

// Disclosure is one row of the House search results table.
type Disclosure struct {
	Name       string
	Office     string
	Year       string
	FilingType string
	PDFURL     string
	// FilePath is set once the document has been downloaded locally.
	FilePath string
}

// Query is the House search form. LastName and FilingYear are required
// by callers in practice; State and District narrow the results.
type Query struct {
	LastName   string
	FilingYear string
	State      string
	District   string
}

type Scraper struct {
	page browser.Page
	http *resty.Client
}

func NewScraper(page browser.Page) *Scraper {
	client := resty.New()
	client.SetBaseURL(BaseURL)
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, otel.Tracer("scrapers/house/http"), restyOutput)

	return &Scraper{
		page: page,
		http: client,
	}
}

// WithSession makes sure the page is on the target url, reusing the
// current navigation when possible. The House portal has no agreement
// gate, so this is just a navigation precondition.
func (s *Scraper) WithSession(ctx context.Context, targetURL string, forceNew bool) error {
	ctx, span := tracer.Start(ctx, "WithSession")
	defer span.End()

	if targetURL == "" {
		targetURL = searchURL
	}
	current := s.page.URL()
	if !forceNew && current == targetURL {
		slog.DebugContext(ctx, "reusing house session", "url", current)
		return nil
	}

	slog.InfoContext(ctx, "navigating house portal", "url", targetURL, "force_new", forceNew)
	err := s.page.Navigate(ctx, targetURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	if strings.Contains(targetURL, "#Search") {
		err = s.page.WaitVisible(ctx, "#searchForm", waitShort)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search form never appeared")
			return fmt.Errorf("%w: %v", ErrSessionFailed, err)
		}
	}
	return nil
}

// ValidateYear enforces the portal's filing-year bounds before any
// network traffic happens.
func ValidateYear(year string) error {
	parsed, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("invalid year format: %q", year)
	}
	if parsed < MinFilingYear {
		return fmt.Errorf("year must be %d or later, got %d", MinFilingYear, parsed)
	}
	if parsed > time.Now().Year() {
		return fmt.Errorf("year cannot be in the future: %d", parsed)
	}
	return nil
}

// Search runs the disclosure search and returns every usable row. The
// whole flow is retried on transient failures; validation errors are
// returned immediately.
func (s *Scraper) Search(ctx context.Context, query Query) ([]Disclosure, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	err := ValidateYear(query.FilingYear)
	if err != nil {
		span.SetStatus(codes.Error, "invalid filing year")
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= searchAttempts; attempt++ {
		if attempt > 1 {
			slog.WarnContext(
				ctx, "retrying house search",
				"attempt", attempt, "last_name", query.LastName, "err", lastErr,
			)
			time.Sleep(retryDelay)
		}

		var results []Disclosure
		results, lastErr = s.searchOnce(ctx, query)
		if lastErr == nil {
			return results, nil
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "search failed after retries")
	if errors.Is(lastErr, browser.ErrTimeout) {
		return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, lastErr)
	}
	return nil, fmt.Errorf("failed to search disclosures: %w", lastErr)
}

func (s *Scraper) searchOnce(ctx context.Context, query Query) ([]Disclosure, error) {
	ctx, span := tracer.Start(ctx, "searchOnce")
	defer span.End()

	err := s.WithSession(ctx, searchURL, false)
	if err != nil {
		return nil, err
	}

	err = s.page.Fill(ctx, "#LastName", query.LastName)
	if err != nil {
		return nil, err
	}
	err = s.page.SelectOption(ctx, "#FilingYear", query.FilingYear)
	if err != nil {
		return nil, err
	}
	if query.State != "" {
		err = s.page.SelectOption(ctx, "#State", query.State)
		if err != nil {
			return nil, err
		}
	}
	if query.District != "" {
		err = s.page.Fill(ctx, "#District", query.District)
		if err != nil {
			return nil, err
		}
	}

	err = s.page.Click(ctx, `button[type="submit"]`)
	if err != nil {
		return nil, err
	}
	err = s.page.WaitVisible(ctx, "table.library-table.dataTable", waitLong)
	if err != nil {
		return nil, err
	}

	content, err := s.page.Content(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return nil, err
	}

	empty := doc.Find("td.dataTables_empty")
	if empty.Length() > 0 && strings.Contains(empty.Text(), "No activities found") {
		slog.InfoContext(ctx, "no activities found", "last_name", query.LastName)
		return []Disclosure{}, nil
	}

	results := extractRows(ctx, doc)
	slog.InfoContext(
		ctx, "house search complete",
		"last_name", query.LastName, "year", query.FilingYear, "results", len(results),
	)
	return results, nil
}

// extractRows pulls disclosures out of the results table, skipping rows
// with missing cells or a missing document link.
func extractRows(ctx context.Context, doc *goquery.Document) []Disclosure {
	results := []Disclosure{}
	doc.Find("table.library-table.dataTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		nameCell := row.Find(`td[data-label="Name"]`)
		href := htmlutil.CellHref(nameCell)
		if href == "" {
			slog.DebugContext(ctx, "skipping row without document link")
			return
		}

		disclosure := Disclosure{
			Name:       htmlutil.CellText(nameCell),
			Office:     htmlutil.CellText(row.Find(`td[data-label="Office"]`)),
			Year:       htmlutil.CellText(row.Find(`td[data-label="Filing Year"]`)),
			FilingType: htmlutil.CellText(row.Find(`td[data-label="Filing"]`)),
			PDFURL:     NormalizeURL(href),
		}
		if disclosure.Name == "" || disclosure.Office == "" ||
			disclosure.Year == "" || disclosure.FilingType == "" {
			slog.DebugContext(ctx, "skipping row with missing cells", "url", disclosure.PDFURL)
			return
		}
		results = append(results, disclosure)
	})
	return results
}

// NormalizeURL resolves portal-relative document links against the
// House base url.
func NormalizeURL(href string) string {
	if strings.HasPrefix(href, BaseURL) {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return BaseURL + "/" + href
}

// DownloadPDF fetches a disclosure document through the browser's
// session and writes it under outputDir. Returns the local path.
func (s *Scraper) DownloadPDF(ctx context.Context, pdfURL, outputDir string) (string, error) {
	ctx, span := tracer.Start(ctx, "DownloadPDF")
	defer span.End()

	pdfURL = NormalizeURL(pdfURL)
	filename := path.Base(pdfURL)
	if filename == "" || !strings.HasSuffix(filename, ".pdf") {
		filename = fmt.Sprintf("report_%d.pdf", time.Now().Unix())
	}

	status, body, err := s.page.Get(ctx, pdfURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download request failed")
		return "", fmt.Errorf("failed to download pdf: %w", err)
	}
	if status != 200 {
		span.SetStatus(codes.Error, "unexpected status")
		return "", fmt.Errorf("failed to download pdf: HTTP %d", status)
	}
	if len(body) == 0 {
		span.SetStatus(codes.Error, "empty body")
		return "", fmt.Errorf("downloaded pdf is empty: %s", pdfURL)
	}

	err = os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(outputDir, filename)
	err = os.WriteFile(outputPath, body, 0644)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}

	slog.InfoContext(ctx, "downloaded pdf", "url", pdfURL, "path", outputPath, "bytes", len(body))
	return outputPath, nil
}

// AvailableYears lists the years offered on the portal's bulk download
// panel, most recent first.
func (s *Scraper) AvailableYears(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "AvailableYears")
	defer span.End()

	err := s.WithSession(ctx, portalURL, false)
	if err != nil {
		return nil, err
	}
	err = s.page.WaitVisible(ctx, "div.panel.library-panel#download", waitShort)
	if err != nil {
		return nil, err
	}

	content, err := s.page.Content(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return nil, err
	}

	var years []string
	doc.Find("div.col-md-12 a").Each(func(_ int, link *goquery.Selection) {
		text := htmlutil.CleanText(link.Text())
		if _, err := strconv.Atoi(text); err == nil {
			years = append(years, text)
		}
	})
	// most recent first
	slices.SortFunc(years, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return years, nil
}

// DownloadYearArchive fetches the portal's yearly ZIP of all filings.
func (s *Scraper) DownloadYearArchive(ctx context.Context, year, outputDir string) (string, error) {
	ctx, span := tracer.Start(ctx, "DownloadYearArchive")
	defer span.End()

	err := ValidateYear(year)
	if err != nil {
		return "", err
	}

	err = s.WithSession(ctx, portalURL, false)
	if err != nil {
		return "", err
	}

	content, err := s.page.Content(ctx)
	if err != nil {
		return "", err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return "", err
	}

	var href string
	doc.Find("div.col-md-12 a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if htmlutil.CleanText(link.Text()) == year {
			href = link.AttrOr("href", "")
			return false
		}
		return true
	})
	if href == "" {
		span.SetStatus(codes.Error, "year not offered")
		return "", fmt.Errorf("no report archive available for year %s", year)
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("accept", "application/zip").
		Get(href)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to download archive: %w", err)
	}
	if res.StatusCode() != 200 {
		return "", fmt.Errorf("failed to download archive: HTTP %d", res.StatusCode())
	}
	body := res.Body()
	if len(body) == 0 {
		return "", fmt.Errorf("downloaded archive is empty: %s", href)
	}

	err = os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(outputDir, year+"FD.zip")
	err = os.WriteFile(outputPath, body, 0644)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "downloaded year archive", "year", year, "path", outputPath)
	return outputPath, nil
}

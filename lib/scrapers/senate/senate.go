// Package senate scrapes the Senate eFD (electronic financial
// disclosure) portal. The portal gates everything behind a one-time
// terms agreement and serves results through a paginated DataTables
// interface; individual filings are either structured web tables or
// PDF-only documents reachable through a printer-friendly rendering.
package senate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"capitolwatch-backend/lib/browser"
	"capitolwatch-backend/lib/htmlutil"
	"capitolwatch-backend/lib/states"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/senate")

const (
	BaseURL   = "https://efdsearch.senate.gov"
	SearchURL = BaseURL + "/search/"

	// Electronic filings only go back to 2012.
	MinFilingYear = 2012

	searchAttempts = 3

	waitShort = time.Second * 5
	waitLong  = time.Second * 10

	dateLayout = "01/02/2006"
)

// delay between search attempts, a variable so tests can shrink it
var retryDelay = time.Second

var (
	ErrSearchTimeout = fmt.Errorf("search results did not load within the timeout period")
	ErrSessionFailed = fmt.Errorf("failed to establish a session with the Senate portal")
)

// ReportType names a searchable filing category on the eFD form.
type ReportType string

const (
	ReportTypeAnnual     ReportType = "annual"
	ReportTypePTR        ReportType = "ptr"
	ReportTypeExtension  ReportType = "extension"
	ReportTypeBlindTrust ReportType = "blind_trust"
	ReportTypeOther      ReportType = "other"
)

// AllReportTypes covers every category the form can filter on.
var AllReportTypes = []ReportType{
	ReportTypeAnnual,
	ReportTypePTR,
	ReportTypeExtension,
	ReportTypeBlindTrust,
	ReportTypeOther,
}

// reportTypeCodes maps categories to the form's checkbox values.
var reportTypeCodes = map[ReportType]string{
	ReportTypeAnnual:     "7",
	ReportTypePTR:        "11",
	ReportTypeExtension:  "10",
	ReportTypeBlindTrust: "14",
	ReportTypeOther:      "15",
}

// Disclosure is one row of the eFD results table.
type Disclosure struct {
	FirstName  string
	LastName   string
	Office     string
	ReportType string
	Date       string
	ReportURL  string
	// FilePath is set once the document has been materialized locally.
	FilePath string
}

// Query is the eFD search form. FilingYear constrains the filed-date
// range to that calendar year; StartDate/EndDate override it with an
// explicit MM/DD/YYYY range.
type Query struct {
	FirstName  string
	LastName   string
	State      string
	FilingYear string
	StartDate  string
	EndDate    string
	// ReportTypes to check on the form; empty means unrestricted.
	ReportTypes []ReportType
	// IncludeCandidateReports keeps rows whose report type mentions a
	// candidate filing; by default those are dropped.
	IncludeCandidateReports bool
}

type Scraper struct {
	page browser.Page
	// agreementAccepted records the one-time terms gate. Never reset
	// except by a forced new session.
	agreementAccepted bool
}

func NewScraper(page browser.Page) *Scraper {
	return &Scraper{page: page}
}

// WithSession makes sure the terms agreement has been accepted and the
// page is on the target url. The agreement form only appears on the
// first visit; once accepted the flag short-circuits the check.
func (s *Scraper) WithSession(ctx context.Context, targetURL string, forceNew bool) error {
	ctx, span := tracer.Start(ctx, "WithSession")
	defer span.End()

	if targetURL == "" {
		targetURL = SearchURL
	}

	if forceNew || !s.agreementAccepted {
		slog.InfoContext(ctx, "establishing senate session", "url", targetURL, "force_new", forceNew)
		err := s.acceptAgreement(ctx, targetURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "agreement gate failed")
			return fmt.Errorf("%w: %v", ErrSessionFailed, err)
		}
		return nil
	}
	if s.page.URL() != targetURL {
		slog.DebugContext(ctx, "navigating within senate session", "url", targetURL)
		err := s.page.Navigate(ctx, targetURL)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: %v", ErrSessionFailed, err)
		}
	}
	return nil
}

func (s *Scraper) acceptAgreement(ctx context.Context, targetURL string) error {
	ctx, span := tracer.Start(ctx, "acceptAgreement")
	defer span.End()

	err := s.page.Navigate(ctx, targetURL)
	if err != nil {
		return err
	}
	content, err := s.page.Content(ctx)
	if err != nil {
		return err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return err
	}

	if doc.Find("#agreement_form").Length() > 0 {
		slog.DebugContext(ctx, "accepting terms agreement")
		err = s.page.Click(ctx, "#agree_statement")
		if err != nil {
			return err
		}
		err = s.page.WaitVisible(ctx, "#searchForm", waitShort)
		if err != nil {
			return err
		}
	}
	s.agreementAccepted = true
	return nil
}

// ValidateYear enforces the eFD filing-year bounds.
func ValidateYear(year string) error {
	parsed, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("invalid year format: %q", year)
	}
	if parsed < MinFilingYear {
		return fmt.Errorf("electronic filings are only available from %d onwards, got %d", MinFilingYear, parsed)
	}
	if parsed > time.Now().Year() {
		return fmt.Errorf("year cannot be in the future: %d", parsed)
	}
	return nil
}

// ValidateDate checks an MM/DD/YYYY form date.
func ValidateDate(date string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q, want MM/DD/YYYY", date)
	}
	if parsed.Year() < MinFilingYear {
		return time.Time{}, fmt.Errorf("electronic filings are only available from %d onwards, got %q", MinFilingYear, date)
	}
	return parsed, nil
}

func (q Query) validate() error {
	if q.FilingYear != "" {
		err := ValidateYear(q.FilingYear)
		if err != nil {
			return err
		}
	}
	var start, end time.Time
	if q.StartDate != "" {
		parsed, err := ValidateDate(q.StartDate)
		if err != nil {
			return err
		}
		start = parsed
	}
	if q.EndDate != "" {
		parsed, err := ValidateDate(q.EndDate)
		if err != nil {
			return err
		}
		end = parsed
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("end date %q cannot be before start date %q", q.EndDate, q.StartDate)
	}
	if q.State != "" && !states.ValidSenate(q.State) {
		return fmt.Errorf("invalid state code for Senate: %q", q.State)
	}
	return nil
}

// dateRange resolves the filed-date window the form should carry.
// Explicit dates win over the year shorthand.
func (q Query) dateRange() (string, string) {
	start, end := q.StartDate, q.EndDate
	if start == "" && end == "" && q.FilingYear != "" {
		start = "01/01/" + q.FilingYear
		end = "12/31/" + q.FilingYear
	}
	return start, end
}

// Search runs the eFD search, walking every results page. Transient
// failures retry the whole flow with a forced new session.
func (s *Scraper) Search(ctx context.Context, query Query) ([]Disclosure, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	err := query.validate()
	if err != nil {
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= searchAttempts; attempt++ {
		if attempt > 1 {
			slog.WarnContext(
				ctx, "retrying senate search",
				"attempt", attempt, "last_name", query.LastName, "err", lastErr,
			)
			time.Sleep(retryDelay)
			s.agreementAccepted = false
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

	err := s.WithSession(ctx, SearchURL, false)
	if err != nil {
		return nil, err
	}
	err = s.page.WaitVisible(ctx, "#searchForm", waitShort)
	if err != nil {
		return nil, err
	}

	err = s.page.Fill(ctx, "#lastName", query.LastName)
	if err != nil {
		return nil, err
	}
	if query.FirstName != "" {
		err = s.page.Fill(ctx, "#firstName", query.FirstName)
		if err != nil {
			return nil, err
		}
	}

	err = s.page.Check(ctx, ".senator_filer")
	if err != nil {
		return nil, err
	}
	if query.State != "" {
		err = s.page.SelectOption(ctx, "#senatorFilerState", query.State)
		if err != nil {
			return nil, err
		}
	}

	for _, reportType := range query.ReportTypes {
		code, ok := reportTypeCodes[reportType]
		if !ok {
			slog.WarnContext(ctx, "unknown report type", "report_type", reportType)
			continue
		}
		err = s.page.Check(ctx, fmt.Sprintf(`input[name="report_type"][value="%s"]`, code))
		if err != nil {
			return nil, err
		}
	}

	startDate, endDate := query.dateRange()
	if startDate != "" {
		err = s.page.Fill(ctx, "#fromDate", startDate)
		if err != nil {
			return nil, err
		}
	}
	if endDate != "" {
		err = s.page.Fill(ctx, "#toDate", endDate)
		if err != nil {
			return nil, err
		}
	}

	err = s.page.Click(ctx, `button[type="submit"]`)
	if err != nil {
		return nil, err
	}

	hasResults, err := s.waitForResults(ctx)
	if err != nil {
		return nil, err
	}
	if !hasResults {
		slog.InfoContext(ctx, "no results found", "last_name", query.LastName)
		return []Disclosure{}, nil
	}

	var all []Disclosure
	for pageNum := 1; ; pageNum++ {
		results, err := s.extractPage(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)

		more, err := s.nextPage(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		slog.DebugContext(ctx, "advancing results page", "page", pageNum+1)
	}

	if !query.IncludeCandidateReports {
		filtered := []Disclosure{}
		for _, result := range all {
			if strings.Contains(strings.ToLower(result.ReportType), "candidate") {
				continue
			}
			filtered = append(filtered, result)
		}
		all = filtered
	}
	if all == nil {
		all = []Disclosure{}
	}

	slog.InfoContext(
		ctx, "senate search complete",
		"last_name", query.LastName, "year", query.FilingYear, "results", len(all),
	)
	return all, nil
}

// waitForResults rides out the DataTables processing indicator, then
// reports whether any result rows exist.
func (s *Scraper) waitForResults(ctx context.Context) (bool, error) {
	// The indicator may have come and gone already, so its absence at
	// the first check is not an error.
	err := s.page.WaitVisible(ctx, "#filedReports_processing", waitShort)
	if err != nil && !errors.Is(err, browser.ErrTimeout) {
		return false, err
	}
	if err == nil {
		err = s.page.WaitHidden(ctx, "#filedReports_processing", waitLong)
		if err != nil {
			return false, err
		}
	}

	err = s.page.WaitVisible(ctx, "#filedReports tbody tr, .alert-info", waitShort)
	if err != nil {
		return false, err
	}

	alert, err := s.page.InnerText(ctx, ".alert-info")
	if err != nil && !errors.Is(err, browser.ErrNoSuchElement) {
		return false, err
	}
	if err == nil && strings.Contains(alert, "No results found") {
		return false, nil
	}
	return true, nil
}

// extractPage pulls disclosures out of the current results page. The
// table has a fixed column order: first name, last name, office,
// report type (with the document link), date.
func (s *Scraper) extractPage(ctx context.Context) ([]Disclosure, error) {
	content, err := s.page.Content(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return nil, err
	}

	var results []Disclosure
	doc.Find("#filedReports tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			slog.DebugContext(ctx, "skipping row with insufficient cells", "cells", cells.Length())
			return
		}
		reportCell := cells.Eq(3)
		href := htmlutil.CellHref(reportCell)
		if href == "" {
			slog.DebugContext(ctx, "skipping row without report link")
			return
		}
		results = append(results, Disclosure{
			FirstName:  htmlutil.CellText(cells.Eq(0)),
			LastName:   htmlutil.CellText(cells.Eq(1)),
			Office:     htmlutil.CellText(cells.Eq(2)),
			ReportType: htmlutil.CellText(reportCell),
			Date:       htmlutil.CellText(cells.Eq(4)),
			ReportURL:  NormalizeURL(href),
		})
	})
	return results, nil
}

// nextPage advances the DataTables pagination if an enabled next
// button exists, returning whether it advanced.
func (s *Scraper) nextPage(ctx context.Context) (bool, error) {
	content, err := s.page.Content(ctx)
	if err != nil {
		return false, err
	}
	doc, err := htmlutil.ParseDocument(content)
	if err != nil {
		return false, err
	}
	next := doc.Find(".paginate_button.next").Not(".disabled")
	if next.Length() == 0 {
		return false, nil
	}

	err = s.page.Click(ctx, ".paginate_button.next:not(.disabled)")
	if err != nil {
		return false, err
	}
	_, err = s.waitForResults(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

// NormalizeURL resolves portal-relative report links against the eFD
// base url.
func NormalizeURL(href string) string {
	if strings.HasPrefix(href, BaseURL) {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return BaseURL + "/" + href
}

package congress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"capitolwatch-backend/lib/scrapers/senate"
	"capitolwatch-backend/lib/states"
	"capitolwatch-backend/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

// SenateSearcher is the slice of the Senate scraper the member domain
// needs.
type SenateSearcher interface {
	Search(ctx context.Context, query senate.Query) ([]senate.Disclosure, error)
	ProcessFiling(ctx context.Context, reportURL string, hint senate.ReportType, outputDir string) (*senate.Filing, error)
}

// SenateDisclosures is a year's worth of a senator's filings,
// categorized. Every field is non-nil, empty when nothing matched.
type SenateDisclosures struct {
	Trades     []senate.Disclosure
	Annual     []senate.Disclosure
	Amendments []senate.Disclosure
	BlindTrust []senate.Disclosure
	Extension  []senate.Disclosure
	Other      []senate.Disclosure
}

// DisclosureOptions select what a senator disclosure fetch covers.
type DisclosureOptions struct {
	// Year to search; current year when empty.
	Year string
	// IncludeCandidateReports keeps candidate filings in the results.
	IncludeCandidateReports bool
	// TestMode caps every category at one record, for deterministic
	// fixtures.
	TestMode bool
}

type senateCacheKey struct {
	year              string
	includeCandidates bool
	testMode          bool
}

// Senator identifies a Senate member for disclosure searches. Identity
// fields are immutable; the disclosure cache is per-instance and keyed
// by the full option set.
type Senator struct {
	Name      string
	FirstName string
	State     string

	cache map[senateCacheKey]*SenateDisclosures
}

func NewSenator(name, firstName, state string) (*Senator, error) {
	if state != "" && !states.ValidSenate(state) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	return &Senator{
		Name:      name,
		FirstName: firstName,
		State:     state,
		cache:     map[senateCacheKey]*SenateDisclosures{},
	}, nil
}

// Disclosures fetches and categorizes the senator's filings. Results
// are memoized per (year, candidate flag, test mode); repeat calls
// return the identical object without another search.
func (s *Senator) Disclosures(ctx context.Context, searcher SenateSearcher, opts DisclosureOptions) (*SenateDisclosures, error) {
	ctx, span := tracer.Start(ctx, "Senator.Disclosures")
	defer span.End()

	if opts.Year == "" {
		opts.Year = strconv.Itoa(time.Now().Year())
	}
	key := senateCacheKey{
		year:              opts.Year,
		includeCandidates: opts.IncludeCandidateReports,
		testMode:          opts.TestMode,
	}
	if cached, ok := s.cache[key]; ok {
		slog.DebugContext(ctx, "returning cached disclosures", "name", s.Name, "year", opts.Year)
		return cached, nil
	}

	results, err := searcher.Search(ctx, senate.Query{
		FirstName:               s.FirstName,
		LastName:                s.Name,
		State:                   s.State,
		FilingYear:              opts.Year,
		ReportTypes:             senate.AllReportTypes,
		IncludeCandidateReports: opts.IncludeCandidateReports,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	categorized := &SenateDisclosures{
		Trades:     []senate.Disclosure{},
		Annual:     []senate.Disclosure{},
		Amendments: []senate.Disclosure{},
		BlindTrust: []senate.Disclosure{},
		Extension:  []senate.Disclosure{},
		Other:      []senate.Disclosure{},
	}
	for _, disclosure := range results {
		if !s.matches(ctx, disclosure) {
			continue
		}
		bucket := categorized.bucketFor(disclosure.ReportType)
		if opts.TestMode && len(*bucket) >= 1 {
			continue
		}
		*bucket = append(*bucket, disclosure)
	}

	s.cache[key] = categorized
	return categorized, nil
}

// bucketFor classifies a free-text report-type label. Order matters:
// extension and amendment phrases are checked before the annual set so
// labels carrying multiple tokens land deterministically.
func (d *SenateDisclosures) bucketFor(label string) *[]senate.Disclosure {
	label = textutil.NormalizeName(label)
	switch {
	case strings.Contains(label, "extension") || strings.Contains(label, "due date"):
		return &d.Extension
	case strings.Contains(label, "amendment"):
		return &d.Amendments
	case strings.Contains(label, "periodic transaction"):
		return &d.Trades
	case isAnnualLabel(label):
		return &d.Annual
	case strings.Contains(label, "blind trust"):
		return &d.BlindTrust
	default:
		return &d.Other
	}
}

var annualLabelPhrases = []string{
	"annual report for cy",
	"financial disclosure report",
	"public financial disclosure",
}

func isAnnualLabel(label string) bool {
	for _, phrase := range annualLabelPhrases {
		if strings.Contains(label, phrase) {
			return true
		}
	}
	return label == "annual report"
}

// Trades returns the senator's periodic transaction reports.
func (s *Senator) Trades(ctx context.Context, searcher SenateSearcher, opts DisclosureOptions) ([]senate.Disclosure, error) {
	disclosures, err := s.Disclosures(ctx, searcher, opts)
	if err != nil {
		return nil, err
	}
	return disclosures.Trades, nil
}

// AnnualDisclosure returns the senator's annual filing for a year,
// preferring the original over amendments, with the document
// materialized alongside.
func (s *Senator) AnnualDisclosure(ctx context.Context, searcher SenateSearcher, year, outputDir string) (senate.Disclosure, error) {
	ctx, span := tracer.Start(ctx, "Senator.AnnualDisclosure")
	defer span.End()

	disclosures, err := s.Disclosures(ctx, searcher, DisclosureOptions{Year: year})
	if err != nil {
		return senate.Disclosure{}, err
	}
	if len(disclosures.Annual) == 0 {
		span.SetStatus(codes.Error, "no annual filing")
		return senate.Disclosure{}, fmt.Errorf("%w for %s in %s", ErrNoAnnualDisclosure, s.Name, year)
	}

	// non-amendments first
	slices.SortStableFunc(disclosures.Annual, func(a, b senate.Disclosure) int {
		aAmended := textutil.ContainsFold(a.ReportType, "amendment")
		bAmended := textutil.ContainsFold(b.ReportType, "amendment")
		switch {
		case aAmended == bAmended:
			return 0
		case bAmended:
			return -1
		default:
			return 1
		}
	})
	disclosure := &disclosures.Annual[0]

	if disclosure.ReportURL != "" {
		filing, err := searcher.ProcessFiling(ctx, disclosure.ReportURL, senate.ReportTypeAnnual, outputDir)
		if err != nil {
			span.RecordError(err)
			return senate.Disclosure{}, err
		}
		disclosure.FilePath = filing.FilePath
	}
	return *disclosure, nil
}

// matches applies the Senate member filter. Name matching is
// authoritative; state matching is advisory only because the office
// field's format is inconsistent across records, so a miss is logged
// but never rejects the row.
func (s *Senator) matches(ctx context.Context, disclosure senate.Disclosure) bool {
	if !textutil.EqualFold(disclosure.LastName, s.Name) {
		return false
	}
	if s.FirstName != "" && !textutil.MutualPrefix(disclosure.FirstName, s.FirstName) {
		return false
	}
	if s.State != "" && !officeMentionsState(disclosure.Office, s.State) {
		slog.DebugContext(
			ctx, "state not found in office field, keeping row on name match",
			"office", disclosure.Office, "state", s.State,
		)
	}
	return true
}

// officeMentionsState probes the candidate patterns the portal uses to
// embed a state in the free-text office field.
func officeMentionsState(office, state string) bool {
	office = strings.ToUpper(strings.TrimSpace(office))
	state = strings.ToUpper(state)

	for _, part := range strings.Split(office, ",") {
		if strings.TrimSpace(part) == state {
			return true
		}
	}
	if strings.Contains(office, "("+state+")") {
		return true
	}
	if strings.HasSuffix(office, " "+state) || strings.Contains(office, " "+state+" ") {
		return true
	}
	fullName := states.Name(state)
	return fullName != "" && textutil.ContainsFold(office, fullName)
}

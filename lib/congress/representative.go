package congress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/states"
	"capitolwatch-backend/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

var (
	ErrInvalidState       = fmt.Errorf("invalid state code for chamber")
	ErrNoAnnualDisclosure = fmt.Errorf("no annual disclosure found")
)

// HouseSearcher is the slice of the House scraper the member domain
// needs.
type HouseSearcher interface {
	Search(ctx context.Context, query house.Query) ([]house.Disclosure, error)
	DownloadPDF(ctx context.Context, pdfURL, outputDir string) (string, error)
}

// HouseDisclosures is a year's worth of a representative's filings,
// categorized. Every field is non-nil, empty when nothing matched.
type HouseDisclosures struct {
	Trades []house.Disclosure
	Annual []house.Disclosure
}

// Representative identifies a House member for disclosure searches.
// Identity fields are immutable; the disclosure cache is per-instance.
type Representative struct {
	Name     string
	State    string
	District string

	cache map[string]*HouseDisclosures
}

func NewRepresentative(name, state, district string) (*Representative, error) {
	if state != "" && !states.ValidHouse(state) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	return &Representative{
		Name:     name,
		State:    state,
		District: district,
		cache:    map[string]*HouseDisclosures{},
	}, nil
}

// Disclosures fetches and categorizes the member's filings for a year
// (current year when empty). Results are memoized per year; repeat
// calls return the identical object without another search.
func (r *Representative) Disclosures(ctx context.Context, searcher HouseSearcher, year string) (*HouseDisclosures, error) {
	ctx, span := tracer.Start(ctx, "Representative.Disclosures")
	defer span.End()

	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}
	if cached, ok := r.cache[year]; ok {
		slog.DebugContext(ctx, "returning cached disclosures", "name", r.Name, "year", year)
		return cached, nil
	}

	results, err := searcher.Search(ctx, house.Query{
		LastName:   r.Name,
		FilingYear: year,
		State:      r.State,
		District:   r.District,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	categorized := &HouseDisclosures{
		Trades: []house.Disclosure{},
		Annual: []house.Disclosure{},
	}
	for _, disclosure := range results {
		if !r.matches(ctx, disclosure) {
			continue
		}
		// PTR checked first so a label carrying both tokens lands in
		// exactly one bucket.
		if strings.Contains(disclosure.FilingType, "PTR") {
			categorized.Trades = append(categorized.Trades, disclosure)
		} else if strings.Contains(disclosure.FilingType, "FD") {
			categorized.Annual = append(categorized.Annual, disclosure)
		}
	}

	r.cache[year] = categorized
	return categorized, nil
}

// Trades returns the member's periodic transaction reports for a year.
func (r *Representative) Trades(ctx context.Context, searcher HouseSearcher, year string) ([]house.Disclosure, error) {
	disclosures, err := r.Disclosures(ctx, searcher, year)
	if err != nil {
		return nil, err
	}
	return disclosures.Trades, nil
}

// AnnualDisclosure returns the member's annual filing for a year,
// preferring the original over amendments, with the document
// downloaded alongside.
func (r *Representative) AnnualDisclosure(ctx context.Context, searcher HouseSearcher, year, outputDir string) (house.Disclosure, error) {
	ctx, span := tracer.Start(ctx, "Representative.AnnualDisclosure")
	defer span.End()

	disclosures, err := r.Disclosures(ctx, searcher, year)
	if err != nil {
		return house.Disclosure{}, err
	}
	if len(disclosures.Annual) == 0 {
		span.SetStatus(codes.Error, "no annual filing")
		return house.Disclosure{}, fmt.Errorf("%w for %s in %s", ErrNoAnnualDisclosure, r.Name, year)
	}

	// Lexical ascending sort on the filing-type label. For the observed
	// House label set this puts originals ahead of amendments; callers
	// rely on this exact ordering key.
	slices.SortStableFunc(disclosures.Annual, func(a, b house.Disclosure) int {
		return strings.Compare(a.FilingType, b.FilingType)
	})
	disclosure := &disclosures.Annual[0]

	if disclosure.PDFURL != "" {
		filePath, err := searcher.DownloadPDF(ctx, disclosure.PDFURL, outputDir)
		if err != nil {
			span.RecordError(err)
			return house.Disclosure{}, err
		}
		disclosure.FilePath = filePath
	}
	return *disclosure, nil
}

// matches applies the House member filter: parse the office encoding
// and enforce state/district; when the office cannot be parsed at all,
// fall back to a last-name check against the row's name field.
func (r *Representative) matches(ctx context.Context, disclosure house.Disclosure) bool {
	state, district, ok := parseOffice(disclosure.Office)
	if !ok {
		if !textutil.ContainsFold(disclosure.Name, r.Name) {
			slog.DebugContext(
				ctx, "rejecting row with unparseable office and mismatched name",
				"office", disclosure.Office, "row_name", disclosure.Name,
			)
			return false
		}
		return true
	}

	if r.State != "" && state != r.State {
		return false
	}
	if r.District != "" && district != r.District {
		return false
	}
	return true
}

// parseOffice decodes a House office string. Accepts hyphenated
// ("CA-11") and compact ("CA11") encodings.
func parseOffice(office string) (state, district string, ok bool) {
	office = strings.TrimSpace(office)

	if before, after, found := strings.Cut(office, "-"); found {
		state = strings.TrimSpace(before)
		district = strings.TrimSpace(after)
		if state == "" || district == "" {
			return "", "", false
		}
		return state, district, true
	}

	// compact form needs at least two letters and one digit
	if len(office) < 3 {
		return "", "", false
	}
	letters := office[:2]
	digits := office[2:]
	for _, c := range letters {
		if !unicode.IsLetter(c) {
			return "", "", false
		}
	}
	for _, c := range digits {
		if !unicode.IsDigit(c) {
			return "", "", false
		}
	}
	return letters, digits, true
}

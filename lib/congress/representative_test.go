package congress

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"capitolwatch-backend/lib/scrapers/house"
	"capitolwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeHouseSearcher struct {
	results   []house.Disclosure
	searches  int
	downloads int
}

func (f *fakeHouseSearcher) Search(_ context.Context, query house.Query) ([]house.Disclosure, error) {
	f.searches++
	return f.results, nil
}

func (f *fakeHouseSearcher) DownloadPDF(_ context.Context, pdfURL, outputDir string) (string, error) {
	f.downloads++
	return filepath.Join(outputDir, filepath.Base(pdfURL)), nil
}

func pelosiResults() []house.Disclosure {
	return []house.Disclosure{
		{
			Name:       "Pelosi, Hon.. Nancy",
			Office:     "CA-11",
			Year:       "2023",
			FilingType: "FD",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/1.pdf",
		},
		{
			Name:       "Pelosi, Hon.. Nancy",
			Office:     "CA11",
			Year:       "2023",
			FilingType: "PTR Original",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/ptr-pdfs/2023/2.pdf",
		},
		{
			// wrong district
			Name:       "McClintock, Hon.. Tom",
			Office:     "CA-09",
			Year:       "2023",
			FilingType: "FD",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/3.pdf",
		},
		{
			// unparseable office, name still matches
			Name:       "PELOSI, NANCY",
			Office:     "Speaker Emerita",
			Year:       "2023",
			FilingType: "FD Amendment",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/4.pdf",
		},
		{
			// unparseable office, name does not match
			Name:       "Somebody Else",
			Office:     "At Large",
			Year:       "2023",
			FilingType: "FD",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/5.pdf",
		},
		{
			// neither PTR nor FD, dropped
			Name:       "Pelosi, Hon.. Nancy",
			Office:     "CA-11",
			Year:       "2023",
			FilingType: "Travel Report",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/6.pdf",
		},
	}
}

func TestRepresentativeDisclosures(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	rep, err := NewRepresentative("Pelosi", "CA", "11")
	require.NoError(t, err)
	searcher := &fakeHouseSearcher{results: pelosiResults()}

	disclosures, err := rep.Disclosures(context.Background(), searcher, "2023")
	require.NoError(t, err)

	require.Len(t, disclosures.Trades, 1)
	require.Len(t, disclosures.Annual, 2)
	for _, disclosure := range disclosures.Trades {
		require.Contains(t, disclosure.FilingType, "PTR")
	}
	for _, disclosure := range disclosures.Annual {
		require.Contains(t, disclosure.FilingType, "FD")
		require.Contains(t, strings.ToUpper(disclosure.Name), "PELOSI")
	}
}

func TestRepresentativeDisclosuresCached(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	rep, err := NewRepresentative("Pelosi", "CA", "11")
	require.NoError(t, err)
	searcher := &fakeHouseSearcher{results: pelosiResults()}
	ctx := context.Background()

	first, err := rep.Disclosures(ctx, searcher, "2023")
	require.NoError(t, err)
	second, err := rep.Disclosures(ctx, searcher, "2023")
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, searcher.searches)

	// a different year is a different key
	_, err = rep.Disclosures(ctx, searcher, "2022")
	require.NoError(t, err)
	require.Equal(t, 2, searcher.searches)
}

func TestRepresentativeEmptyResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	rep, err := NewRepresentative("Nobody", "", "")
	require.NoError(t, err)
	searcher := &fakeHouseSearcher{}

	disclosures, err := rep.Disclosures(context.Background(), searcher, "2023")
	require.NoError(t, err)
	require.NotNil(t, disclosures.Trades)
	require.NotNil(t, disclosures.Annual)
	require.Empty(t, disclosures.Trades)
	require.Empty(t, disclosures.Annual)
}

func TestRepresentativeAnnualDisclosure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	rep, err := NewRepresentative("Pelosi", "CA", "11")
	require.NoError(t, err)
	searcher := &fakeHouseSearcher{results: []house.Disclosure{
		{
			Name:       "Pelosi, Hon.. Nancy",
			Office:     "CA-11",
			FilingType: "FD Amendment",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/amended.pdf",
		},
		{
			Name:       "Pelosi, Hon.. Nancy",
			Office:     "CA-11",
			FilingType: "FD",
			PDFURL:     "https://disclosures-clerk.house.gov/public_disc/financial-pdfs/2023/original.pdf",
		},
	}}

	disclosure, err := rep.AnnualDisclosure(context.Background(), searcher, "2023", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "FD", disclosure.FilingType)
	require.NotEmpty(t, disclosure.FilePath)
	require.Equal(t, 1, searcher.downloads)
}

func TestRepresentativeAnnualDisclosureNotFound(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	rep, err := NewRepresentative("Nobody", "", "")
	require.NoError(t, err)
	searcher := &fakeHouseSearcher{}

	_, err = rep.AnnualDisclosure(context.Background(), searcher, "2023", t.TempDir())
	require.ErrorIs(t, err, ErrNoAnnualDisclosure)
}

func TestNewRepresentativeValidatesState(t *testing.T) {
	_, err := NewRepresentative("Pelosi", "XX", "")
	require.ErrorIs(t, err, ErrInvalidState)

	// House accepts the district and territories
	_, err = NewRepresentative("Norton", "DC", "")
	require.NoError(t, err)
	_, err = NewRepresentative("Gonzalez-Colon", "PR", "")
	require.NoError(t, err)
}

func TestParseOffice(t *testing.T) {
	testCases := []struct {
		office   string
		state    string
		district string
		ok       bool
	}{
		{"CA-11", "CA", "11", true},
		{"CA11", "CA", "11", true},
		{" CA-11 ", "CA", "11", true},
		{"CA-09", "CA", "09", true},
		{"CA", "", "", false},
		{"Speaker Emerita", "", "", false},
		{"", "", "", false},
	}
	for _, test := range testCases {
		state, district, ok := parseOffice(test.office)
		require.Equal(t, test.ok, ok, "office %q", test.office)
		require.Equal(t, test.state, state, "office %q", test.office)
		require.Equal(t, test.district, district, "office %q", test.office)
	}
}

package senate

import (
	"context"
	"strconv"
	"testing"
	"time"

	"capitolwatch-backend/lib/browser/browsertest"
	"capitolwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const agreementHTML = `
<html><body>
<form id="agreement_form">
	<input type="checkbox" id="agree_statement"/>
</form>
</body></html>`

const searchFormHTML = `
<html><body>
<form id="searchForm">
	<div id="filerTypesDiv"><input type="checkbox" class="senator_filer"/></div>
	<div id="reportTypesDiv">
		<input type="checkbox" name="report_type" value="7"/>
		<input type="checkbox" name="report_type" value="11"/>
	</div>
	<input id="firstName"/>
	<input id="lastName"/>
	<select id="senatorFilerState"></select>
	<input id="fromDate"/>
	<input id="toDate"/>
	<button type="submit">Search Reports</button>
</form>
</body></html>`

const resultsPage1HTML = `
<html><body>
<form id="searchForm"></form>
<table id="filedReports">
<tbody>
	<tr>
		<td>Thomas</td>
		<td>Tuberville</td>
		<td>Tuberville, Thomas (Senator)</td>
		<td><a href="/search/view/ptr/aaa-111/">Periodic Transaction Report for 08/15/2023</a></td>
		<td>08/17/2023</td>
	</tr>
	<tr>
		<td>Thomas</td>
		<td>Tuberville</td>
		<td>Tuberville, Thomas (Candidate)</td>
		<td><a href="/search/view/annual/bbb-222/">Candidate Report for CY 2023</a></td>
		<td>05/15/2023</td>
	</tr>
	<tr>
		<td>malformed row</td>
	</tr>
</tbody>
</table>
<a class="paginate_button next">Next</a>
</body></html>`

const resultsPage2HTML = `
<html><body>
<form id="searchForm"></form>
<table id="filedReports">
<tbody>
	<tr>
		<td>Thomas</td>
		<td>Tuberville</td>
		<td>Tuberville, Thomas (Senator)</td>
		<td><a href="/search/view/annual/ccc-333/">Annual Report for CY 2023</a></td>
		<td>05/15/2024</td>
	</tr>
	<tr>
		<td>Thomas</td>
		<td>Tuberville</td>
		<td>Tuberville, Thomas (Senator)</td>
		<td>No link in this row</td>
		<td>05/15/2024</td>
	</tr>
</tbody>
</table>
<a class="paginate_button next disabled">Next</a>
</body></html>`

const noResultsHTML = `
<html><body>
<form id="searchForm"></form>
<div class="alert-info">No results found.</div>
</body></html>`

// a submission whose processing indicator never clears
const stuckResultsHTML = `
<html><body>
<form id="searchForm"></form>
<div id="filedReports_processing">Processing...</div>
</body></html>`

func shrinkRetryDelay(t *testing.T) {
	t.Helper()
	previous := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = previous })
}

// newPortalFake emulates the eFD portal: the first visit lands on the
// agreement page, submitting the form serves results, the pagination
// button advances pages.
func newPortalFake(resultPages []string) *browsertest.FakePage {
	page := &browsertest.FakePage{
		Documents: map[string]string{
			SearchURL: agreementHTML,
		},
	}
	pageIndex := 0
	page.ClickFunc = func(selector string) error {
		switch selector {
		case "#agree_statement":
			page.Documents[SearchURL] = searchFormHTML
		case `button[type="submit"]`:
			pageIndex = 0
			page.Documents[SearchURL] = resultPages[0]
		case ".paginate_button.next:not(.disabled)":
			pageIndex++
			page.Documents[SearchURL] = resultPages[pageIndex]
		}
		return nil
	}
	return page
}

func TestValidateYear(t *testing.T) {
	future := strconv.Itoa(time.Now().Year() + 1)

	testCases := []struct {
		year string
		ok   bool
	}{
		{"2012", true},
		{"2023", true},
		{"2011", false},
		{future, false},
		{"abcd", false},
	}
	for _, test := range testCases {
		err := ValidateYear(test.year)
		if test.ok {
			require.NoError(t, err, "year %q", test.year)
		} else {
			require.Error(t, err, "year %q", test.year)
		}
	}
}

func TestQueryValidation(t *testing.T) {
	testCases := []struct {
		name  string
		query Query
		ok    bool
	}{
		{"year only", Query{LastName: "Warren", FilingYear: "2023"}, true},
		{"date range", Query{LastName: "Warren", StartDate: "01/01/2022", EndDate: "12/31/2022"}, true},
		{"start only", Query{LastName: "Warren", StartDate: "01/01/2022"}, true},
		{"year too early", Query{LastName: "Warren", FilingYear: "2011"}, false},
		{"bad date format", Query{LastName: "Warren", StartDate: "2022-01-01"}, false},
		{"date too early", Query{LastName: "Warren", StartDate: "01/01/2011"}, false},
		{"end before start", Query{LastName: "Warren", StartDate: "06/01/2023", EndDate: "01/01/2023"}, false},
		{"dc has no senators", Query{LastName: "Warren", FilingYear: "2023", State: "DC"}, false},
		{"territory has no senators", Query{LastName: "Warren", FilingYear: "2023", State: "PR"}, false},
		{"valid state", Query{LastName: "Warren", FilingYear: "2023", State: "MA"}, true},
	}
	for _, test := range testCases {
		err := test.query.validate()
		if test.ok {
			require.NoError(t, err, test.name)
		} else {
			require.Error(t, err, test.name)
		}
	}
}

func TestSearchAcceptsAgreementOnce(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()

	page := newPortalFake([]string{noResultsHTML})
	scraper := NewScraper(page)

	_, err := scraper.Search(context.Background(), Query{LastName: "Warren", FilingYear: "2023"})
	require.NoError(t, err)
	_, err = scraper.Search(context.Background(), Query{LastName: "Warren", FilingYear: "2023"})
	require.NoError(t, err)

	require.Equal(t, 1, page.CallCount("click:#agree_statement"))
}

func TestSearchPagination(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()

	page := newPortalFake([]string{resultsPage1HTML, resultsPage2HTML})
	scraper := NewScraper(page)

	results, err := scraper.Search(context.Background(), Query{
		FirstName:   "Thomas",
		LastName:    "Tuberville",
		State:       "AL",
		FilingYear:  "2023",
		ReportTypes: AllReportTypes,
	})
	require.NoError(t, err)

	// candidate row filtered, malformed and linkless rows skipped
	require.Len(t, results, 2)
	require.Equal(t, "Periodic Transaction Report for 08/15/2023", results[0].ReportType)
	require.Equal(t, "https://efdsearch.senate.gov/search/view/ptr/aaa-111/", results[0].ReportURL)
	require.Equal(t, "Annual Report for CY 2023", results[1].ReportType)
	require.Equal(t, "08/17/2023", results[0].Date)

	require.Equal(t, 1, page.CallCount("check:.senator_filer"))
	require.Equal(t, 1, page.CallCount("select:#senatorFilerState=AL"))
	require.Equal(t, 1, page.CallCount(`check:input[name="report_type"][value="7"]`))
	require.Equal(t, 1, page.CallCount(`check:input[name="report_type"][value="11"]`))
	require.Equal(t, 1, page.CallCount("fill:#fromDate=01/01/2023"))
	require.Equal(t, 1, page.CallCount("fill:#toDate=12/31/2023"))
}

func TestSearchIncludesCandidateReports(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()

	page := newPortalFake([]string{resultsPage1HTML, resultsPage2HTML})
	scraper := NewScraper(page)

	results, err := scraper.Search(context.Background(), Query{
		LastName:                "Tuberville",
		FilingYear:              "2023",
		IncludeCandidateReports: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestSearchRetryForcesNewSession(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()
	shrinkRetryDelay(t)

	page := &browsertest.FakePage{
		Documents: map[string]string{SearchURL: agreementHTML},
	}
	// a fresh navigation always lands on the agreement gate
	page.NavigateFunc = func(url string) error {
		if url == SearchURL {
			page.Documents[SearchURL] = agreementHTML
		}
		return nil
	}
	submits := 0
	page.ClickFunc = func(selector string) error {
		switch selector {
		case "#agree_statement":
			page.Documents[SearchURL] = searchFormHTML
		case `button[type="submit"]`:
			submits++
			if submits == 1 {
				page.Documents[SearchURL] = stuckResultsHTML
			} else {
				page.Documents[SearchURL] = noResultsHTML
			}
		}
		return nil
	}
	scraper := NewScraper(page)

	results, err := scraper.Search(context.Background(), Query{LastName: "Warren", FilingYear: "2023"})
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, 2, submits)
	// the retry went back through the agreement gate
	require.Equal(t, 2, page.CallCount("click:#agree_statement"))
}

func TestSearchTimeoutAfterRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()
	shrinkRetryDelay(t)

	page := &browsertest.FakePage{
		Documents: map[string]string{SearchURL: agreementHTML},
	}
	page.NavigateFunc = func(url string) error {
		if url == SearchURL {
			page.Documents[SearchURL] = agreementHTML
		}
		return nil
	}
	page.ClickFunc = func(selector string) error {
		switch selector {
		case "#agree_statement":
			page.Documents[SearchURL] = searchFormHTML
		case `button[type="submit"]`:
			page.Documents[SearchURL] = stuckResultsHTML
		}
		return nil
	}
	scraper := NewScraper(page)

	_, err := scraper.Search(context.Background(), Query{LastName: "Warren", FilingYear: "2023"})
	require.ErrorIs(t, err, ErrSearchTimeout)
	require.Equal(t, 3, page.CallCount(`click:button[type="submit"]`))
	require.Equal(t, 3, page.CallCount("click:#agree_statement"))
}

func TestSearchNoResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:senate")
	defer cleanup()

	page := newPortalFake([]string{noResultsHTML})
	scraper := NewScraper(page)

	results, err := scraper.Search(context.Background(), Query{LastName: "Nobody", FilingYear: "2023"})
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestSearchRejectsInvalidQueryBeforeNetwork(t *testing.T) {
	page := &browsertest.FakePage{Documents: map[string]string{}}
	scraper := NewScraper(page)

	_, err := scraper.Search(context.Background(), Query{LastName: "Warren", FilingYear: "2011"})
	require.Error(t, err)
	require.Empty(t, page.Calls)
}

func TestNormalizeURL(t *testing.T) {
	require.Equal(
		t,
		"https://efdsearch.senate.gov/search/view/ptr/aaa-111/",
		NormalizeURL("/search/view/ptr/aaa-111/"),
	)
	require.Equal(
		t,
		"https://efdsearch.senate.gov/search/view/ptr/aaa-111/",
		NormalizeURL("https://efdsearch.senate.gov/search/view/ptr/aaa-111/"),
	)
}
